package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/middleware"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/money"
	"github.com/mmynk/settlewise/internal/settlement"
	"github.com/mmynk/settlewise/internal/storage"
)

// IdempotencyHeader carries the close token when the body does not.
const IdempotencyHeader = "Idempotency-Key"

// SettlementService implements the SettlementService RPCs.
type SettlementService struct {
	store     storage.SettlementStore
	finalizer *settlement.Finalizer
}

// NewSettlementService creates a SettlementService. The finalizer must be
// built over the same store.
func NewSettlementService(store storage.SettlementStore, finalizer *settlement.Finalizer) *SettlementService {
	return &SettlementService{store: store, finalizer: finalizer}
}

// authorize loads the settlement and checks that the caller may see it.
func (s *SettlementService) authorize(ctx context.Context, settlementID string) (*models.Settlement, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("no caller identity"))
	}
	st, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !st.HasMember(userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, errPermissionDenied)
	}
	return st, nil
}

// CreateSettlement opens a new settlement owned by the caller.
func (s *SettlementService) CreateSettlement(ctx context.Context, req *connect.Request[CreateSettlementRequest]) (*connect.Response[CreateSettlementResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("no caller identity"))
	}

	st := &models.Settlement{
		Name:         req.Msg.Name,
		CreatedBy:    userID,
		Participants: fromParticipantInputs(req.Msg.Participants),
	}
	if err := s.store.CreateSettlement(ctx, st); err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Settlement created", "settlement_id", st.ID, "participants", len(st.Participants))
	return connect.NewResponse(&CreateSettlementResponse{Settlement: toSettlement(st)}), nil
}

// GetSettlement returns a settlement with its participants.
func (s *SettlementService) GetSettlement(ctx context.Context, req *connect.Request[GetSettlementRequest]) (*connect.Response[GetSettlementResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	st, err := s.authorize(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetSettlementResponse{Settlement: toSettlement(st)}), nil
}

// ListSettlements returns the caller's settlements without participants.
func (s *SettlementService) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("no caller identity"))
	}
	settlements, err := s.store.ListSettlementsByUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]Settlement, len(settlements))
	for i, st := range settlements {
		out[i] = toSettlement(st)
	}
	return connect.NewResponse(&ListSettlementsResponse{Settlements: out}), nil
}

// AddParticipants adds people to an open settlement.
func (s *SettlementService) AddParticipants(ctx context.Context, req *connect.Request[AddParticipantsRequest]) (*connect.Response[AddParticipantsResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.Msg.SettlementID); err != nil {
		return nil, err
	}

	added, err := s.store.AddParticipants(ctx, req.Msg.SettlementID, fromParticipantInputs(req.Msg.Participants))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AddParticipantsResponse{Participants: toParticipants(added)}), nil
}

// AddExpense records an expense. The split is checked here so that stored
// expenses always balance.
func (s *SettlementService) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	st, err := s.authorize(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, err
	}

	expense, err := buildExpense(st, req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Expense added",
		"settlement_id", st.ID,
		"expense_id", expense.ID,
		"amount_cents", expense.AmountCents,
	)
	return connect.NewResponse(&AddExpenseResponse{Expense: toExpense(expense)}), nil
}

func buildExpense(st *models.Settlement, msg *AddExpenseRequest) (*models.Expense, error) {
	if len(msg.ParticipantIDs) > 0 && len(msg.ExactShares) > 0 {
		return nil, errors.New("set either participant_ids or exact_shares, not both")
	}

	amount, err := money.ParseCents(msg.Amount)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %s", msg.Amount)
	}
	if amount > money.MaxAmountCents {
		return nil, fmt.Errorf("amount %s exceeds the limit of %s", msg.Amount, money.FormatCents(money.MaxAmountCents))
	}

	members := make(map[string]bool, len(st.Participants))
	for _, p := range st.Participants {
		members[p.ID] = true
	}
	if !members[msg.PayerID] {
		return nil, fmt.Errorf("payer %q is not a participant", msg.PayerID)
	}

	expense := &models.Expense{
		SettlementID:   st.ID,
		Description:    msg.Description,
		PayerID:        msg.PayerID,
		AmountCents:    amount,
		ParticipantIDs: msg.ParticipantIDs,
	}
	for _, id := range msg.ParticipantIDs {
		if !members[id] {
			return nil, fmt.Errorf("participant %q is not in the settlement", id)
		}
	}
	if len(msg.ExactShares) > 0 {
		expense.ExactShares = make(map[string]int64, len(msg.ExactShares))
		for id, raw := range msg.ExactShares {
			if !members[id] {
				return nil, fmt.Errorf("participant %q is not in the settlement", id)
			}
			cents, err := money.ParseCents(raw)
			if err != nil {
				return nil, fmt.Errorf("share of %q: %w", id, err)
			}
			expense.ExactShares[id] = cents
		}
	}

	if _, err := calculator.ShareAmounts(expense.Share()); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpenses returns the expenses of a settlement, oldest first.
func (s *SettlementService) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.Msg.SettlementID); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpenses(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, toConnectError(err)
	}
	out := make([]Expense, len(expenses))
	for i := range expenses {
		out[i] = toExpense(&expenses[i])
	}
	return connect.NewResponse(&ListExpensesResponse{Expenses: out}), nil
}

// DeleteExpense removes an expense from an open settlement.
func (s *SettlementService) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.Msg.SettlementID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteExpense(ctx, req.Msg.SettlementID, req.Msg.ExpenseID); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Expense deleted", "settlement_id", req.Msg.SettlementID, "expense_id", req.Msg.ExpenseID)
	return connect.NewResponse(&DeleteExpenseResponse{}), nil
}

// PreviewBalances shows the balances and transfers closing would record now.
func (s *SettlementService) PreviewBalances(ctx context.Context, req *connect.Request[PreviewBalancesRequest]) (*connect.Response[PreviewBalancesResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.Msg.SettlementID); err != nil {
		return nil, err
	}

	balances, transfers, err := s.finalizer.Preview(ctx, req.Msg.SettlementID)
	if errors.Is(err, settlement.ErrAlreadyClosed) {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("%w: read the snapshot instead", err))
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PreviewBalancesResponse{
		Balances:  toBalances(balances),
		Transfers: toTransfers(transfers),
	}), nil
}

// CloseSettlement finalizes the settlement and returns its snapshot.
func (s *SettlementService) CloseSettlement(ctx context.Context, req *connect.Request[CloseSettlementRequest]) (*connect.Response[CloseSettlementResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	token := strings.TrimSpace(req.Msg.IdempotencyToken)
	if header := strings.TrimSpace(req.Header().Get(IdempotencyHeader)); header != "" {
		if token != "" && token != header {
			return nil, connect.NewError(connect.CodeInvalidArgument, errTokenMismatch)
		}
		token = header
	}
	if _, err := s.authorize(ctx, req.Msg.SettlementID); err != nil {
		return nil, err
	}

	snapshot, err := s.finalizer.Finalize(ctx, settlement.FinalizeRequest{
		SettlementID:     req.Msg.SettlementID,
		CallerID:         middleware.GetUserID(ctx),
		IdempotencyToken: token,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CloseSettlementResponse{Snapshot: toSnapshot(snapshot)}), nil
}

// GetSnapshot returns the stored snapshot of a closed settlement.
func (s *SettlementService) GetSnapshot(ctx context.Context, req *connect.Request[GetSnapshotRequest]) (*connect.Response[GetSnapshotResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.Msg.SettlementID); err != nil {
		return nil, err
	}

	snapshot, err := s.store.GetSnapshot(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetSnapshotResponse{Snapshot: toSnapshot(snapshot)}), nil
}

package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/settlewise/internal/middleware"
	"github.com/mmynk/settlewise/internal/settlement"
	"github.com/mmynk/settlewise/internal/storage/sqlite"
)

const (
	testUserHeader = "X-Test-User"
	testUser       = "alice-user"
)

// testAuthInterceptor stands in for RequireAuth. The caller defaults to
// testUser and can be overridden per request with testUserHeader.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			userID := req.Header().Get(testUserHeader)
			if userID == "" {
				userID = testUser
			}
			return next(middleware.WithUser(ctx, userID, userID+"@example.com"), req)
		}
	}
}

// setupTestServer creates a test server backed by a temp SQLite database.
func setupTestServer(t *testing.T) *SettlementServiceClient {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	svc := NewSettlementService(store, settlement.NewFinalizer(store))
	path, handler := NewSettlementServiceHandler(svc, connect.WithInterceptors(testAuthInterceptor()))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return NewSettlementServiceClient(server.Client(), server.URL)
}

// createTrip opens a settlement for Alice, Bob and Carol and returns it with
// participant IDs keyed by name.
func createTrip(t *testing.T, client *SettlementServiceClient) (Settlement, map[string]string) {
	t.Helper()
	resp, err := client.CreateSettlement(context.Background(), connect.NewRequest(&CreateSettlementRequest{
		Name: "Ski trip",
		Participants: []ParticipantInput{
			{Name: "Alice", UserID: testUser},
			{Name: "Bob"},
			{Name: "Carol"},
		},
	}))
	if err != nil {
		t.Fatalf("CreateSettlement failed: %v", err)
	}
	ids := make(map[string]string)
	for _, p := range resp.Msg.Settlement.Participants {
		ids[p.Name] = p.ID
	}
	return resp.Msg.Settlement, ids
}

func addExpense(t *testing.T, client *SettlementServiceClient, req *AddExpenseRequest) Expense {
	t.Helper()
	resp, err := client.AddExpense(context.Background(), connect.NewRequest(req))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	return resp.Msg.Expense
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("code: expected %v, got %v (%v)", want, got, err)
	}
}

func TestCreateSettlement(t *testing.T) {
	client := setupTestServer(t)
	st, ids := createTrip(t, client)

	if st.ID == "" {
		t.Error("expected non-empty settlement ID")
	}
	if st.Status != "open" {
		t.Errorf("status: expected 'open', got '%s'", st.Status)
	}
	if st.CreatedBy != testUser {
		t.Errorf("created_by: expected '%s', got '%s'", testUser, st.CreatedBy)
	}
	if len(ids) != 3 {
		t.Errorf("participants: expected 3, got %d", len(ids))
	}

	_, err := client.CreateSettlement(context.Background(), connect.NewRequest(&CreateSettlementRequest{}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestCloseSettlement_EndToEnd(t *testing.T) {
	client := setupTestServer(t)
	ctx := context.Background()
	st, ids := createTrip(t, client)

	addExpense(t, client, &AddExpenseRequest{
		SettlementID:   st.ID,
		Description:    "Cabin",
		PayerID:        ids["Alice"],
		Amount:         "30.00",
		ParticipantIDs: []string{ids["Alice"], ids["Bob"], ids["Carol"]},
	})

	preview, err := client.PreviewBalances(ctx, connect.NewRequest(&PreviewBalancesRequest{SettlementID: st.ID}))
	if err != nil {
		t.Fatalf("PreviewBalances failed: %v", err)
	}

	resp, err := client.CloseSettlement(ctx, connect.NewRequest(&CloseSettlementRequest{SettlementID: st.ID}))
	if err != nil {
		t.Fatalf("CloseSettlement failed: %v", err)
	}
	snapshot := resp.Msg.Snapshot

	want := map[string]int64{ids["Alice"]: 2000, ids["Bob"]: -1000, ids["Carol"]: -1000}
	if len(snapshot.Balances) != len(want) {
		t.Fatalf("balances: expected %d, got %d", len(want), len(snapshot.Balances))
	}
	for _, b := range snapshot.Balances {
		if b.AmountCents != want[b.ParticipantID] {
			t.Errorf("balance of %s: expected %d, got %d", b.ParticipantID, want[b.ParticipantID], b.AmountCents)
		}
	}
	if len(snapshot.Transfers) != 2 {
		t.Fatalf("transfers: expected 2, got %d", len(snapshot.Transfers))
	}
	for _, tr := range snapshot.Transfers {
		if tr.To != ids["Alice"] || tr.AmountCents != 1000 || tr.Amount != "10.00" {
			t.Errorf("unexpected transfer %+v", tr)
		}
	}
	if snapshot.ClosedBy != testUser {
		t.Errorf("closed_by: expected '%s', got '%s'", testUser, snapshot.ClosedBy)
	}
	if len(preview.Msg.Transfers) != len(snapshot.Transfers) {
		t.Errorf("preview transfers: expected %d, got %d", len(snapshot.Transfers), len(preview.Msg.Transfers))
	}

	stored, err := client.GetSnapshot(ctx, connect.NewRequest(&GetSnapshotRequest{SettlementID: st.ID}))
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if len(stored.Msg.Snapshot.Transfers) != 2 || stored.Msg.Snapshot.ClosedAt != snapshot.ClosedAt {
		t.Errorf("stored snapshot differs: %+v", stored.Msg.Snapshot)
	}

	got, err := client.GetSettlement(ctx, connect.NewRequest(&GetSettlementRequest{SettlementID: st.ID}))
	if err != nil {
		t.Fatalf("GetSettlement failed: %v", err)
	}
	if got.Msg.Settlement.Status != "closed" {
		t.Errorf("status: expected 'closed', got '%s'", got.Msg.Settlement.Status)
	}

	t.Run("second close", func(t *testing.T) {
		_, err := client.CloseSettlement(ctx, connect.NewRequest(&CloseSettlementRequest{SettlementID: st.ID}))
		assertCode(t, err, connect.CodeAlreadyExists)
	})

	t.Run("mutations are rejected", func(t *testing.T) {
		_, err := client.AddExpense(ctx, connect.NewRequest(&AddExpenseRequest{
			SettlementID:   st.ID,
			PayerID:        ids["Bob"],
			Amount:         "5",
			ParticipantIDs: []string{ids["Bob"]},
		}))
		assertCode(t, err, connect.CodeFailedPrecondition)

		_, err = client.AddParticipants(ctx, connect.NewRequest(&AddParticipantsRequest{
			SettlementID: st.ID,
			Participants: []ParticipantInput{{Name: "Dave"}},
		}))
		assertCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("preview after close", func(t *testing.T) {
		_, err := client.PreviewBalances(ctx, connect.NewRequest(&PreviewBalancesRequest{SettlementID: st.ID}))
		assertCode(t, err, connect.CodeFailedPrecondition)
	})
}

func TestCloseSettlement_Idempotency(t *testing.T) {
	client := setupTestServer(t)
	ctx := context.Background()
	st, ids := createTrip(t, client)
	addExpense(t, client, &AddExpenseRequest{
		SettlementID:   st.ID,
		PayerID:        ids["Bob"],
		Amount:         "10",
		ParticipantIDs: []string{ids["Alice"], ids["Bob"], ids["Carol"]},
	})

	closeWithHeader := func(token string) (*connect.Response[CloseSettlementResponse], error) {
		req := connect.NewRequest(&CloseSettlementRequest{SettlementID: st.ID})
		req.Header().Set(IdempotencyHeader, token)
		return client.CloseSettlement(ctx, req)
	}

	first, err := closeWithHeader("retry-1")
	if err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	second, err := closeWithHeader("retry-1")
	if err != nil {
		t.Fatalf("replayed close failed: %v", err)
	}
	if first.Msg.Snapshot.ClosedAt != second.Msg.Snapshot.ClosedAt ||
		len(first.Msg.Snapshot.Transfers) != len(second.Msg.Snapshot.Transfers) {
		t.Errorf("replay returned a different snapshot: %+v vs %+v", first.Msg.Snapshot, second.Msg.Snapshot)
	}
	for i := range first.Msg.Snapshot.Balances {
		if first.Msg.Snapshot.Balances[i] != second.Msg.Snapshot.Balances[i] {
			t.Errorf("balance %d differs on replay", i)
		}
	}

	// The body field is equivalent to the header.
	if _, err := client.CloseSettlement(ctx, connect.NewRequest(&CloseSettlementRequest{
		SettlementID: st.ID, IdempotencyToken: "retry-1",
	})); err != nil {
		t.Errorf("close with body token failed: %v", err)
	}

	// Surrounding whitespace is ignored in the body as it is in the header.
	padded := connect.NewRequest(&CloseSettlementRequest{SettlementID: st.ID, IdempotencyToken: " retry-1 "})
	padded.Header().Set(IdempotencyHeader, "retry-1")
	if _, err := client.CloseSettlement(ctx, padded); err != nil {
		t.Errorf("close with padded body token failed: %v", err)
	}
	if _, err := client.CloseSettlement(ctx, connect.NewRequest(&CloseSettlementRequest{
		SettlementID: st.ID, IdempotencyToken: "retry-1\t",
	})); err != nil {
		t.Errorf("close with padded body token alone failed: %v", err)
	}

	_, err = closeWithHeader("retry-2")
	assertCode(t, err, connect.CodeAlreadyExists)

	req := connect.NewRequest(&CloseSettlementRequest{SettlementID: st.ID, IdempotencyToken: "a"})
	req.Header().Set(IdempotencyHeader, "b")
	_, err = client.CloseSettlement(ctx, req)
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestCloseSettlement_Errors(t *testing.T) {
	client := setupTestServer(t)
	ctx := context.Background()

	_, err := client.CloseSettlement(ctx, connect.NewRequest(&CloseSettlementRequest{SettlementID: "nonexistent-id"}))
	assertCode(t, err, connect.CodeNotFound)

	empty, err := client.CreateSettlement(ctx, connect.NewRequest(&CreateSettlementRequest{Name: "Nobody"}))
	if err != nil {
		t.Fatalf("CreateSettlement failed: %v", err)
	}
	_, err = client.CloseSettlement(ctx, connect.NewRequest(&CloseSettlementRequest{SettlementID: empty.Msg.Settlement.ID}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	// A settlement with participants but no expenses closes with zero balances.
	st, _ := createTrip(t, client)
	resp, err := client.CloseSettlement(ctx, connect.NewRequest(&CloseSettlementRequest{SettlementID: st.ID}))
	if err != nil {
		t.Fatalf("CloseSettlement failed: %v", err)
	}
	if len(resp.Msg.Snapshot.Transfers) != 0 {
		t.Errorf("transfers: expected none, got %d", len(resp.Msg.Snapshot.Transfers))
	}
	for _, b := range resp.Msg.Snapshot.Balances {
		if b.AmountCents != 0 || b.Amount != "0.00" {
			t.Errorf("expected zero balance, got %+v", b)
		}
	}
}

func TestAddExpense_Validation(t *testing.T) {
	client := setupTestServer(t)
	st, ids := createTrip(t, client)
	everyone := []string{ids["Alice"], ids["Bob"], ids["Carol"]}

	tests := []struct {
		name string
		req  AddExpenseRequest
	}{
		{"sub-cent amount", AddExpenseRequest{PayerID: ids["Alice"], Amount: "1.001", ParticipantIDs: everyone}},
		{"negative amount", AddExpenseRequest{PayerID: ids["Alice"], Amount: "-5", ParticipantIDs: everyone}},
		{"zero amount", AddExpenseRequest{PayerID: ids["Alice"], Amount: "0", ParticipantIDs: everyone}},
		{"amount above limit", AddExpenseRequest{PayerID: ids["Alice"], Amount: "10000000000.01", ParticipantIDs: everyone}},
		{"int64 max cents", AddExpenseRequest{PayerID: ids["Alice"], Amount: "92233720368547758.07", ParticipantIDs: everyone}},
		{"unknown payer", AddExpenseRequest{PayerID: "mallory", Amount: "5", ParticipantIDs: everyone}},
		{"unknown participant", AddExpenseRequest{PayerID: ids["Alice"], Amount: "5", ParticipantIDs: []string{"mallory"}}},
		{"nobody shares", AddExpenseRequest{PayerID: ids["Alice"], Amount: "5"}},
		{"exact shares do not sum", AddExpenseRequest{PayerID: ids["Alice"], Amount: "5",
			ExactShares: map[string]string{ids["Bob"]: "2", ids["Carol"]: "2"}}},
		{"both split modes", AddExpenseRequest{PayerID: ids["Alice"], Amount: "5", ParticipantIDs: everyone,
			ExactShares: map[string]string{ids["Bob"]: "5"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.SettlementID = st.ID
			_, err := client.AddExpense(context.Background(), connect.NewRequest(&req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestExpenses_ListAndDelete(t *testing.T) {
	client := setupTestServer(t)
	ctx := context.Background()
	st, ids := createTrip(t, client)

	even := addExpense(t, client, &AddExpenseRequest{
		SettlementID:   st.ID,
		Description:    "Groceries",
		PayerID:        ids["Alice"],
		Amount:         "10.00",
		ParticipantIDs: []string{ids["Alice"], ids["Bob"], ids["Carol"]},
	})
	exact := addExpense(t, client, &AddExpenseRequest{
		SettlementID: st.ID,
		Description:  "Fuel",
		PayerID:      ids["Bob"],
		Amount:       "7.50",
		ExactShares:  map[string]string{ids["Bob"]: "2.50", ids["Carol"]: "5"},
	})
	if exact.AmountCents != 750 || exact.Amount != "7.50" {
		t.Errorf("amount: expected 750 / '7.50', got %d / '%s'", exact.AmountCents, exact.Amount)
	}

	list, err := client.ListExpenses(ctx, connect.NewRequest(&ListExpensesRequest{SettlementID: st.ID}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(list.Msg.Expenses) != 2 {
		t.Fatalf("expenses: expected 2, got %d", len(list.Msg.Expenses))
	}

	preview, err := client.PreviewBalances(ctx, connect.NewRequest(&PreviewBalancesRequest{SettlementID: st.ID}))
	if err != nil {
		t.Fatalf("PreviewBalances failed: %v", err)
	}
	var sum int64
	for _, b := range preview.Msg.Balances {
		sum += b.AmountCents
	}
	if sum != 0 {
		t.Errorf("balances sum to %d, want 0", sum)
	}

	if _, err := client.DeleteExpense(ctx, connect.NewRequest(&DeleteExpenseRequest{
		SettlementID: st.ID, ExpenseID: even.ID,
	})); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	_, err = client.DeleteExpense(ctx, connect.NewRequest(&DeleteExpenseRequest{
		SettlementID: st.ID, ExpenseID: even.ID,
	}))
	assertCode(t, err, connect.CodeNotFound)

	list, err = client.ListExpenses(ctx, connect.NewRequest(&ListExpensesRequest{SettlementID: st.ID}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(list.Msg.Expenses) != 1 || list.Msg.Expenses[0].ID != exact.ID {
		t.Errorf("expected only the exact expense to remain, got %+v", list.Msg.Expenses)
	}
}

func TestAccessControl(t *testing.T) {
	client := setupTestServer(t)
	ctx := context.Background()
	st, _ := createTrip(t, client)

	asStranger := func(req connect.AnyRequest) {
		req.Header().Set(testUserHeader, "stranger")
	}

	get := connect.NewRequest(&GetSettlementRequest{SettlementID: st.ID})
	asStranger(get)
	_, err := client.GetSettlement(ctx, get)
	assertCode(t, err, connect.CodePermissionDenied)

	closeReq := connect.NewRequest(&CloseSettlementRequest{SettlementID: st.ID})
	asStranger(closeReq)
	_, err = client.CloseSettlement(ctx, closeReq)
	assertCode(t, err, connect.CodePermissionDenied)

	list := connect.NewRequest(&ListSettlementsRequest{})
	asStranger(list)
	resp, err := client.ListSettlements(ctx, list)
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(resp.Msg.Settlements) != 0 {
		t.Errorf("stranger should see no settlements, got %d", len(resp.Msg.Settlements))
	}

	// Linking a participant to a user grants that user access.
	if _, err := client.AddParticipants(ctx, connect.NewRequest(&AddParticipantsRequest{
		SettlementID: st.ID,
		Participants: []ParticipantInput{{Name: "Dave", UserID: "stranger"}},
	})); err != nil {
		t.Fatalf("AddParticipants failed: %v", err)
	}
	get = connect.NewRequest(&GetSettlementRequest{SettlementID: st.ID})
	asStranger(get)
	if _, err := client.GetSettlement(ctx, get); err != nil {
		t.Errorf("linked participant should have access: %v", err)
	}

	_, err = client.AddParticipants(ctx, connect.NewRequest(&AddParticipantsRequest{
		SettlementID: st.ID,
		Participants: []ParticipantInput{{Name: "Dave"}},
	}))
	assertCode(t, err, connect.CodeAlreadyExists)
}

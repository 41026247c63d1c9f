package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// Store is the persistence the finalizer needs.
type Store interface {
	SettlementReader
	ShareReader

	CommitSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	GetSnapshot(ctx context.Context, settlementID string) (*models.Snapshot, error)
}

// ReplayCache remembers finalized snapshots by settlement and idempotency token.
// It is a fast path only; the persisted snapshot stays authoritative.
type ReplayCache interface {
	Lookup(ctx context.Context, settlementID, token string) (*models.Snapshot, bool, error)
	Remember(ctx context.Context, snapshot *models.Snapshot) error
}

// FinalizeRequest asks to close one settlement.
type FinalizeRequest struct {
	SettlementID string
	// CallerID is recorded as ClosedBy.
	CallerID string
	// IdempotencyToken is optional. Retrying with the same token returns the
	// original snapshot instead of ErrAlreadyClosed.
	IdempotencyToken string
}

// Finalizer closes settlements: validate, aggregate, simplify, verify, commit.
type Finalizer struct {
	store      Store
	validator  *Validator
	aggregator *Aggregator
	simplifier calculator.Simplifier
	cache      ReplayCache
	metrics    *Metrics
	now        func() time.Time

	inflight singleflight.Group
}

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithSimplifier replaces the default greedy strategy.
func WithSimplifier(s calculator.Simplifier) Option {
	return func(f *Finalizer) { f.simplifier = s }
}

// WithReplayCache enables the replay fast path.
func WithReplayCache(c ReplayCache) Option {
	return func(f *Finalizer) { f.cache = c }
}

// WithMetrics records outcomes into m.
func WithMetrics(m *Metrics) Option {
	return func(f *Finalizer) { f.metrics = m }
}

// WithNow overrides the clock used for ClosedAt.
func WithNow(now func() time.Time) Option {
	return func(f *Finalizer) { f.now = now }
}

// NewFinalizer constructs a Finalizer over store.
func NewFinalizer(store Store, opts ...Option) *Finalizer {
	f := &Finalizer{
		store:      store,
		validator:  NewValidator(store),
		aggregator: NewAggregator(store),
		simplifier: calculator.Greedy{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type result struct {
	snapshot *models.Snapshot
	replayed bool
}

// Finalize closes the settlement and returns its snapshot. Concurrent calls
// for the same settlement produce exactly one commit; the others fail with
// ErrAlreadyClosed unless they carry the winner's idempotency token.
func (f *Finalizer) Finalize(ctx context.Context, req FinalizeRequest) (*models.Snapshot, error) {
	start := time.Now()

	res, err := f.finalize(ctx, req)

	outcome := Kind(err)
	switch {
	case err == nil && res.replayed:
		outcome = "replayed"
	case err == nil:
		outcome = "closed"
	}
	f.metrics.observe(outcome, time.Since(start))

	if errors.Is(err, ErrInvariantViolation) {
		slog.Error("Invariant violation while finalizing settlement",
			"settlement_id", req.SettlementID,
			"error", err,
		)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Settlement finalized",
		"settlement_id", req.SettlementID,
		"replayed", res.replayed,
		"transfers", len(res.snapshot.Transfers),
	)
	return res.snapshot, nil
}

func (f *Finalizer) finalize(ctx context.Context, req FinalizeRequest) (result, error) {
	if req.IdempotencyToken == "" {
		snapshot, err := f.close(ctx, req)
		return result{snapshot: snapshot}, err
	}

	// Collapse concurrent retries of the same token inside this process. The
	// shared attempt must outlive whichever caller started it, so it runs
	// detached from that caller's cancellation and each caller waits on its own ctx.
	key := req.SettlementID + "\x00" + req.IdempotencyToken
	ch := f.inflight.DoChan(key, func() (interface{}, error) {
		return f.closeWithToken(context.WithoutCancel(ctx), req)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return result{}, res.Err
		}
		return res.Val.(result), nil
	case <-ctx.Done():
		return result{}, fmt.Errorf("%w: %w", ErrDataUnavailable, ctx.Err())
	}
}

func (f *Finalizer) closeWithToken(ctx context.Context, req FinalizeRequest) (result, error) {
	if snapshot, ok := f.lookupCache(ctx, req); ok {
		return result{snapshot: snapshot, replayed: true}, nil
	}

	snapshot, err := f.close(ctx, req)
	if errors.Is(err, ErrAlreadyClosed) {
		replay, ok, rerr := f.lookupPersisted(ctx, req)
		if rerr != nil {
			return result{}, rerr
		}
		if ok {
			return result{snapshot: replay, replayed: true}, nil
		}
	}
	if err != nil {
		return result{}, err
	}

	f.remember(ctx, snapshot)
	return result{snapshot: snapshot}, nil
}

// close runs one uncached finalization attempt.
func (f *Finalizer) close(ctx context.Context, req FinalizeRequest) (*models.Snapshot, error) {
	settlement, err := f.validator.Validate(ctx, req.SettlementID)
	if err != nil {
		return nil, err
	}

	balances, err := f.aggregator.Compute(ctx, req.SettlementID)
	if err != nil {
		return nil, err
	}

	transfers, err := f.simplify(balances)
	if err != nil {
		return nil, err
	}

	snapshot := &models.Snapshot{
		SettlementID:     req.SettlementID,
		ClosedAt:         f.now().Unix(),
		ClosedBy:         req.CallerID,
		IdempotencyToken: req.IdempotencyToken,
		Balances:         calculator.SortedBalances(balances, participantIDs(settlement)),
		Transfers:        transfers,
	}

	if err := f.store.CommitSnapshot(ctx, snapshot); err != nil {
		return nil, commitError(req.SettlementID, err)
	}
	return snapshot, nil
}

func commitError(settlementID string, err error) error {
	switch {
	case errors.Is(err, storage.ErrSettlementClosed):
		return fmt.Errorf("%w: %s closed concurrently", ErrAlreadyClosed, settlementID)
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, settlementID)
	default:
		return fmt.Errorf("%w: commit outcome unknown: %w", ErrDataUnavailable, err)
	}
}

func (f *Finalizer) lookupCache(ctx context.Context, req FinalizeRequest) (*models.Snapshot, bool) {
	if f.cache == nil {
		return nil, false
	}
	snapshot, ok, err := f.cache.Lookup(ctx, req.SettlementID, req.IdempotencyToken)
	if err != nil {
		slog.Warn("Replay cache lookup failed", "settlement_id", req.SettlementID, "error", err)
		return nil, false
	}
	return snapshot, ok
}

// lookupPersisted returns the stored snapshot when it was committed with the request's token.
func (f *Finalizer) lookupPersisted(ctx context.Context, req FinalizeRequest) (*models.Snapshot, bool, error) {
	snapshot, err := f.store.GetSnapshot(ctx, req.SettlementID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if snapshot.IdempotencyToken != req.IdempotencyToken {
		return nil, false, nil
	}
	f.remember(ctx, snapshot)
	return snapshot, true, nil
}

func (f *Finalizer) remember(ctx context.Context, snapshot *models.Snapshot) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Remember(ctx, snapshot); err != nil {
		slog.Warn("Replay cache store failed", "settlement_id", snapshot.SettlementID, "error", err)
	}
}

// Preview computes what closing the settlement now would record, without
// committing anything. The result can go stale as soon as it is returned.
func (f *Finalizer) Preview(ctx context.Context, settlementID string) ([]models.ParticipantBalance, []models.Transfer, error) {
	settlement, err := f.validator.Validate(ctx, settlementID)
	if err != nil {
		return nil, nil, err
	}
	balances, err := f.aggregator.Compute(ctx, settlementID)
	if err != nil {
		return nil, nil, err
	}
	transfers, err := f.simplify(balances)
	if err != nil {
		return nil, nil, err
	}
	return calculator.SortedBalances(balances, participantIDs(settlement)), transfers, nil
}

func participantIDs(s *models.Settlement) []string {
	ids := make([]string, len(s.Participants))
	for i, p := range s.Participants {
		ids[i] = p.ID
	}
	return ids
}

// simplify runs the strategy and rejects any output that does not settle balances exactly.
func (f *Finalizer) simplify(balances map[string]int64) ([]models.Transfer, error) {
	transfers, err := f.simplifier.Simplify(balances)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	if err := calculator.CheckTransfers(balances, transfers); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	return transfers, nil
}

package settlement

import (
	"context"
	"fmt"

	"github.com/mmynk/settlewise/internal/calculator"
	"github.com/mmynk/settlewise/internal/models"
)

// ShareReader fetches the balance-relevant expense rows of a settlement.
type ShareReader interface {
	FetchExpenseShares(ctx context.Context, settlementID string) ([]models.ExpenseShare, error)
}

// Aggregator computes net balances from persisted expenses.
type Aggregator struct {
	shares ShareReader
}

// NewAggregator constructs an Aggregator.
func NewAggregator(shares ShareReader) *Aggregator {
	return &Aggregator{shares: shares}
}

// Compute issues one read and returns each participant's signed balance in cents.
// Participants without any expense may be absent from the map.
func (a *Aggregator) Compute(ctx context.Context, settlementID string) (map[string]int64, error) {
	shares, err := a.shares.FetchExpenseShares(ctx, settlementID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	balances, err := calculator.ComputeBalances(shares)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	sum, err := calculator.CheckedSum(balances)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	if sum != 0 {
		return nil, fmt.Errorf("%w: balances sum to %d", ErrInvariantViolation, sum)
	}
	return balances, nil
}

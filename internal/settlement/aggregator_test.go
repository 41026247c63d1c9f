package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/models"
)

type sharesFunc func(ctx context.Context, id string) ([]models.ExpenseShare, error)

func (f sharesFunc) FetchExpenseShares(ctx context.Context, id string) ([]models.ExpenseShare, error) {
	return f(ctx, id)
}

func TestAggregator_Compute(t *testing.T) {
	t.Run("nets payers against shares", func(t *testing.T) {
		a := NewAggregator(sharesFunc(func(context.Context, string) ([]models.ExpenseShare, error) {
			return []models.ExpenseShare{
				{ExpenseID: "e1", PayerID: "a", AmountCents: 1000, ParticipantIDs: []string{"a", "b", "c"}},
				{ExpenseID: "e2", PayerID: "b", AmountCents: 600, ParticipantIDs: []string{"a", "b"}},
			}, nil
		}))
		got, err := a.Compute(context.Background(), "s1")
		require.NoError(t, err)
		// 1000/3 gives 334 to a, 333 to b and c.
		assert.Equal(t, map[string]int64{"a": 1000 - 334 - 300, "b": 600 - 333 - 300, "c": -333}, got)
	})

	t.Run("read failure", func(t *testing.T) {
		a := NewAggregator(sharesFunc(func(context.Context, string) ([]models.ExpenseShare, error) {
			return nil, errors.New("boom")
		}))
		_, err := a.Compute(context.Background(), "s1")
		assert.ErrorIs(t, err, ErrDataUnavailable)
	})

	t.Run("invalid expense", func(t *testing.T) {
		a := NewAggregator(sharesFunc(func(context.Context, string) ([]models.ExpenseShare, error) {
			return []models.ExpenseShare{{ExpenseID: "e1", PayerID: "a", AmountCents: 0, ParticipantIDs: []string{"a"}}}, nil
		}))
		_, err := a.Compute(context.Background(), "s1")
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})
}

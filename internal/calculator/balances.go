package calculator

import (
	"fmt"
	"sort"

	"github.com/mmynk/settlewise/internal/models"
)

// ComputeBalances aggregates expense shares into net balances per participant.
//
// Algorithm:
//   - the payer of each expense is credited the full amount
//   - each participant attached to the expense is debited their share
//   - net = paid - owed
//
// Only participants touched by at least one expense appear in the result.
// The values always sum to zero. A balance that would leave the int64 range
// fails with ErrOverflow instead of wrapping.
func ComputeBalances(shares []models.ExpenseShare) (map[string]int64, error) {
	balances := make(map[string]int64)

	for _, share := range shares {
		owed, err := ShareAmounts(share)
		if err != nil {
			return nil, fmt.Errorf("expense %s: %w", share.ExpenseID, err)
		}

		if balances[share.PayerID], err = addCents(balances[share.PayerID], share.AmountCents); err != nil {
			return nil, fmt.Errorf("expense %s: balance of %s: %w", share.ExpenseID, share.PayerID, err)
		}
		for participant, amount := range owed {
			if balances[participant], err = addCents(balances[participant], -amount); err != nil {
				return nil, fmt.Errorf("expense %s: balance of %s: %w", share.ExpenseID, participant, err)
			}
		}
	}

	return balances, nil
}

// SortedBalances converts a balance map into a slice ordered by participant ID.
// Every ID in participantIDs is included, with zero when it has no entry.
func SortedBalances(balances map[string]int64, participantIDs []string) []models.ParticipantBalance {
	all := make(map[string]int64, len(balances)+len(participantIDs))
	for _, id := range participantIDs {
		all[id] = 0
	}
	for id, amount := range balances {
		all[id] = amount
	}

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.ParticipantBalance, len(ids))
	for i, id := range ids {
		out[i] = models.ParticipantBalance{ParticipantID: id, AmountCents: all[id]}
	}
	return out
}

// CheckedSum returns the total of all balances, or ErrOverflow when a partial
// sum leaves the int64 range.
func CheckedSum(balances map[string]int64) (int64, error) {
	var total int64
	for id, amount := range balances {
		var err error
		if total, err = addCents(total, amount); err != nil {
			return 0, fmt.Errorf("summing balance of %s: %w", id, err)
		}
	}
	return total, nil
}

// addCents adds a and b, refusing to wrap around.
func addCents(a, b int64) (int64, error) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return c, nil
}

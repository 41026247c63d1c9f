package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mmynk/settlewise/internal/models"
)

// ErrInvalidExpense indicates an expense row that cannot be split without breaking conservation.
var ErrInvalidExpense = errors.New("invalid expense")

// ErrOverflow indicates cent arithmetic that would not fit in int64.
var ErrOverflow = fmt.Errorf("%w: amount overflows int64 cents", ErrInvalidExpense)

// SplitEvenly divides amount cents among the given participants.
//
// Participant IDs are de-duplicated and sorted. Everyone gets amount / n and
// the first amount % n participants in ID order get one extra cent, so the
// shares always add up to amount exactly.
func SplitEvenly(amount int64, participantIDs []string) (map[string]int64, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount %d", ErrInvalidExpense, amount)
	}
	ids := uniqueSorted(participantIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: must have at least one participant", ErrInvalidExpense)
	}

	n := int64(len(ids))
	base := amount / n
	remainder := amount % n

	shares := make(map[string]int64, len(ids))
	for i, id := range ids {
		share := base
		if int64(i) < remainder {
			share++
		}
		shares[id] = share
	}
	return shares, nil
}

// ShareAmounts returns what each participant owes for one expense.
// Exact shares are used when present, otherwise the amount is split evenly.
func ShareAmounts(share models.ExpenseShare) (map[string]int64, error) {
	if share.PayerID == "" {
		return nil, fmt.Errorf("%w: missing payer", ErrInvalidExpense)
	}
	if share.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidExpense, share.AmountCents)
	}
	if len(share.ExactShares) > 0 {
		return exactShares(share)
	}
	return SplitEvenly(share.AmountCents, share.ParticipantIDs)
}

func exactShares(share models.ExpenseShare) (map[string]int64, error) {
	var total int64
	shares := make(map[string]int64, len(share.ExactShares))
	for id, amount := range share.ExactShares {
		if id == "" {
			return nil, fmt.Errorf("%w: exact share without participant", ErrInvalidExpense)
		}
		if amount < 0 {
			return nil, fmt.Errorf("%w: negative share %d for %s", ErrInvalidExpense, amount, id)
		}
		var err error
		if total, err = addCents(total, amount); err != nil {
			return nil, err
		}
		shares[id] = amount
	}
	if total != share.AmountCents {
		return nil, fmt.Errorf("%w: exact shares sum to %d, amount is %d", ErrInvalidExpense, total, share.AmountCents)
	}
	return shares, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

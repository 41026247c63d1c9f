package calculator

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/mmynk/settlewise/internal/models"
)

// ErrUnbalanced indicates balances that do not sum to zero.
var ErrUnbalanced = errors.New("balances do not sum to zero")

// Simplifier turns zero-sum balances into transfers that discharge them.
type Simplifier interface {
	Simplify(balances map[string]int64) ([]models.Transfer, error)
}

// Greedy matches the largest creditor with the largest debtor until every balance is zero.
// Ties are broken by participant ID so the output is fully deterministic.
// The transfer count is low in practice but not guaranteed minimal.
type Greedy struct{}

var _ Simplifier = Greedy{}

// Simplify implements Simplifier.
func (Greedy) Simplify(balances map[string]int64) ([]models.Transfer, error) {
	sum, err := CheckedSum(balances)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnbalanced, err)
	}
	if sum != 0 {
		return nil, fmt.Errorf("%w: off by %d", ErrUnbalanced, sum)
	}

	creditors := &partyHeap{}
	debtors := &partyHeap{}
	for id, amount := range balances {
		if amount == math.MinInt64 {
			return nil, fmt.Errorf("%w: %w: balance of %s", ErrUnbalanced, ErrOverflow, id)
		}
		switch {
		case amount > 0:
			*creditors = append(*creditors, party{id: id, amount: amount})
		case amount < 0:
			*debtors = append(*debtors, party{id: id, amount: -amount})
		}
	}

	heap.Init(creditors)
	heap.Init(debtors)

	transfers := make([]models.Transfer, 0, max(creditors.Len()+debtors.Len()-1, 0))
	for creditors.Len() > 0 && debtors.Len() > 0 {
		c := heap.Pop(creditors).(party)
		d := heap.Pop(debtors).(party)

		amount := min(c.amount, d.amount)
		transfers = append(transfers, models.Transfer{
			From:        d.id,
			To:          c.id,
			AmountCents: amount,
		})

		c.amount -= amount
		d.amount -= amount
		if c.amount > 0 {
			heap.Push(creditors, c)
		}
		if d.amount > 0 {
			heap.Push(debtors, d)
		}
	}

	return transfers, nil
}

// Simplify runs the default greedy strategy.
func Simplify(balances map[string]int64) ([]models.Transfer, error) {
	return Greedy{}.Simplify(balances)
}

// CheckTransfers verifies that transfers are well formed and zero out balances.
// It lets callers trust any Simplifier implementation, not just Greedy.
func CheckTransfers(balances map[string]int64, transfers []models.Transfer) error {
	remaining := make(map[string]int64, len(balances))
	for id, amount := range balances {
		remaining[id] = amount
	}
	for i, t := range transfers {
		if t.AmountCents <= 0 {
			return fmt.Errorf("transfer %d: non-positive amount %d", i, t.AmountCents)
		}
		if t.From == t.To {
			return fmt.Errorf("transfer %d: %s pays itself", i, t.From)
		}
		var err error
		if remaining[t.From], err = addCents(remaining[t.From], t.AmountCents); err != nil {
			return fmt.Errorf("transfer %d: %w", i, err)
		}
		if remaining[t.To], err = addCents(remaining[t.To], -t.AmountCents); err != nil {
			return fmt.Errorf("transfer %d: %w", i, err)
		}
	}
	for id, amount := range remaining {
		if amount != 0 {
			return fmt.Errorf("participant %s left with %d after transfers", id, amount)
		}
	}
	return nil
}

type party struct {
	id     string
	amount int64
}

// partyHeap is a max-heap by amount, then ascending ID.
type partyHeap []party

func (h partyHeap) Len() int { return len(h) }

func (h partyHeap) Less(i, j int) bool {
	if h[i].amount != h[j].amount {
		return h[i].amount > h[j].amount
	}
	return h[i].id < h[j].id
}

func (h partyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *partyHeap) Push(x any) { *h = append(*h, x.(party)) }

func (h *partyHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}

package models

// Expense represents a payment made by one participant that is shared by others.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// SettlementID is the settlement this expense belongs to.
	SettlementID string

	// Description is the human-readable label (e.g., "Dinner", "Taxi").
	Description string

	// PayerID is the participant who paid the full amount.
	PayerID string

	// AmountCents is the amount paid in minor currency units. Always positive.
	AmountCents int64

	// ParticipantIDs are the participants sharing this expense.
	// Only these participants owe a share, not the whole settlement.
	ParticipantIDs []string

	// ExactShares optionally fixes each participant's share in cents.
	// When empty, the amount is split evenly among ParticipantIDs.
	ExactShares map[string]int64

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// ExpenseShare is the minimal view of an expense needed to compute balances.
type ExpenseShare struct {
	ExpenseID      string
	PayerID        string
	AmountCents    int64
	ParticipantIDs []string
	ExactShares    map[string]int64
}

// Share returns the balance-relevant part of the expense.
func (e *Expense) Share() ExpenseShare {
	return ExpenseShare{
		ExpenseID:      e.ID,
		PayerID:        e.PayerID,
		AmountCents:    e.AmountCents,
		ParticipantIDs: e.ParticipantIDs,
		ExactShares:    e.ExactShares,
	}
}

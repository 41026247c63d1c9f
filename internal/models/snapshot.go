package models

// ParticipantBalance is one participant's net position in cents.
// Positive means the participant is owed money, negative means they owe money.
type ParticipantBalance struct {
	ParticipantID string `json:"participant_id"`
	AmountCents   int64  `json:"amount_cents"`
}

// Transfer is one recommended payment from a debtor to a creditor.
type Transfer struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountCents int64  `json:"amount_cents"`
}

// Snapshot is the immutable record produced when a settlement closes.
// It is written once and never regenerated.
type Snapshot struct {
	SettlementID string `json:"settlement_id"`

	// ClosedAt is the Unix timestamp captured once per close.
	ClosedAt int64 `json:"closed_at"`

	// ClosedBy is the user ID that closed the settlement.
	ClosedBy string `json:"closed_by"`

	// IdempotencyToken is the caller-supplied token of the winning close request, if any.
	IdempotencyToken string `json:"idempotency_token,omitempty"`

	// Balances are ordered by participant ID and sum to zero.
	Balances []ParticipantBalance `json:"balances"`

	// Transfers are in the order the simplifier emitted them.
	Transfers []Transfer `json:"transfers"`
}

// BalanceMap returns the balances keyed by participant ID.
func (s *Snapshot) BalanceMap() map[string]int64 {
	m := make(map[string]int64, len(s.Balances))
	for _, b := range s.Balances {
		m[b.ParticipantID] = b.AmountCents
	}
	return m
}

package models

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	// StatusOpen accepts new participants and expenses.
	StatusOpen SettlementStatus = "open"

	// StatusClosed is terminal. The settlement's balances and transfers
	// live in its Snapshot.
	StatusClosed SettlementStatus = "closed"
)

// Settlement represents a group expense-sharing session that is eventually closed.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// Name is the display name (e.g., "Lisbon trip").
	Name string

	// Status is open until the settlement is finalized.
	Status SettlementStatus

	// CreatedBy is the user ID who created the settlement.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the settlement was created.
	CreatedAt int64

	// ClosedAt is the Unix timestamp of the close, zero while open.
	ClosedAt int64

	// Participants is the fixed participant set, ordered by ID.
	Participants []Participant
}

// IsClosed reports whether the settlement has been finalized.
func (s *Settlement) IsClosed() bool {
	return s.Status == StatusClosed
}

// HasMember reports whether userID created the settlement or is linked to one of its participants.
func (s *Settlement) HasMember(userID string) bool {
	if userID == "" {
		return false
	}
	if s.CreatedBy == userID {
		return true
	}
	for _, p := range s.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Participant represents one person taking part in a settlement.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string

	// SettlementID is the settlement this participant belongs to.
	SettlementID string

	// Name is the display name of the participant.
	Name string

	// UserID optionally links the participant to a registered user.
	UserID string
}

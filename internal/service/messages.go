package service

// Wire messages for SettlementService and AuthService. Amounts are always
// sent as integer cents plus a two-decimal string; inputs accept the string.

type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id,omitempty"`
}

type ParticipantInput struct {
	Name   string `json:"name" validate:"required,max=100"`
	UserID string `json:"user_id,omitempty" validate:"max=64"`
}

type Settlement struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       string        `json:"status"`
	CreatedBy    string        `json:"created_by"`
	CreatedAt    int64         `json:"created_at"`
	ClosedAt     int64         `json:"closed_at,omitempty"`
	Participants []Participant `json:"participants"`
}

type Expense struct {
	ID             string           `json:"id"`
	Description    string           `json:"description"`
	PayerID        string           `json:"payer_id"`
	AmountCents    int64            `json:"amount_cents"`
	Amount         string           `json:"amount"`
	ParticipantIDs []string         `json:"participant_ids"`
	ExactShares    map[string]int64 `json:"exact_shares,omitempty"`
	CreatedAt      int64            `json:"created_at"`
}

type Balance struct {
	ParticipantID string `json:"participant_id"`
	AmountCents   int64  `json:"amount_cents"`
	Amount        string `json:"amount"`
}

type Transfer struct {
	From        string `json:"from"`
	To          string `json:"to"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

type Snapshot struct {
	SettlementID string     `json:"settlement_id"`
	ClosedAt     int64      `json:"closed_at"`
	ClosedBy     string     `json:"closed_by"`
	Balances     []Balance  `json:"balances"`
	Transfers    []Transfer `json:"transfers"`
}

type CreateSettlementRequest struct {
	Name         string             `json:"name" validate:"required,max=200"`
	Participants []ParticipantInput `json:"participants" validate:"dive"`
}

type CreateSettlementResponse struct {
	Settlement Settlement `json:"settlement"`
}

type GetSettlementRequest struct {
	SettlementID string `json:"settlement_id" validate:"required"`
}

type GetSettlementResponse struct {
	Settlement Settlement `json:"settlement"`
}

type ListSettlementsRequest struct{}

type ListSettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
}

type AddParticipantsRequest struct {
	SettlementID string             `json:"settlement_id" validate:"required"`
	Participants []ParticipantInput `json:"participants" validate:"required,min=1,dive"`
}

type AddParticipantsResponse struct {
	Participants []Participant `json:"participants"`
}

// AddExpenseRequest splits Amount evenly across ParticipantIDs unless
// ExactShares assigns every share explicitly.
type AddExpenseRequest struct {
	SettlementID   string            `json:"settlement_id" validate:"required"`
	Description    string            `json:"description" validate:"max=200"`
	PayerID        string            `json:"payer_id" validate:"required"`
	Amount         string            `json:"amount" validate:"required"`
	ParticipantIDs []string          `json:"participant_ids,omitempty" validate:"required_without=ExactShares,dive,required"`
	ExactShares    map[string]string `json:"exact_shares,omitempty" validate:"required_without=ParticipantIDs"`
}

type AddExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type ListExpensesRequest struct {
	SettlementID string `json:"settlement_id" validate:"required"`
}

type ListExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	SettlementID string `json:"settlement_id" validate:"required"`
	ExpenseID    string `json:"expense_id" validate:"required"`
}

type DeleteExpenseResponse struct{}

type PreviewBalancesRequest struct {
	SettlementID string `json:"settlement_id" validate:"required"`
}

type PreviewBalancesResponse struct {
	Balances  []Balance  `json:"balances"`
	Transfers []Transfer `json:"transfers"`
}

// CloseSettlementRequest may carry the idempotency token here or in the
// Idempotency-Key header.
type CloseSettlementRequest struct {
	SettlementID     string `json:"settlement_id" validate:"required"`
	IdempotencyToken string `json:"idempotency_token,omitempty" validate:"max=200"`
}

type CloseSettlementResponse struct {
	Snapshot Snapshot `json:"snapshot"`
}

type GetSnapshotRequest struct {
	SettlementID string `json:"settlement_id" validate:"required"`
}

type GetSnapshotResponse struct {
	Snapshot Snapshot `json:"snapshot"`
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Password    string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User User `json:"user"`
}

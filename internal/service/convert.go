package service

import (
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/money"
)

func toSettlement(s *models.Settlement) Settlement {
	out := Settlement{
		ID:           s.ID,
		Name:         s.Name,
		Status:       string(s.Status),
		CreatedBy:    s.CreatedBy,
		CreatedAt:    s.CreatedAt,
		ClosedAt:     s.ClosedAt,
		Participants: toParticipants(s.Participants),
	}
	return out
}

func toParticipants(participants []models.Participant) []Participant {
	out := make([]Participant, len(participants))
	for i, p := range participants {
		out[i] = Participant{ID: p.ID, Name: p.Name, UserID: p.UserID}
	}
	return out
}

func fromParticipantInputs(inputs []ParticipantInput) []models.Participant {
	out := make([]models.Participant, len(inputs))
	for i, p := range inputs {
		out[i] = models.Participant{Name: p.Name, UserID: p.UserID}
	}
	return out
}

func toExpense(e *models.Expense) Expense {
	participantIDs := e.ParticipantIDs
	if participantIDs == nil {
		participantIDs = []string{}
	}
	return Expense{
		ID:             e.ID,
		Description:    e.Description,
		PayerID:        e.PayerID,
		AmountCents:    e.AmountCents,
		Amount:         money.FormatCents(e.AmountCents),
		ParticipantIDs: participantIDs,
		ExactShares:    e.ExactShares,
		CreatedAt:      e.CreatedAt,
	}
}

func toBalances(balances []models.ParticipantBalance) []Balance {
	out := make([]Balance, len(balances))
	for i, b := range balances {
		out[i] = Balance{ParticipantID: b.ParticipantID, AmountCents: b.AmountCents, Amount: money.FormatCents(b.AmountCents)}
	}
	return out
}

func toTransfers(transfers []models.Transfer) []Transfer {
	out := make([]Transfer, len(transfers))
	for i, t := range transfers {
		out[i] = Transfer{From: t.From, To: t.To, AmountCents: t.AmountCents, Amount: money.FormatCents(t.AmountCents)}
	}
	return out
}

func toSnapshot(s *models.Snapshot) Snapshot {
	return Snapshot{
		SettlementID: s.SettlementID,
		ClosedAt:     s.ClosedAt,
		ClosedBy:     s.ClosedBy,
		Balances:     toBalances(s.Balances),
		Transfers:    toTransfers(s.Transfers),
	}
}

func toUser(u *models.User) User {
	return User{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt}
}

package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// SettlementReader loads a settlement with its participants.
type SettlementReader interface {
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
}

// Validator checks the preconditions for closing a settlement.
type Validator struct {
	settlements SettlementReader
}

// NewValidator constructs a Validator.
func NewValidator(settlements SettlementReader) *Validator {
	return &Validator{settlements: settlements}
}

// Validate returns the settlement when it exists, is open and has at least
// one participant. A settlement without expenses is valid.
func (v *Validator) Validate(ctx context.Context, settlementID string) (*models.Settlement, error) {
	s, err := v.settlements.GetSettlement(ctx, settlementID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, settlementID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if s.IsClosed() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyClosed, settlementID)
	}
	if len(s.Participants) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoParticipants, settlementID)
	}
	return s, nil
}

package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

type settlementFunc func(ctx context.Context, id string) (*models.Settlement, error)

func (f settlementFunc) GetSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	return f(ctx, id)
}

func TestValidator_Validate(t *testing.T) {
	open := &models.Settlement{ID: "s1", Status: models.StatusOpen, Participants: []models.Participant{{ID: "a"}}}

	tests := []struct {
		name    string
		load    settlementFunc
		wantErr error
	}{
		{
			name: "open with participants",
			load: func(context.Context, string) (*models.Settlement, error) { return open, nil },
		},
		{
			name:    "missing",
			load:    func(context.Context, string) (*models.Settlement, error) { return nil, storage.ErrNotFound },
			wantErr: ErrNotFound,
		},
		{
			name:    "store failure",
			load:    func(context.Context, string) (*models.Settlement, error) { return nil, errors.New("timeout") },
			wantErr: ErrDataUnavailable,
		},
		{
			name: "closed",
			load: func(context.Context, string) (*models.Settlement, error) {
				return &models.Settlement{ID: "s1", Status: models.StatusClosed, Participants: open.Participants}, nil
			},
			wantErr: ErrAlreadyClosed,
		},
		{
			name: "no participants",
			load: func(context.Context, string) (*models.Settlement, error) {
				return &models.Settlement{ID: "s1", Status: models.StatusOpen}, nil
			},
			wantErr: ErrNoParticipants,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewValidator(tt.load).Validate(context.Background(), "s1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, open, got)
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "ok", Kind(nil))
	assert.Equal(t, "not_found", Kind(ErrNotFound))
	assert.Equal(t, "invariant_violation", Kind(errors.Join(errors.New("x"), ErrInvariantViolation)))
	assert.Equal(t, "error", Kind(errors.New("other")))
}

package calculator

import (
	"errors"
	"testing"

	"github.com/mmynk/settlewise/internal/models"
)

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		participants []string
		wantErr      bool
		want         map[string]int64
	}{
		{
			name:         "divides evenly",
			amount:       3000,
			participants: []string{"a", "b", "c"},
			want:         map[string]int64{"a": 1000, "b": 1000, "c": 1000},
		},
		{
			name:         "remainder goes to lowest ids first",
			amount:       1000,
			participants: []string{"c", "a", "b"},
			want:         map[string]int64{"a": 334, "b": 333, "c": 333},
		},
		{
			name:         "two cent remainder",
			amount:       101,
			participants: []string{"d", "b", "a"},
			want:         map[string]int64{"a": 34, "b": 34, "d": 33},
		},
		{
			name:         "duplicates collapse",
			amount:       600,
			participants: []string{"b", "c", "b"},
			want:         map[string]int64{"b": 300, "c": 300},
		},
		{
			name:         "fewer cents than participants",
			amount:       2,
			participants: []string{"a", "b", "c"},
			want:         map[string]int64{"a": 1, "b": 1, "c": 0},
		},
		{
			name:         "no participants should error",
			amount:       100,
			participants: []string{},
			wantErr:      true,
		},
		{
			name:         "negative amount should error",
			amount:       -5,
			participants: []string{"a"},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitEvenly(tt.amount, tt.participants)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitEvenly() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidExpense) {
					t.Errorf("expected ErrInvalidExpense, got %v", err)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d shares, want %d: %v", len(got), len(tt.want), got)
			}
			var total int64
			for id, want := range tt.want {
				if got[id] != want {
					t.Errorf("share[%s] = %d, want %d", id, got[id], want)
				}
				total += got[id]
			}
			if total != tt.amount {
				t.Errorf("shares sum to %d, want %d", total, tt.amount)
			}
		})
	}
}

func TestShareAmounts(t *testing.T) {
	tests := []struct {
		name    string
		share   models.ExpenseShare
		wantErr bool
		want    map[string]int64
	}{
		{
			name: "even split",
			share: models.ExpenseShare{
				PayerID: "a", AmountCents: 900, ParticipantIDs: []string{"a", "b", "c"},
			},
			want: map[string]int64{"a": 300, "b": 300, "c": 300},
		},
		{
			name: "exact shares win over participant list",
			share: models.ExpenseShare{
				PayerID:        "a",
				AmountCents:    1000,
				ParticipantIDs: []string{"a", "b"},
				ExactShares:    map[string]int64{"a": 250, "b": 750},
			},
			want: map[string]int64{"a": 250, "b": 750},
		},
		{
			name: "exact shares must add up",
			share: models.ExpenseShare{
				PayerID:     "a",
				AmountCents: 1000,
				ExactShares: map[string]int64{"a": 250, "b": 700},
			},
			wantErr: true,
		},
		{
			name: "negative exact share",
			share: models.ExpenseShare{
				PayerID:     "a",
				AmountCents: 100,
				ExactShares: map[string]int64{"a": 200, "b": -100},
			},
			wantErr: true,
		},
		{
			name:    "zero amount",
			share:   models.ExpenseShare{PayerID: "a", AmountCents: 0, ParticipantIDs: []string{"a"}},
			wantErr: true,
		},
		{
			name:    "missing payer",
			share:   models.ExpenseShare{AmountCents: 100, ParticipantIDs: []string{"a"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShareAmounts(tt.share)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ShareAmounts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			for id, want := range tt.want {
				if got[id] != want {
					t.Errorf("share[%s] = %d, want %d", id, got[id], want)
				}
			}
		})
	}
}

package calculator

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"strconv"
	"testing"

	"github.com/mmynk/settlewise/internal/models"
)

func TestSimplify(t *testing.T) {
	tests := []struct {
		name     string
		balances map[string]int64
		wantErr  bool
		want     []models.Transfer
	}{
		{
			name:     "three participants",
			balances: map[string]int64{"A": 2000, "B": 300, "C": -2300},
			want: []models.Transfer{
				{From: "C", To: "A", AmountCents: 2000},
				{From: "C", To: "B", AmountCents: 300},
			},
		},
		{
			name:     "empty map",
			balances: map[string]int64{},
			want:     []models.Transfer{},
		},
		{
			name:     "all zero",
			balances: map[string]int64{"A": 0, "B": 0},
			want:     []models.Transfer{},
		},
		{
			name:     "ties broken by id",
			balances: map[string]int64{"b": 500, "a": 500, "y": -500, "x": -500},
			want: []models.Transfer{
				{From: "x", To: "a", AmountCents: 500},
				{From: "y", To: "b", AmountCents: 500},
			},
		},
		{
			name:     "partial remainder is re-ranked",
			balances: map[string]int64{"A": 1000, "B": 800, "C": -1500, "D": -300},
			want: []models.Transfer{
				{From: "C", To: "A", AmountCents: 1000},
				{From: "C", To: "B", AmountCents: 500},
				{From: "D", To: "B", AmountCents: 300},
			},
		},
		{
			name:     "one debtor many creditors",
			balances: map[string]int64{"A": 100, "B": 200, "C": 300, "D": -600},
			want: []models.Transfer{
				{From: "D", To: "C", AmountCents: 300},
				{From: "D", To: "B", AmountCents: 200},
				{From: "D", To: "A", AmountCents: 100},
			},
		},
		{
			name:     "unbalanced input",
			balances: map[string]int64{"A": 100, "B": -99},
			wantErr:  true,
		},
		{
			name:     "sum that only balances after wrapping",
			balances: map[string]int64{"A": math.MaxInt64, "B": math.MaxInt64, "C": 2},
			wantErr:  true,
		},
		{
			name:     "debt without a positive counterpart",
			balances: map[string]int64{"A": math.MinInt64, "B": math.MaxInt64, "C": 1},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Simplify(tt.balances)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Simplify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnbalanced) {
					t.Errorf("expected ErrUnbalanced, got %v", err)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Simplify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSimplify_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 300; round++ {
		balances := randomBalances(rng, 2+rng.Intn(10))

		transfers, err := Simplify(balances)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if err := CheckTransfers(balances, transfers); err != nil {
			t.Fatalf("round %d: %v (balances %v, transfers %v)", round, err, balances, transfers)
		}

		nonZero := 0
		for _, amount := range balances {
			if amount != 0 {
				nonZero++
			}
		}
		if nonZero > 0 && len(transfers) > nonZero-1 {
			t.Errorf("round %d: %d transfers for %d non-zero participants", round, len(transfers), nonZero)
		}

		again, err := Simplify(balances)
		if err != nil {
			t.Fatalf("round %d: second run: %v", round, err)
		}
		if !reflect.DeepEqual(transfers, again) {
			t.Errorf("round %d: output not deterministic", round)
		}
	}
}

func TestCheckTransfers(t *testing.T) {
	balances := map[string]int64{"A": 100, "B": -100}

	if err := CheckTransfers(balances, []models.Transfer{{From: "B", To: "A", AmountCents: 100}}); err != nil {
		t.Errorf("valid transfers rejected: %v", err)
	}
	if err := CheckTransfers(balances, []models.Transfer{{From: "B", To: "A", AmountCents: 60}}); err == nil {
		t.Error("expected error for incomplete transfers")
	}
	if err := CheckTransfers(balances, []models.Transfer{{From: "A", To: "A", AmountCents: 100}}); err == nil {
		t.Error("expected error for self transfer")
	}
	if err := CheckTransfers(map[string]int64{}, []models.Transfer{{From: "A", To: "B", AmountCents: 0}}); err == nil {
		t.Error("expected error for zero transfer")
	}

	wrapping := []models.Transfer{
		{From: "B", To: "A", AmountCents: math.MaxInt64},
		{From: "B", To: "A", AmountCents: math.MaxInt64},
		{From: "B", To: "A", AmountCents: 3},
	}
	if err := CheckTransfers(map[string]int64{"A": 1, "B": -1}, wrapping); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow for transfers that only settle after wrapping, got %v", err)
	}
}

func randomBalances(rng *rand.Rand, n int) map[string]int64 {
	balances := make(map[string]int64, n)
	var sum int64
	for i := 0; i < n-1; i++ {
		amount := rng.Int63n(20001) - 10000
		balances["p"+strconv.Itoa(i)] = amount
		sum += amount
	}
	balances["p"+strconv.Itoa(n-1)] = -sum
	return balances
}

package money

import (
	"errors"
	"testing"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{in: "30", want: 3000},
		{in: "30.00", want: 3000},
		{in: "30.5", want: 3050},
		{in: " 0.01 ", want: 1},
		{in: "-12.34", want: -1234},
		{in: "1.000", want: 100},
		{in: "92233720368547758.07", want: 9223372036854775807},
		{in: "0.001", wantErr: ErrSubCent},
		{in: "1.999", wantErr: ErrSubCent},
		{in: "92233720368547758.08", wantErr: ErrOutOfRange},
		{in: "", wantErr: ErrInvalidAmount},
		{in: "ten", wantErr: ErrInvalidAmount},
		{in: "1,50", wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseCents(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCents(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCents(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatCents(t *testing.T) {
	tests := map[int64]string{
		0:     "0.00",
		1:     "0.01",
		3000:  "30.00",
		-1050: "-10.50",
		-5:    "-0.05",
	}
	for cents, want := range tests {
		if got := FormatCents(cents); got != want {
			t.Errorf("FormatCents(%d) = %q, want %q", cents, got, want)
		}
	}
}

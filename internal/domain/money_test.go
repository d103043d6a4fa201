package domain

import "testing"

func TestDollarsToCents(t *testing.T) {
	tests := []struct {
		name    string
		in      float64
		want    int64
		wantErr bool
	}{
		{"whole dollars", 20.0, 2000, false},
		{"two decimals", 20.31, 2031, false},
		{"one decimal", 0.1, 10, false},
		{"zero", 0, 0, false},
		{"three decimals", 20.311, 0, true},
		{"sub-cent", 0.001, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DollarsToCents(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRoundToCents(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{20.31, 2031},
		{20.314, 2031},
		{20.315, 2032},
		{17.123456, 1712},
		{0, 0},
	}

	for _, tt := range tests {
		if got := RoundToCents(tt.in); got != tt.want {
			t.Errorf("RoundToCents(%v): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestCentsToDollars(t *testing.T) {
	if got := CentsToDollars(2031); got != 20.31 {
		t.Errorf("expected 20.31, got %v", got)
	}
	if got := CentsToDollars(0); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

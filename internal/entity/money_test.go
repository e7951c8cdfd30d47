package domain

import "testing"

func TestConvertMinor(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		rate   int64
		want   int64
	}{
		{"identity rate", 1234, 1_000_000, 1234},
		{"eur to usd", 1000, 1_100_000, 1100},
		{"rounds half up", 1, 1_500_000, 2}, // 1.5 -> 2
		{"rounds down below half", 1, 1_400_000, 1},
		{"aed to usd", 1000, 272_300, 272},
		{"zero amount", 0, 1_100_000, 0},
		{"negative amount clamps", -500, 1_100_000, 0},
		{"non-positive rate clamps", 1000, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConvertMinor(tc.amount, tc.rate); got != tc.want {
				t.Fatalf("ConvertMinor(%d, %d) = %d, want %d", tc.amount, tc.rate, got, tc.want)
			}
		})
	}
}

func TestClampMinor(t *testing.T) {
	if got := ClampMinor(-1); got != 0 {
		t.Fatalf("ClampMinor(-1) = %d, want 0", got)
	}
	if got := ClampMinor(42); got != 42 {
		t.Fatalf("ClampMinor(42) = %d, want 42", got)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Minor: 100, Currency: "USD"}).Validate(); err != nil {
		t.Fatalf("valid money: %v", err)
	}
	if err := (Money{Minor: -1, Currency: "USD"}).Validate(); err == nil {
		t.Fatal("negative minor accepted")
	}
	if err := (Money{Minor: 100}).Validate(); err == nil {
		t.Fatal("missing currency accepted")
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/skymall/checkout-api/internal/entity"
)

func eurAed() []domain.CurrencyRate {
	fetched := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []domain.CurrencyRate{
		// 1 EUR = 1.10 USD, 1 AED = 0.2723 USD
		{CurrencyCode: "EUR", RateMicros: 1_100_000, FetchedAt: fetched},
		{CurrencyCode: "AED", RateMicros: 272_300, FetchedAt: fetched},
	}
}

func TestCurrencyRateStore_Convert(t *testing.T) {
	store := newRateStore(t, eurAed()...)

	cases := []struct {
		name     string
		amount   int64
		from, to string
		want     int64
	}{
		{"same currency", 1234, "USD", "USD", 1234},
		{"quote to base", 1000, "EUR", "USD", 1100},
		{"base to quote", 1100, "USD", "EUR", 1000},
		{"rounds half up", 1, "EUR", "USD", 1}, // 1.1 -> 1
		{"cross via base", 1000, "EUR", "AED", 4040},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.Convert(tc.amount, tc.from, tc.to)
			if err != nil {
				t.Fatalf("convert: %v", err)
			}
			if got != tc.want {
				t.Fatalf("convert %d %s->%s = %d, want %d", tc.amount, tc.from, tc.to, got, tc.want)
			}
		})
	}

	t.Run("unknown currency", func(t *testing.T) {
		if _, err := store.Convert(100, "USD", "JPY"); !errors.Is(err, domain.ErrUnsupportedCurrency) {
			t.Fatalf("err = %v, want ErrUnsupportedCurrency", err)
		}
	})
}

func TestCurrencyRateStore_WarmFromRepo(t *testing.T) {
	repo := &fakeRateRepo{rates: eurAed()}
	store := NewCurrencyRateStore("USD", &fakeRateSource{err: errors.New("provider down")}, repo, time.Hour)
	if err := store.Warm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if _, ok := store.Get("EUR"); !ok {
		t.Fatal("EUR missing after warm")
	}

	// Provider stays down; the warmed table keeps serving.
	got, err := store.Convert(1000, "EUR", "USD")
	if err != nil || got != 1100 {
		t.Fatalf("convert after failed refresh = %d, %v", got, err)
	}
}

func TestCurrencyRateStore_Snapshot(t *testing.T) {
	store := newRateStore(t, eurAed()...)
	rates, oldest := store.Snapshot()
	if len(rates) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(rates))
	}
	if oldest.IsZero() {
		t.Fatal("oldest fetch time is zero")
	}
}

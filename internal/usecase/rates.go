package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/logging"
)

// CurrencyRateStore serves exchange rates from memory and refreshes them on an
// independent schedule. Stale rates are served rather than blocking checkout;
// a refresh failure is degraded operation, not an outage.
type CurrencyRateStore struct {
	mu    sync.RWMutex
	rates map[string]domain.CurrencyRate

	base    string
	source  RateSource
	repo    RateRepo
	refresh time.Duration
}

func NewCurrencyRateStore(base string, source RateSource, repo RateRepo, refresh time.Duration) *CurrencyRateStore {
	return &CurrencyRateStore{
		rates:   map[string]domain.CurrencyRate{},
		base:    base,
		source:  source,
		repo:    repo,
		refresh: refresh,
	}
}

func (s *CurrencyRateStore) BaseCurrency() string { return s.base }

// Warm loads the last persisted rates so restarts do not start empty.
func (s *CurrencyRateStore) Warm(ctx context.Context) error {
	rates, err := s.repo.All(ctx)
	if err != nil {
		return fmt.Errorf("warm rates: %w", err)
	}
	s.put(rates)
	return nil
}

// Run refreshes on an interval until ctx is cancelled. Never blocks request
// paths; requests read whatever is cached.
func (s *CurrencyRateStore) Run(ctx context.Context) {
	l := logging.New("rates")
	t := time.NewTicker(s.refresh)
	defer t.Stop()

	s.refreshOnce(ctx, l)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.refreshOnce(ctx, l)
		}
	}
}

func (s *CurrencyRateStore) refreshOnce(ctx context.Context, l *slog.Logger) {
	rates, err := s.source.Fetch(ctx, s.base)
	if err != nil {
		l.Warn("rate refresh failed, serving stale rates", "err", err)
		return
	}
	s.put(rates)
	if err := s.repo.UpsertAll(ctx, rates); err != nil {
		l.Warn("rate persist failed", "err", err)
	}
	l.Info("rates refreshed", "count", len(rates))
}

func (s *CurrencyRateStore) put(rates []domain.CurrencyRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rates {
		s.rates[r.CurrencyCode] = r
	}
}

func (s *CurrencyRateStore) Get(code string) (domain.CurrencyRate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rates[code]
	return r, ok
}

// Snapshot returns all cached rates plus the oldest fetch time.
func (s *CurrencyRateStore) Snapshot() ([]domain.CurrencyRate, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CurrencyRate, 0, len(s.rates))
	var oldest time.Time
	for _, r := range s.rates {
		out = append(out, r)
		if oldest.IsZero() || r.FetchedAt.Before(oldest) {
			oldest = r.FetchedAt
		}
	}
	return out, oldest
}

// Convert goes through the base currency with integer micro-rates, rounding
// half-up at each step.
func (s *CurrencyRateStore) Convert(amountMinor int64, from, to string) (int64, error) {
	if from == to {
		return amountMinor, nil
	}
	inBase := amountMinor
	if from != s.base {
		r, ok := s.Get(from)
		if !ok {
			return 0, fmt.Errorf("no rate for %s: %w", from, domain.ErrUnsupportedCurrency)
		}
		inBase = domain.ConvertMinor(amountMinor, r.RateMicros)
	}
	if to == s.base {
		return inBase, nil
	}
	r, ok := s.Get(to)
	if !ok {
		return 0, fmt.Errorf("no rate for %s: %w", to, domain.ErrUnsupportedCurrency)
	}
	if r.RateMicros == 0 {
		return 0, fmt.Errorf("zero rate for %s: %w", to, domain.ErrUnsupportedCurrency)
	}
	// inBase / rate, rounded half-up, still integer.
	return (inBase*1_000_000 + r.RateMicros/2) / r.RateMicros, nil
}

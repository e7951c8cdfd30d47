package collab

import (
	"context"
	"fmt"
	"time"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

// RateProvider pulls quotes from the FX feed. Rates arrive as micro-rates
// (units of base currency per unit of quote currency, scaled by 1e6) so the
// conversion math downstream stays in integers.
type RateProvider struct{ httpClient }

func NewRateProvider(baseURL string, timeout time.Duration) *RateProvider {
	return &RateProvider{newHTTPClient(baseURL, timeout)}
}

func (p *RateProvider) Fetch(ctx context.Context, baseCurrency string) ([]domain.CurrencyRate, error) {
	var resp struct {
		Rates []struct {
			Currency   string `json:"currency"`
			RateMicros int64  `json:"rateMicros"`
		} `json:"rates"`
	}
	if err := p.getJSON(ctx, fmt.Sprintf("/v1/rates?base=%s", baseCurrency), &resp); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]domain.CurrencyRate, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		out = append(out, domain.CurrencyRate{
			CurrencyCode: r.Currency,
			RateMicros:   r.RateMicros,
			FetchedAt:    now,
		})
	}
	return out, nil
}

var _ usecase.RateSource = (*RateProvider)(nil)

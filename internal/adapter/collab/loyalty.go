package collab

import (
	"context"
	"time"

	"github.com/skymall/checkout-api/internal/usecase"
)

type LoyaltyService struct{ httpClient }

func NewLoyaltyService(baseURL string, timeout time.Duration) *LoyaltyService {
	return &LoyaltyService{newHTTPClient(baseURL, timeout)}
}

func (s *LoyaltyService) RedemptionValue(ctx context.Context, userID string, miles int64, currency string) (int64, error) {
	var resp struct {
		ValueMinor int64 `json:"valueMinor"`
	}
	req := map[string]any{"userId": userID, "miles": miles, "currency": currency}
	if err := s.postJSON(ctx, "/v1/redemptions/quote", req, &resp); err != nil {
		return 0, err
	}
	return resp.ValueMinor, nil
}

func (s *LoyaltyService) Redeem(ctx context.Context, userID string, miles int64, reference string) error {
	req := map[string]any{"userId": userID, "miles": miles, "reference": reference}
	return s.postJSON(ctx, "/v1/redemptions", req, nil)
}

var _ usecase.LoyaltyClient = (*LoyaltyService)(nil)

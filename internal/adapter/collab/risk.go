package collab

import (
	"context"
	"time"

	"github.com/skymall/checkout-api/internal/usecase"
)

type RiskService struct{ httpClient }

func NewRiskService(baseURL string, timeout time.Duration) *RiskService {
	return &RiskService{newHTTPClient(baseURL, timeout)}
}

func (s *RiskService) Score(ctx context.Context, userID string, amountMinor int64, methodType string, attrs map[string]string) (float64, error) {
	var resp struct {
		Score float64 `json:"score"`
	}
	req := map[string]any{
		"userId":      userID,
		"amountMinor": amountMinor,
		"methodType":  methodType,
		"attributes":  attrs,
	}
	if err := s.postJSON(ctx, "/v1/scores", req, &resp); err != nil {
		return 0, err
	}
	return resp.Score, nil
}

var _ usecase.RiskScorer = (*RiskService)(nil)

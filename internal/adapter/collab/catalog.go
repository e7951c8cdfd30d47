package collab

import (
	"context"
	"time"

	"github.com/skymall/checkout-api/internal/usecase"
)

type CatalogService struct{ httpClient }

func NewCatalogService(baseURL string, timeout time.Duration) *CatalogService {
	return &CatalogService{newHTTPClient(baseURL, timeout)}
}

func (s *CatalogService) Prices(ctx context.Context, skus []string) (map[string]usecase.CatalogItem, error) {
	var resp struct {
		Items []struct {
			SKU              string `json:"sku"`
			UnitPriceMinor   int64  `json:"unitPriceMinor"`
			DutyFreeEligible bool   `json:"dutyFreeEligible"`
		} `json:"items"`
	}
	if err := s.postJSON(ctx, "/v1/prices", map[string]any{"skus": skus}, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]usecase.CatalogItem, len(resp.Items))
	for _, it := range resp.Items {
		out[it.SKU] = usecase.CatalogItem{
			SKU:              it.SKU,
			UnitPriceMinor:   it.UnitPriceMinor,
			DutyFreeEligible: it.DutyFreeEligible,
		}
	}
	return out, nil
}

var _ usecase.CatalogClient = (*CatalogService)(nil)

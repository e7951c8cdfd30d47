package collab

import (
	"context"
	"time"

	"github.com/skymall/checkout-api/internal/usecase"
)

type TaxService struct{ httpClient }

func NewTaxService(baseURL string, timeout time.Duration) *TaxService {
	return &TaxService{newHTTPClient(baseURL, timeout)}
}

func (s *TaxService) ExemptMinor(ctx context.Context, q usecase.TaxQuery) (int64, error) {
	type line struct {
		SKU            string `json:"sku"`
		Quantity       int64  `json:"quantity"`
		UnitPriceMinor int64  `json:"unitPriceMinor"`
		DutyFree       bool   `json:"dutyFree"`
	}
	req := struct {
		Origin        string `json:"origin"`
		Destination   string `json:"destination"`
		UserResidency string `json:"userResidency"`
		Items         []line `json:"items"`
	}{Origin: q.Origin, Destination: q.Destination, UserResidency: q.UserResidency}
	for _, it := range q.Items {
		req.Items = append(req.Items, line{
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			UnitPriceMinor: it.UnitPriceMinor,
			DutyFree:       it.DutyFreeEligible,
		})
	}

	var resp struct {
		ExemptMinor int64 `json:"exemptMinor"`
	}
	if err := s.postJSON(ctx, "/v1/duty-free/exemption", req, &resp); err != nil {
		return 0, err
	}
	return resp.ExemptMinor, nil
}

var _ usecase.TaxClient = (*TaxService)(nil)

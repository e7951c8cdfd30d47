package collab

import (
	"context"
	"fmt"
	"time"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

type InventoryService struct{ httpClient }

func NewInventoryService(baseURL string, timeout time.Duration) *InventoryService {
	return &InventoryService{newHTTPClient(baseURL, timeout)}
}

func (s *InventoryService) Available(ctx context.Context, sku string, qty int64) (bool, error) {
	var resp struct {
		Available bool `json:"available"`
	}
	err := s.getJSON(ctx, fmt.Sprintf("/v1/stock/%s?qty=%d", sku, qty), &resp)
	if err != nil {
		return false, err
	}
	return resp.Available, nil
}

func (s *InventoryService) Reserve(ctx context.Context, userID string, items []domain.CartItem) error {
	type line struct {
		SKU      string `json:"sku"`
		Quantity int64  `json:"quantity"`
	}
	req := struct {
		UserID string `json:"userId"`
		Items  []line `json:"items"`
	}{UserID: userID}
	for _, it := range items {
		req.Items = append(req.Items, line{SKU: it.SKU, Quantity: it.Quantity})
	}
	return s.postJSON(ctx, "/v1/reservations", req, nil)
}

var _ usecase.InventoryClient = (*InventoryService)(nil)

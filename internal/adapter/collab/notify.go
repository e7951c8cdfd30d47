package collab

import (
	"context"
	"time"

	"github.com/skymall/checkout-api/internal/usecase"
)

type NotificationService struct{ httpClient }

func NewNotificationService(baseURL string, timeout time.Duration) *NotificationService {
	return &NotificationService{newHTTPClient(baseURL, timeout)}
}

func (s *NotificationService) PaymentConfirmed(ctx context.Context, userID, orderID string, amountMinor int64, currency string) error {
	req := map[string]any{
		"userId":      userID,
		"orderId":     orderID,
		"amountMinor": amountMinor,
		"currency":    currency,
		"template":    "payment_confirmed",
	}
	return s.postJSON(ctx, "/v1/notifications", req, nil)
}

// Schedule queues receipt generation; the notification service owns delivery.
func (s *NotificationService) Schedule(ctx context.Context, orderID string) error {
	return s.postJSON(ctx, "/v1/receipts", map[string]any{"orderId": orderID}, nil)
}

var (
	_ usecase.Notifier         = (*NotificationService)(nil)
	_ usecase.ReceiptScheduler = (*NotificationService)(nil)
)

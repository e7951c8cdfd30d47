package queue

import (
	"context"

	"github.com/skymall/checkout-api/internal/usecase"
)

// PaymentSucceededHandler fans successful captures out to the notification
// service. Deliveries are at-least-once; the notifier dedupes on orderId.
type PaymentSucceededHandler struct {
	notifier usecase.Notifier
	receipts usecase.ReceiptScheduler
}

func NewPaymentSucceededHandler(n usecase.Notifier, r usecase.ReceiptScheduler) *PaymentSucceededHandler {
	return &PaymentSucceededHandler{notifier: n, receipts: r}
}

// HandleSucceeded is intended to be used with queue.JSONHandler[usecase.PaymentEventMsg].
func (h *PaymentSucceededHandler) HandleSucceeded(ctx context.Context, msg usecase.PaymentEventMsg) error {
	if err := h.notifier.PaymentConfirmed(ctx, msg.UserID, msg.OrderID, msg.AmountMinor, msg.Currency); err != nil {
		return err
	}
	return h.receipts.Schedule(ctx, msg.OrderID)
}

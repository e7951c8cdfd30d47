package kafka

import (
	"context"
	"encoding/json"
	"time"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

// ChargeEventMsg mirrors the gateway's webhook body on the event stream; some
// deployments receive charge outcomes over Kafka instead of (or alongside)
// HTTP webhooks.
type ChargeEventMsg struct {
	EventID    string          `json:"eventId"`
	Gateway    string          `json:"gateway"`
	EventType  string          `json:"eventType"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// ChargeEventHandler feeds stream-delivered charge events through the same
// store-then-reconcile path as HTTP webhooks, so dedup and guarded writes
// behave identically on both sources.
type ChargeEventHandler struct {
	Webhooks *usecase.WebhookService
}

func NewChargeEventHandler(webhooks *usecase.WebhookService) *ChargeEventHandler {
	return &ChargeEventHandler{Webhooks: webhooks}
}

func (h *ChargeEventHandler) Handle(ctx context.Context, ev ChargeEventMsg) error {
	return h.Webhooks.Ingest(ctx, domain.WebhookEvent{
		EventID:    ev.EventID,
		Gateway:    ev.Gateway,
		EventType:  ev.EventType,
		Payload:    ev.Payload,
		ReceivedAt: ev.OccurredAt,
	})
}

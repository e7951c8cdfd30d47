package usecase

import (
	"context"
	"encoding/json"
	"testing"

	domain "github.com/skymall/checkout-api/internal/entity"
)

type webhookHarness struct {
	svc     *WebhookService
	events  *fakeWebhookRepo
	intents *fakeIntentRepo
	refunds *fakeRefundRepo
	clock   *fakeClock
}

func newWebhookHarness(t *testing.T) *webhookHarness {
	t.Helper()
	events := newWebhookRepo()
	intents := newIntentRepo()
	refunds := newRefundRepo()
	clock := newClock()
	return &webhookHarness{
		svc:     NewWebhookService(events, intents, refunds, clock),
		events:  events,
		intents: intents,
		refunds: refunds,
		clock:   clock,
	}
}

func event(id, eventType string, payload any) domain.WebhookEvent {
	b, _ := json.Marshal(payload)
	return domain.WebhookEvent{EventID: id, Gateway: "stripe", EventType: eventType, Payload: b}
}

func (h *webhookHarness) seedIntent(status domain.IntentStatus) {
	h.intents.seed(domain.PaymentIntent{
		IntentID:    "in_1",
		UserID:      "u1",
		AmountMinor: 2140,
		Currency:    "USD",
		Status:      status,
		GatewayRef:  "pi_1",
		UpdatedAt:   h.clock.now,
	})
}

func TestWebhookService_Ingest(t *testing.T) {
	succeeded := func() domain.WebhookEvent {
		return event("evt_1", domain.EventIntentSucceeded, map[string]string{
			"id": "pi_1", "latest_charge": "ch_1",
		})
	}

	t.Run("succeeded event captures the intent", func(t *testing.T) {
		h := newWebhookHarness(t)
		h.seedIntent(domain.IntentInitiated)
		if err := h.svc.Ingest(context.Background(), succeeded()); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		got := h.intents.get("in_1")
		if got.Status != domain.IntentCaptured || got.GatewayChargeID != "ch_1" {
			t.Fatalf("intent = %+v", got)
		}
	})

	t.Run("redelivery is acknowledged without reprocessing side effects", func(t *testing.T) {
		h := newWebhookHarness(t)
		h.seedIntent(domain.IntentInitiated)
		if err := h.svc.Ingest(context.Background(), succeeded()); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		if err := h.svc.Ingest(context.Background(), succeeded()); err != nil {
			t.Fatalf("redelivery must still be acknowledged: %v", err)
		}
		if got := h.intents.get("in_1"); got.Status != domain.IntentCaptured {
			t.Fatalf("intent = %s after redelivery", got.Status)
		}
	})

	t.Run("failed event fails the intent", func(t *testing.T) {
		h := newWebhookHarness(t)
		h.seedIntent(domain.IntentInitiated)
		ev := event("evt_2", domain.EventIntentFailed, map[string]string{
			"id": "pi_1", "last_payment_error": "card_declined",
		})
		if err := h.svc.Ingest(context.Background(), ev); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if got := h.intents.get("in_1"); got.Status != domain.IntentFailed {
			t.Fatalf("intent = %s, want failed", got.Status)
		}
	})

	t.Run("late failure cannot undo a capture", func(t *testing.T) {
		h := newWebhookHarness(t)
		h.seedIntent(domain.IntentCaptured)
		ev := event("evt_3", domain.EventIntentFailed, map[string]string{"id": "pi_1"})
		if err := h.svc.Ingest(context.Background(), ev); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if got := h.intents.get("in_1"); got.Status != domain.IntentCaptured {
			t.Fatalf("intent = %s, capture must stand", got.Status)
		}
	})

	t.Run("full refund event flips the intent to refunded", func(t *testing.T) {
		h := newWebhookHarness(t)
		h.seedIntent(domain.IntentCaptured)
		h.intents.intents["in_1"].GatewayChargeID = "ch_1"
		h.refunds.refunds["rf_1"] = &domain.Refund{
			RefundID: "rf_1", ChargeID: "ch_1", AmountMinor: 2140, Status: domain.RefundPending,
		}
		ev := event("evt_4", domain.EventChargeRefunded, map[string]any{
			"id": "ch_1", "amount_refunded": 2140,
		})
		if err := h.svc.Ingest(context.Background(), ev); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if got := h.refunds.get("rf_1"); got.Status != domain.RefundSucceeded {
			t.Fatalf("refund = %s, want succeeded", got.Status)
		}
		if got := h.intents.get("in_1"); got.Status != domain.IntentRefunded {
			t.Fatalf("intent = %s, want refunded", got.Status)
		}
	})

	t.Run("partial refund keeps the intent captured", func(t *testing.T) {
		h := newWebhookHarness(t)
		h.seedIntent(domain.IntentCaptured)
		h.intents.intents["in_1"].GatewayChargeID = "ch_1"
		h.refunds.refunds["rf_1"] = &domain.Refund{
			RefundID: "rf_1", ChargeID: "ch_1", AmountMinor: 500, Status: domain.RefundPending,
		}
		ev := event("evt_5", domain.EventChargeRefunded, map[string]any{
			"id": "ch_1", "amount_refunded": 500,
		})
		if err := h.svc.Ingest(context.Background(), ev); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if got := h.refunds.get("rf_1"); got.Status != domain.RefundSucceeded {
			t.Fatalf("refund = %s, want succeeded", got.Status)
		}
		if got := h.intents.get("in_1"); got.Status != domain.IntentCaptured {
			t.Fatalf("intent = %s, want still captured", got.Status)
		}
	})

	t.Run("unknown event type is stored and acknowledged", func(t *testing.T) {
		h := newWebhookHarness(t)
		ev := event("evt_6", "customer.updated", map[string]string{"id": "cus_1"})
		if err := h.svc.Ingest(context.Background(), ev); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if !h.events.seen["evt_6"] {
			t.Fatal("event not stored")
		}
	})

	t.Run("storage failure surfaces so the gateway retries", func(t *testing.T) {
		h := newWebhookHarness(t)
		h.events.err = context.DeadlineExceeded
		if err := h.svc.Ingest(context.Background(), succeeded()); err == nil {
			t.Fatal("expected an error when the event cannot be stored")
		}
	})
}

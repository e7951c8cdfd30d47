package usecase

import (
	"context"
	"fmt"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/logging"
)

// WebhookService ingests verified gateway notifications. Delivery is
// at-least-once, so the raw event is stored first (audit + replay) and every
// reconciliation write is a guarded no-op against already-terminal state.
type WebhookService struct {
	events  WebhookEventRepo
	intents IntentRepo
	refunds RefundRepo
	clock   Clock
}

func NewWebhookService(events WebhookEventRepo, intents IntentRepo, refunds RefundRepo, clock Clock) *WebhookService {
	return &WebhookService{events: events, intents: intents, refunds: refunds, clock: clock}
}

// Ingest stores the event and reconciles it. Only a storage failure is an
// error: once the event is durable, handler problems are logged and the
// gateway gets its 2xx (no retry storms on handler bugs).
func (s *WebhookService) Ingest(ctx context.Context, ev domain.WebhookEvent) error {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = s.clock.Now()
	}
	fresh, err := s.events.Insert(ctx, &ev)
	if err != nil {
		return fmt.Errorf("store webhook event: %w", err)
	}
	l := logging.FromCtx(ctx).With("event_id", ev.EventID, "event_type", ev.EventType, "gateway", ev.Gateway)
	if !fresh {
		l.Info("webhook event redelivered")
	}
	if err := s.Reconcile(ctx, ev); err != nil {
		l.Error("webhook reconciliation failed", "err", err)
	}
	return nil
}

// Reconcile applies the typed event. Also the entry point for the broker-fed
// event stream, which shares these semantics.
func (s *WebhookService) Reconcile(ctx context.Context, ev domain.WebhookEvent) error {
	parsed, err := domain.ParseEvent(ev)
	if err != nil {
		return fmt.Errorf("parse %s: %w", ev.EventType, err)
	}
	l := logging.FromCtx(ctx).With("event_id", ev.EventID, "event_type", ev.EventType)

	switch {
	case parsed.IntentSucceeded != nil:
		changed, err := s.intents.CaptureByGatewayRef(ctx, parsed.IntentSucceeded.GatewayRef, parsed.IntentSucceeded.ChargeID)
		if err != nil {
			return err
		}
		if !changed {
			l.Info("intent already settled")
		}
	case parsed.IntentFailed != nil:
		changed, err := s.intents.FailByGatewayRef(ctx, parsed.IntentFailed.GatewayRef)
		if err != nil {
			return err
		}
		if !changed {
			l.Info("intent already settled")
		}
	case parsed.ChargeRefunded != nil:
		if err := s.applyRefund(ctx, parsed.ChargeRefunded); err != nil {
			return err
		}
	default:
		// Unknown event types are stored and logged only.
		l.Warn("unhandled webhook event type")
	}
	return nil
}

func (s *WebhookService) applyRefund(ctx context.Context, ev *domain.ChargeRefundedEvent) error {
	if _, err := s.refunds.MarkSucceededByCharge(ctx, ev.ChargeID); err != nil {
		return fmt.Errorf("mark refunds succeeded: %w", err)
	}
	intent, err := s.intents.GetByChargeID(ctx, ev.ChargeID)
	if err != nil {
		// No local intent for this charge; nothing further to reconcile.
		logging.FromCtx(ctx).Warn("refund event for unknown charge", "charge_id", ev.ChargeID)
		return nil
	}
	total, err := s.refunds.SucceededTotal(ctx, ev.ChargeID)
	if err != nil {
		return err
	}
	if total >= intent.AmountMinor {
		if _, err := s.intents.UpdateStatusIf(ctx, intent.IntentID, domain.IntentCaptured, domain.IntentRefunded); err != nil {
			return err
		}
	}
	return nil
}

package domain

import (
	"encoding/json"
	"time"
)

// WebhookEvent is the raw gateway notification, persisted before processing
// for replay and audit. Processing is idempotent per EventID.
type WebhookEvent struct {
	EventID    string
	Gateway    string
	EventType  string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Gateway event payloads are a tagged union keyed by EventType. Exactly one of
// the typed fields is set; Unknown covers event types we don't handle (logged,
// stored, otherwise ignored).
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded  = "charge.refunded"
)

type IntentSucceededEvent struct {
	GatewayRef string `json:"id"`
	ChargeID   string `json:"latest_charge"`
}

type IntentFailedEvent struct {
	GatewayRef string `json:"id"`
	Reason     string `json:"last_payment_error"`
}

type ChargeRefundedEvent struct {
	ChargeID       string `json:"id"`
	AmountRefunded int64  `json:"amount_refunded"`
}

type ParsedEvent struct {
	EventID         string
	EventType       string
	IntentSucceeded *IntentSucceededEvent
	IntentFailed    *IntentFailedEvent
	ChargeRefunded  *ChargeRefundedEvent
	Unknown         bool
}

// ParseEvent decodes the typed variant for ev.EventType. Unrecognized types
// yield Unknown=true rather than an error.
func ParseEvent(ev WebhookEvent) (ParsedEvent, error) {
	out := ParsedEvent{EventID: ev.EventID, EventType: ev.EventType}
	switch ev.EventType {
	case EventIntentSucceeded:
		var v IntentSucceededEvent
		if err := json.Unmarshal(ev.Payload, &v); err != nil {
			return out, err
		}
		out.IntentSucceeded = &v
	case EventIntentFailed:
		var v IntentFailedEvent
		if err := json.Unmarshal(ev.Payload, &v); err != nil {
			return out, err
		}
		out.IntentFailed = &v
	case EventChargeRefunded:
		var v ChargeRefundedEvent
		if err := json.Unmarshal(ev.Payload, &v); err != nil {
			return out, err
		}
		out.ChargeRefunded = &v
	default:
		out.Unknown = true
	}
	return out, nil
}

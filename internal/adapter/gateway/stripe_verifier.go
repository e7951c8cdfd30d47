package gateway

import (
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74/webhook"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/security"
)

// StripeWebhookVerifier checks the Stripe-Signature header using the endpoint
// secret from the dashboard.
type StripeWebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewStripeWebhookVerifier(secret string, tolerance time.Duration) *StripeWebhookVerifier {
	return &StripeWebhookVerifier{secret: secret, tolerance: tolerance}
}

func (v *StripeWebhookVerifier) Verify(payload []byte, signatureHeader string) error {
	if _, err := webhook.ConstructEventWithTolerance(payload, signatureHeader, v.secret, v.tolerance); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadWebhookSignature, err)
	}
	return nil
}

var _ security.WebhookVerifier = (*StripeWebhookVerifier)(nil)

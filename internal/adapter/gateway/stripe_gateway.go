package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

// StripeGateway adapts the Stripe PaymentIntents API to the PaymentGateway
// port. Amounts cross the wire in minor units on both sides, so there is no
// conversion here.
type StripeGateway struct {
	sc             *client.API
	publishableKey string
}

func NewStripeGateway(apiKey, publishableKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeGateway{sc: sc, publishableKey: publishableKey}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency, idemKey string) (usecase.GatewayIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(strings.ToLower(currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}
	if idemKey != "" {
		params.SetIdempotencyKey(idemKey)
	}
	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return usecase.GatewayIntent{}, mapStripeErr(err)
	}
	return usecase.GatewayIntent{GatewayRef: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) ConfirmIntent(ctx context.Context, gatewayRef, paymentToken, idemKey string) (usecase.GatewayCharge, error) {
	params := &stripe.PaymentIntentConfirmParams{
		Params:        stripe.Params{Context: ctx},
		PaymentMethod: stripe.String(paymentToken),
	}
	if idemKey != "" {
		params.SetIdempotencyKey(idemKey)
	}
	pi, err := g.sc.PaymentIntents.Confirm(gatewayRef, params)
	if err != nil {
		return usecase.GatewayCharge{}, mapStripeErr(err)
	}
	return chargeFromIntent(pi), nil
}

func (g *StripeGateway) Refund(ctx context.Context, chargeID string, amountMinor int64, idemKey string) (usecase.GatewayRefund, error) {
	params := &stripe.RefundParams{
		Params: stripe.Params{Context: ctx},
		Charge: stripe.String(chargeID),
		Amount: stripe.Int64(amountMinor),
	}
	if idemKey != "" {
		params.SetIdempotencyKey(idemKey)
	}
	ref, err := g.sc.Refunds.New(params)
	if err != nil {
		return usecase.GatewayRefund{}, mapStripeErr(err)
	}
	return usecase.GatewayRefund{
		GatewayRef: ref.ID,
		Succeeded:  ref.Status == stripe.RefundStatusSucceeded,
	}, nil
}

func (g *StripeGateway) PublishableKey() string { return g.publishableKey }

func chargeFromIntent(pi *stripe.PaymentIntent) usecase.GatewayCharge {
	ch := usecase.GatewayCharge{}
	if pi.LatestCharge != nil {
		ch.ChargeID = pi.LatestCharge.ID
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		ch.Outcome = usecase.ChargeSucceeded
	case stripe.PaymentIntentStatusRequiresAction:
		ch.Outcome = usecase.ChargeRequiresAction
		if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil {
			ch.ActionURL = pi.NextAction.RedirectToURL.URL
		}
	default:
		ch.Outcome = usecase.ChargeFailed
	}
	return ch
}

// mapStripeErr folds the gateway's error shape into the domain taxonomy.
// Card declines are business outcomes; everything else is treated as the
// gateway being unreachable so callers leave the intent recoverable.
func mapStripeErr(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	switch se.Code {
	case stripe.ErrorCodeCardDeclined:
		if se.DeclineCode == "insufficient_funds" {
			return domain.ErrInsufficientFunds
		}
		return fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, se.DeclineCode)
	case stripe.ErrorCodeExpiredCard, stripe.ErrorCodeIncorrectCVC, stripe.ErrorCodeIncorrectNumber:
		return fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, se.Code)
	case stripe.ErrorCodeChargeAlreadyRefunded:
		return domain.ErrChargeNotRefundable
	}
	switch se.Type {
	case stripe.ErrorTypeCard:
		return fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, se.Code)
	case stripe.ErrorTypeInvalidRequest:
		return fmt.Errorf("%w: %s", domain.ErrValidation, se.Msg)
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, se.Msg)
}

var _ usecase.PaymentGateway = (*StripeGateway)(nil)

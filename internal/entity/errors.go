package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the payment path. Handlers map these to HTTP statuses;
// only ErrGatewayUnavailable is retryable (with the same idempotency key).
var (
	ErrValidation          = errors.New("invalid request")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrTooManyItems        = errors.New("too many cart items")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidAddress      = errors.New("billing address requires street and postal code")

	ErrSessionNotFound = errors.New("checkout session not found")
	ErrSessionInvalid  = errors.New("checkout session not pending or expired")

	ErrIntentNotFound = errors.New("payment intent not found")
	ErrIntentConsumed = errors.New("payment intent already consumed")

	ErrPaymentDeclined = errors.New("payment declined")
	// ErrInsufficientFunds is a sub-kind of ErrPaymentDeclined; errors.Is
	// matches it against both.
	ErrInsufficientFunds    = fmt.Errorf("%w: insufficient funds", ErrPaymentDeclined)
	ErrHighRisk             = errors.New("charge blocked by risk policy")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	ErrRefundWindowExpired = errors.New("refund window expired")
	ErrRefundExceedsCharge = errors.New("refund exceeds captured amount")
	ErrChargeNotFound      = errors.New("charge not found")
	ErrChargeNotRefundable = errors.New("charge not in a refundable state")

	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrInsufficientInventory = errors.New("insufficient inventory")

	ErrBadWebhookSignature = errors.New("webhook signature verification failed")

	ErrDuplicateRequest = errors.New("duplicate request in flight")
)

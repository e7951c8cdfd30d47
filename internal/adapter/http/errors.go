package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skymall/checkout-api/internal/adapter/repo"
	domain "github.com/skymall/checkout-api/internal/entity"
)

// statusFor maps the domain error taxonomy onto HTTP. 402 marks business
// declines, 409 conflicts (consumed intents, duplicate keys in flight), 422
// refund policy violations, 502 a gateway we could not reach.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrTooManyItems),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrIntentNotFound),
		errors.Is(err, domain.ErrChargeNotFound),
		errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPaymentDeclined),
		errors.Is(err, domain.ErrHighRisk):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrSessionInvalid),
		errors.Is(err, domain.ErrIntentConsumed),
		errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrInsufficientInventory):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRefundWindowExpired),
		errors.Is(err, domain.ErrRefundExceedsCharge),
		errors.Is(err, domain.ErrChargeNotRefundable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

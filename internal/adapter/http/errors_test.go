package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/skymall/checkout-api/internal/adapter/repo"
	domain "github.com/skymall/checkout-api/internal/entity"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrEmptyCart, http.StatusBadRequest},
		{domain.ErrUnsupportedCurrency, http.StatusBadRequest},
		{domain.ErrInvalidPaymentMethod, http.StatusBadRequest},
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{domain.ErrChargeNotFound, http.StatusNotFound},
		{repo.ErrNotFound, http.StatusNotFound},
		{domain.ErrPaymentDeclined, http.StatusPaymentRequired},
		{domain.ErrInsufficientFunds, http.StatusPaymentRequired}, // wraps declined
		{domain.ErrHighRisk, http.StatusPaymentRequired},
		{domain.ErrSessionInvalid, http.StatusConflict},
		{domain.ErrIntentConsumed, http.StatusConflict},
		{domain.ErrDuplicateRequest, http.StatusConflict},
		{domain.ErrInsufficientInventory, http.StatusConflict},
		{domain.ErrRefundWindowExpired, http.StatusUnprocessableEntity},
		{domain.ErrRefundExceedsCharge, http.StatusUnprocessableEntity},
		{domain.ErrChargeNotRefundable, http.StatusUnprocessableEntity},
		{domain.ErrGatewayUnavailable, http.StatusBadGateway},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.want {
				t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}

	t.Run("wrapped errors keep their mapping", func(t *testing.T) {
		err := fmt.Errorf("session abc is paid: %w", domain.ErrSessionInvalid)
		if got := statusFor(err); got != http.StatusConflict {
			t.Fatalf("statusFor(wrapped) = %d, want 409", got)
		}
	})
}

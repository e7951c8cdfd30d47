package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

type CheckoutHandler struct {
	checkout *usecase.CheckoutService
}

func NewCheckoutHandler(checkout *usecase.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type billingReq struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

type createSessionReq struct {
	UserID         string        `json:"userId" binding:"required"`
	Currency       string        `json:"currency" binding:"required"`
	Items          []cartItemReq `json:"items" binding:"required"`
	Billing        billingReq    `json:"billingAddress"`
	ShippingOption string        `json:"shippingOption"`
	RedeemMiles    int64         `json:"redeemMiles"`
	Tax            taxReq        `json:"tax"`
}

func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	session, err := h.checkout.CreateSession(ctx, usecase.CreateSessionInput{
		UserID:   req.UserID,
		Currency: req.Currency,
		Items:    toCartItems(req.Items),
		Billing: domain.BillingAddress{
			Street:     req.Billing.Street,
			City:       req.Billing.City,
			Country:    req.Billing.Country,
			PostalCode: req.Billing.PostalCode,
		},
		ShippingOption: req.ShippingOption,
		RedeemMiles:    req.RedeemMiles,
		Tax:            toTaxQuery(req.Tax),
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"sessionId":       session.SessionID,
		"status":          session.Status,
		"subtotalMinor":   session.SubtotalMinor,
		"serviceFeeMinor": session.ServiceFeeMinor,
		"taxExemptMinor":  session.TaxExemptMinor,
		"loyaltyMinor":    session.LoyaltyMinor,
		"amountDueMinor":  session.AmountDueMinor,
		"currency":        session.Currency,
	})
}

type confirmSessionReq struct {
	MethodType   string `json:"methodType" binding:"required"`
	PaymentToken string `json:"paymentToken"`
	MethodID     string `json:"methodId"`
	RedeemMiles  int64  `json:"redeemMiles"`
}

func (h *CheckoutHandler) ConfirmSession(c *gin.Context) {
	var req confirmSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	result, err := h.checkout.ConfirmSession(ctx, usecase.ConfirmSessionInput{
		SessionID:      c.Param("id"),
		MethodType:     domain.MethodType(req.MethodType),
		PaymentToken:   req.PaymentToken,
		MethodID:       req.MethodID,
		RedeemMiles:    req.RedeemMiles,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		// A declined payment still reports the terminal result body.
		if result.Status != "" {
			c.JSON(statusFor(err), result)
			return
		}
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

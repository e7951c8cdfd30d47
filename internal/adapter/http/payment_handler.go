package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

type PaymentHandler struct {
	payments *usecase.PaymentService
}

func NewPaymentHandler(payments *usecase.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type cartItemReq struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

type taxReq struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	UserResidency string `json:"userResidency"`
}

type createIntentReq struct {
	UserID      string        `json:"userId" binding:"required"`
	Currency    string        `json:"currency" binding:"required"`
	Items       []cartItemReq `json:"items" binding:"required"`
	RedeemMiles int64         `json:"redeemMiles"`
	Tax         taxReq        `json:"tax"`
}

// CreateIntent prices the cart and opens an intent; the client then confirms
// with a tokenized instrument.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req createIntentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	out, err := h.payments.CreateIntent(ctx, usecase.CreateIntentInput{
		UserID:         req.UserID,
		Currency:       req.Currency,
		Items:          toCartItems(req.Items),
		RedeemMiles:    req.RedeemMiles,
		Tax:            toTaxQuery(req.Tax),
		IdempotencyKey: idemKey,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type confirmIntentReq struct {
	PaymentToken string            `json:"paymentToken" binding:"required"`
	MethodType   string            `json:"methodType" binding:"required"`
	RiskAttrs    map[string]string `json:"riskAttributes"`
}

func (h *PaymentHandler) ConfirmIntent(c *gin.Context) {
	var req confirmIntentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key")

	// Gateway round trip included; keep the bound above its timeout.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 12*time.Second)
	defer cancel()

	out, err := h.payments.ConfirmIntent(ctx, usecase.ConfirmIntentInput{
		IntentID:       c.Param("id"),
		PaymentToken:   req.PaymentToken,
		MethodType:     domain.MethodType(req.MethodType),
		IdempotencyKey: idemKey,
		RiskAttrs:      req.RiskAttrs,
	})
	if err != nil {
		paymentOutcomes.WithLabelValues("error").Inc()
		writeErr(c, err)
		return
	}
	paymentOutcomes.WithLabelValues(out.Status).Inc()
	c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) GetIntent(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	intent, err := h.payments.GetIntent(ctx, c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	resp := gin.H{
		"intentId":    intent.IntentID,
		"orderId":     intent.OrderID,
		"userId":      intent.UserID,
		"amountMinor": intent.AmountMinor,
		"currency":    intent.Currency,
		"status":      intent.Status,
		"createdAt":   intent.CreatedAt,
		"updatedAt":   intent.UpdatedAt,
	}
	if intent.GatewayChargeID != "" {
		resp["chargeId"] = intent.GatewayChargeID
	}
	if intent.RiskScore != nil {
		resp["riskScore"] = *intent.RiskScore
	}
	c.JSON(http.StatusOK, resp)
}

func toCartItems(items []cartItemReq) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.CartItem{SKU: it.SKU, Quantity: it.Quantity})
	}
	return out
}

func toTaxQuery(t taxReq) usecase.TaxQuery {
	return usecase.TaxQuery{
		Origin:        t.Origin,
		Destination:   t.Destination,
		UserResidency: t.UserResidency,
	}
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skymall/checkout-api/internal/usecase"
)

type RefundHandler struct {
	refunds *usecase.RefundManager
}

func NewRefundHandler(refunds *usecase.RefundManager) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

type refundReq struct {
	ChargeID    string `json:"chargeId" binding:"required"`
	AmountMinor int64  `json:"amountMinor" binding:"required,gt=0"`
	Reason      string `json:"reason"`
}

func (h *RefundHandler) Create(c *gin.Context) {
	var req refundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	out, err := h.refunds.Initiate(ctx, usecase.RefundInput{
		ChargeID:       req.ChargeID,
		AmountMinor:    req.AmountMinor,
		Reason:         req.Reason,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		refundOutcomes.WithLabelValues("rejected").Inc()
		writeErr(c, err)
		return
	}
	refundOutcomes.WithLabelValues(out.Status).Inc()
	c.JSON(http.StatusAccepted, out)
}

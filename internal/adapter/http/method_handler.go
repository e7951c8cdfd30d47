package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

// MethodHandler is the stored-instrument vault. Only gateway tokens and
// display metadata are kept; PANs never reach this service.
type MethodHandler struct {
	methods usecase.MethodRepo
}

func NewMethodHandler(methods usecase.MethodRepo) *MethodHandler {
	return &MethodHandler{methods: methods}
}

type saveMethodReq struct {
	UserID    string `json:"userId" binding:"required"`
	Type      string `json:"type" binding:"required"`
	GatewayID string `json:"gatewayId" binding:"required"`
	CardBrand string `json:"cardBrand"`
	Last4     string `json:"last4"`
	ExpMonth  int    `json:"expMonth"`
	ExpYear   int    `json:"expYear"`
	IsDefault bool   `json:"isDefault"`
}

func (h *MethodHandler) Save(c *gin.Context) {
	var req saveMethodReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	m := &domain.PaymentMethod{
		MethodID:  uuid.NewString(),
		UserID:    req.UserID,
		Type:      domain.MethodType(req.Type),
		GatewayID: req.GatewayID,
		CardBrand: req.CardBrand,
		Last4:     req.Last4,
		ExpMonth:  req.ExpMonth,
		ExpYear:   req.ExpYear,
		IsDefault: req.IsDefault,
	}
	if err := h.methods.Save(ctx, m); err != nil {
		writeErr(c, err)
		return
	}
	if req.IsDefault {
		if err := h.methods.SetDefault(ctx, req.UserID, m.MethodID); err != nil {
			writeErr(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, gin.H{"methodId": m.MethodID})
}

func (h *MethodHandler) List(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	methods, err := h.methods.ListByUser(ctx, userID)
	if err != nil {
		writeErr(c, err)
		return
	}
	type methodResp struct {
		MethodID  string `json:"methodId"`
		Type      string `json:"type"`
		CardBrand string `json:"cardBrand,omitempty"`
		Last4     string `json:"last4,omitempty"`
		ExpMonth  int    `json:"expMonth,omitempty"`
		ExpYear   int    `json:"expYear,omitempty"`
		IsDefault bool   `json:"isDefault"`
	}
	out := make([]methodResp, 0, len(methods))
	for _, m := range methods {
		out = append(out, methodResp{
			MethodID:  m.MethodID,
			Type:      string(m.Type),
			CardBrand: m.CardBrand,
			Last4:     m.Last4,
			ExpMonth:  m.ExpMonth,
			ExpYear:   m.ExpYear,
			IsDefault: m.IsDefault,
		})
	}
	c.JSON(http.StatusOK, gin.H{"methods": out})
}

func (h *MethodHandler) SetDefault(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.methods.SetDefault(ctx, userID, c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *MethodHandler) Delete(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.methods.SoftDelete(ctx, c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

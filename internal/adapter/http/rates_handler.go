package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skymall/checkout-api/internal/usecase"
)

type RatesHandler struct {
	rates *usecase.CurrencyRateStore
}

func NewRatesHandler(rates *usecase.CurrencyRateStore) *RatesHandler {
	return &RatesHandler{rates: rates}
}

// List serves the cached table; it never blocks on the provider.
func (h *RatesHandler) List(c *gin.Context) {
	rates, oldest := h.rates.Snapshot()

	type rateResp struct {
		Currency   string `json:"currency"`
		RateMicros int64  `json:"rateMicros"`
	}
	out := make([]rateResp, 0, len(rates))
	for _, r := range rates {
		out = append(out, rateResp{Currency: r.CurrencyCode, RateMicros: r.RateMicros})
	}
	c.JSON(http.StatusOK, gin.H{
		"base":      h.rates.BaseCurrency(),
		"rates":     out,
		"fetchedAt": oldest,
	})
}

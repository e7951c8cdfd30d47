package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skymall/checkout-api/internal/adapter/http/middleware"
	"github.com/skymall/checkout-api/internal/logging"
)

type Handlers struct {
	Checkout *CheckoutHandler
	Payments *PaymentHandler
	Refunds  *RefundHandler
	Methods  *MethodHandler
	Rates    *RatesHandler
	Webhooks *WebhookHandler
	Token    *TokenHandler
}

func NewRouter(h Handlers, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Info("health check")
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", h.Token.IssueToken)

	// Gateway callbacks authenticate by signature, not bearer token.
	r.POST("/webhooks/:gateway", h.Webhooks.Receive)

	v1 := r.Group("/v1")
	{
		v1.POST("/checkout/sessions", authz.Require("payments.write"), h.Checkout.CreateSession)
		v1.POST("/checkout/sessions/:id/confirm", authz.Require("payments.write"), h.Checkout.ConfirmSession)

		v1.POST("/payment-intents", authz.Require("payments.write"), h.Payments.CreateIntent)
		v1.POST("/payment-intents/:id/confirm", authz.Require("payments.write"), h.Payments.ConfirmIntent)
		v1.GET("/payment-intents/:id", authz.Require("payments.read"), h.Payments.GetIntent)

		v1.POST("/refunds", authz.Require("refunds.write"), h.Refunds.Create)

		v1.GET("/payment-methods", authz.Require("payments.read"), h.Methods.List)
		v1.POST("/payment-methods", authz.Require("payments.write"), h.Methods.Save)
		v1.POST("/payment-methods/:id/default", authz.Require("payments.write"), h.Methods.SetDefault)
		v1.DELETE("/payment-methods/:id", authz.Require("payments.write"), h.Methods.Delete)

		v1.GET("/currency-rates", authz.Require("payments.read"), h.Rates.List)
	}

	return r
}

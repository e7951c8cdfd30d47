package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/logging"
	"github.com/skymall/checkout-api/internal/security"
	"github.com/skymall/checkout-api/internal/usecase"
)

// WebhookHandler terminates gateway callbacks. Per gateway there is a verifier
// and a signature header; the raw body bytes are what get verified and stored,
// never a re-serialization.
type WebhookHandler struct {
	webhooks  *usecase.WebhookService
	verifiers map[string]security.WebhookVerifier
}

func NewWebhookHandler(webhooks *usecase.WebhookService, verifiers map[string]security.WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, verifiers: verifiers}
}

const maxWebhookBody = 256 * 1024

func signatureHeader(gateway string) string {
	if gateway == "stripe" {
		return "Stripe-Signature"
	}
	return "X-Signature"
}

// stripeEnvelope is the common webhook shape: the handled object rides inside
// data.object.
type stripeEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	gateway := c.Param("gateway")
	verifier, ok := h.verifiers[gateway]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown gateway"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil || len(body) > maxWebhookBody {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad body"})
		return
	}

	if err := verifier.Verify(body, c.GetHeader(signatureHeader(gateway))); err != nil {
		logging.From(c).Warn("webhook signature rejected",
			"gateway", gateway, "remote_addr", c.ClientIP(), "err", err)
		webhookEvents.WithLabelValues(gateway, "bad_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	var env stripeEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.ID == "" || env.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}
	payload := env.Data.Object
	if len(payload) == 0 {
		payload = body
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	err = h.webhooks.Ingest(ctx, domain.WebhookEvent{
		EventID:   env.ID,
		Gateway:   gateway,
		EventType: env.Type,
		Payload:   payload,
	})
	if err != nil {
		// Not stored durably; a 5xx makes the gateway redeliver.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	webhookEvents.WithLabelValues(gateway, env.Type).Inc()
	c.JSON(http.StatusOK, gin.H{"received": true})
}

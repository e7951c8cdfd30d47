package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/skymall/checkout-api/configs"
	"github.com/skymall/checkout-api/internal/adapter/http/middleware"
)

func tokenConfig() configs.Config {
	var cfg configs.Config
	cfg.Security.JWTSecret = "test-secret"
	cfg.Security.Issuer = "checkout-api"
	cfg.Security.Audience = "checkout-clients"
	cfg.Security.TTL = 30 * time.Minute
	return cfg
}

func issueToken(t *testing.T, r *gin.Engine, clientID, secret string) (int, map[string]any) {
	t.Helper()
	form := url.Values{"client_id": {clientID}, "client_secret": {secret}}
	req := httptest.NewRequest(http.MethodPost, "/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestTokenHandler_IssueToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := tokenConfig()
	r := gin.New()
	r.POST("/v1/token", NewTokenHandler(cfg).IssueToken)

	t.Run("issued token expires a full TTL from now", func(t *testing.T) {
		code, body := issueToken(t, r, "svc-analytics", "ana-secret")
		if code != http.StatusOK {
			t.Fatalf("status = %d, body = %v", code, body)
		}
		raw, _ := body["access_token"].(string)
		if raw == "" {
			t.Fatal("no access_token in response")
		}

		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return []byte(cfg.Security.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			t.Fatalf("issued token does not validate: %v", err)
		}
		exp, err := token.Claims.GetExpirationTime()
		if err != nil {
			t.Fatalf("exp claim: %v", err)
		}
		lifetime := time.Until(exp.Time)
		if lifetime < 29*time.Minute || lifetime > 31*time.Minute {
			t.Fatalf("token lifetime = %s, want about %s", lifetime, cfg.Security.TTL)
		}
		if got, _ := body["expires_in"].(float64); int64(got) != 1800 {
			t.Fatalf("expires_in = %v, want 1800 seconds", body["expires_in"])
		}
	})

	t.Run("issued token passes the authz middleware", func(t *testing.T) {
		_, body := issueToken(t, r, "svc-analytics", "ana-secret")
		raw, _ := body["access_token"].(string)

		protected := gin.New()
		authz := middleware.NewAuthz(cfg)
		protected.GET("/v1/payments/x", authz.Require("payments.read"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/payments/x", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("authz rejected a freshly issued token: %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("rejects bad credentials", func(t *testing.T) {
		if code, _ := issueToken(t, r, "svc-analytics", "wrong"); code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", code)
		}
		if code, _ := issueToken(t, r, "ghost", "ana-secret"); code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", code)
		}
	})
}

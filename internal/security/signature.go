package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/skymall/checkout-api/internal/entity"
)

// WebhookVerifier authenticates an inbound webhook delivery before anything
// about it is stored or acted on.
type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) error
}

// HMACVerifier checks headers of the form "t=<unix>,v1=<hex hmac-sha256>"
// where the MAC covers "<unix>.<payload>". The timestamp bound rejects
// replayed deliveries; the MAC comparison is constant-time.
type HMACVerifier struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

func NewHMACVerifier(secret string, maxSkew time.Duration) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), maxSkew: maxSkew, now: time.Now}
}

func (v *HMACVerifier) Verify(payload []byte, signatureHeader string) error {
	var ts, sig string
	for _, part := range strings.Split(signatureHeader, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = val
		case "v1":
			sig = val
		}
	}
	if ts == "" || sig == "" {
		return fmt.Errorf("%w: malformed signature header", domain.ErrBadWebhookSignature)
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", domain.ErrBadWebhookSignature)
	}
	skew := v.now().Sub(time.Unix(unix, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.maxSkew {
		return fmt.Errorf("%w: timestamp outside tolerance", domain.ErrBadWebhookSignature)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	want := mac.Sum(nil)

	got, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(want, got) {
		return domain.ErrBadWebhookSignature
	}
	return nil
}

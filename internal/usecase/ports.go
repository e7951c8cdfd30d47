package usecase

import (
	"context"
	"encoding/json"
	"time"

	domain "github.com/skymall/checkout-api/internal/entity"
)

// --- Persistence ports (kept out of domain) ---

type IntentRepo interface {
	Create(ctx context.Context, in *domain.PaymentIntent) error
	GetByID(ctx context.Context, intentID string) (*domain.PaymentIntent, error)
	GetByChargeID(ctx context.Context, chargeID string) (*domain.PaymentIntent, error)
	GetByGatewayRef(ctx context.Context, gatewayRef string) (*domain.PaymentIntent, error)
	// UpdateStatusIf performs a guarded transition; false means the row was not
	// in fromStatus (not found or already moved on).
	UpdateStatusIf(ctx context.Context, intentID string, from, to domain.IntentStatus) (bool, error)
	// MarkOutcome records the gateway result in one statement.
	MarkOutcome(ctx context.Context, intentID string, status domain.IntentStatus, gatewayChargeID string, riskScore *float64) error
	SetGatewayRef(ctx context.Context, intentID, gatewayRef string) error
	// CaptureByGatewayRef / FailByGatewayRef are the webhook reconciliation
	// writes: guarded so replays against terminal rows are no-ops.
	CaptureByGatewayRef(ctx context.Context, gatewayRef, chargeID string) (bool, error)
	FailByGatewayRef(ctx context.Context, gatewayRef string) (bool, error)
}

type RefundRepo interface {
	// CreatePendingLocked inserts a pending refund inside a transaction that
	// row-locks the parent intent and re-checks the cumulative cap, so two
	// concurrent refunds cannot both pass the sum check against a stale read.
	CreatePendingLocked(ctx context.Context, r *domain.Refund, capturedMinor int64) error
	UpdateStatus(ctx context.Context, refundID string, status domain.RefundStatus, failureReason string) error
	SucceededTotal(ctx context.Context, chargeID string) (int64, error)
	// MarkSucceededByCharge flips pending refunds for a charge; used by webhook
	// reconciliation. Returns the number of rows changed (0 is a valid no-op).
	MarkSucceededByCharge(ctx context.Context, chargeID string) (int64, error)
}

type MethodRepo interface {
	GetByID(ctx context.Context, methodID string) (*domain.PaymentMethod, error)
	GetDefault(ctx context.Context, userID string) (*domain.PaymentMethod, error)
	Save(ctx context.Context, m *domain.PaymentMethod) error
	SetDefault(ctx context.Context, userID, methodID string) error
	// SoftDelete keeps the row for audit; it is never hard-deleted.
	SoftDelete(ctx context.Context, methodID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.PaymentMethod, error)
}

type SessionRepo interface {
	Create(ctx context.Context, s *domain.CheckoutSession) error
	GetByID(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	UpdateStatusIf(ctx context.Context, sessionID string, from, to domain.SessionStatus) (bool, error)
}

type RateRepo interface {
	UpsertAll(ctx context.Context, rates []domain.CurrencyRate) error
	All(ctx context.Context) ([]domain.CurrencyRate, error)
}

type WebhookEventRepo interface {
	// Insert stores the raw event; returns (false, nil) when eventID was
	// already stored (at-least-once delivery).
	Insert(ctx context.Context, ev *domain.WebhookEvent) (bool, error)
}

type OutboxRepo interface {
	Insert(ctx context.Context, routingKey string, payload []byte) error
	// FetchPending claims up to limit undelivered rows.
	FetchPending(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
}

type OutboxRow struct {
	ID         int64
	RoutingKey string
	Payload    []byte
}

// --- Caches ---

type IdempotencyStore interface {
	// TryLock wins at most once per (scope, key); losing callers should treat
	// the request as a duplicate in flight.
	TryLock(ctx context.Context, scope, key string) (bool, error)
	// Unlock releases a held lock with no response cached, so a retry after a
	// transient failure can run instead of seeing a duplicate.
	Unlock(ctx context.Context, scope, key string) error
	// Remember caches the serialized response so retries replay it byte for byte.
	Remember(ctx context.Context, scope, key string, response []byte) error
	Recall(ctx context.Context, scope, key string) ([]byte, bool, error)
}

type SessionCache interface {
	Put(ctx context.Context, s *domain.CheckoutSession) error
	Get(ctx context.Context, sessionID string) (*domain.CheckoutSession, bool, error)
	// Del drops the cached copy when the session leaves pending; stale pending
	// reads would let a paid session be confirmed again.
	Del(ctx context.Context, sessionID string) error
}

// --- Payment gateway (the sole network dependency for money movement) ---

type GatewayIntent struct {
	GatewayRef   string
	ClientSecret string
}

type ChargeOutcome string

const (
	ChargeSucceeded      ChargeOutcome = "succeeded"
	ChargeFailed         ChargeOutcome = "failed"
	ChargeRequiresAction ChargeOutcome = "requires_action"
)

type GatewayCharge struct {
	ChargeID  string
	Outcome   ChargeOutcome
	ActionURL string // client-side redirect for 3-D Secure style challenges
}

type GatewayRefund struct {
	GatewayRef string
	Succeeded  bool
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, idemKey string) (GatewayIntent, error)
	ConfirmIntent(ctx context.Context, gatewayRef, paymentToken, idemKey string) (GatewayCharge, error)
	Refund(ctx context.Context, chargeID string, amountMinor int64, idemKey string) (GatewayRefund, error)
	PublishableKey() string
}

// --- External collaborators (catalog, tax, inventory, loyalty, risk, notify) ---

type CatalogItem struct {
	SKU              string
	UnitPriceMinor   int64
	DutyFreeEligible bool
}

type CatalogClient interface {
	// Prices are always fetched fresh; client-supplied prices are never trusted.
	Prices(ctx context.Context, skus []string) (map[string]CatalogItem, error)
}

type TaxQuery struct {
	Origin        string
	Destination   string
	UserResidency string
	Items         []domain.CartItem
}

type TaxClient interface {
	// ExemptMinor returns the duty-free exemption for eligible items.
	ExemptMinor(ctx context.Context, q TaxQuery) (int64, error)
}

type InventoryClient interface {
	Available(ctx context.Context, sku string, qty int64) (bool, error)
	Reserve(ctx context.Context, userID string, items []domain.CartItem) error
}

type LoyaltyClient interface {
	// RedemptionValue prices miles in minor units of the given currency.
	RedemptionValue(ctx context.Context, userID string, miles int64, currency string) (int64, error)
	Redeem(ctx context.Context, userID string, miles int64, reference string) error
}

type RiskScorer interface {
	Score(ctx context.Context, userID string, amountMinor int64, methodType string, attrs map[string]string) (float64, error)
}

type Notifier interface {
	PaymentConfirmed(ctx context.Context, userID, orderID string, amountMinor int64, currency string) error
}

type ReceiptScheduler interface {
	Schedule(ctx context.Context, orderID string) error
}

// --- Events ---

type PaymentEventMsg struct {
	IntentID    string `json:"intentId"`
	OrderID     string `json:"orderId"`
	UserID      string `json:"userId"`
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	Status      string `json:"status"` // "succeeded" | "failed"
	ChargeID    string `json:"chargeId,omitempty"`
	OccurredAt  string `json:"occurredAt"`
}

func (m PaymentEventMsg) Marshal() []byte {
	b, _ := json.Marshal(m)
	return b
}

type RateSource interface {
	Fetch(ctx context.Context, baseCurrency string) ([]domain.CurrencyRate, error)
}

// Clock lets tests pin time for TTL and refund-window boundaries.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func SystemClock() Clock { return realClock{} }

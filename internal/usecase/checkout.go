package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/logging"
)

type CheckoutConfig struct {
	MaxCartItems int
	SessionTTL   time.Duration
}

// CheckoutService is the top-level orchestrator: session creation, payment
// confirmation, and the follow-ups a paid order triggers.
type CheckoutService struct {
	sessions  SessionRepo
	cache     SessionCache
	methods   MethodRepo
	pricing   *PricingEngine
	payments  *PaymentService
	inventory InventoryClient
	loyalty   LoyaltyClient
	notifier  Notifier
	receipts  ReceiptScheduler
	clock     Clock
	cfg       CheckoutConfig

	supported func(string) bool
}

func NewCheckoutService(
	sessions SessionRepo,
	cache SessionCache,
	methods MethodRepo,
	pricing *PricingEngine,
	payments *PaymentService,
	inventory InventoryClient,
	loyalty LoyaltyClient,
	notifier Notifier,
	receipts ReceiptScheduler,
	clock Clock,
	cfg CheckoutConfig,
	supported func(string) bool,
) *CheckoutService {
	return &CheckoutService{
		sessions:  sessions,
		cache:     cache,
		methods:   methods,
		pricing:   pricing,
		payments:  payments,
		inventory: inventory,
		loyalty:   loyalty,
		notifier:  notifier,
		receipts:  receipts,
		clock:     clock,
		cfg:       cfg,
		supported: supported,
	}
}

type CreateSessionInput struct {
	UserID         string
	Items          []domain.CartItem
	Currency       string
	Billing        domain.BillingAddress
	ShippingOption string
	RedeemMiles    int64
	Tax            TaxQuery
}

// CreateSession validates the cart, confirms availability for every item, and
// prices the order. No charge exists after this call; an unavailable item
// aborts with no side effects.
func (s *CheckoutService) CreateSession(ctx context.Context, in CreateSessionInput) (*domain.CheckoutSession, error) {
	if len(in.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if len(in.Items) > s.cfg.MaxCartItems {
		return nil, fmt.Errorf("%d items (max %d): %w", len(in.Items), s.cfg.MaxCartItems, domain.ErrTooManyItems)
	}
	if !s.supported(in.Currency) {
		return nil, fmt.Errorf("%q: %w", in.Currency, domain.ErrUnsupportedCurrency)
	}
	if in.Billing.Street == "" || in.Billing.PostalCode == "" {
		return nil, domain.ErrInvalidAddress
	}

	if err := s.checkInventory(ctx, in.Items); err != nil {
		return nil, err
	}

	cart, err := s.pricing.Price(ctx, in.Items, in.Tax)
	if err != nil {
		return nil, err
	}

	var loyaltyMinor int64
	if in.RedeemMiles > 0 {
		loyaltyMinor, err = s.loyalty.RedemptionValue(ctx, in.UserID, in.RedeemMiles, in.Currency)
		if err != nil {
			return nil, fmt.Errorf("loyalty value: %w", err)
		}
	}

	due := s.pricing.AmountDue(cart, 0, 0, loyaltyMinor)
	due, err = s.pricing.ConvertTo(due, s.pricing.rates.BaseCurrency(), in.Currency)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.CheckoutSession{
		SessionID:       uuid.NewString(),
		UserID:          in.UserID,
		Items:           cart.Items,
		SubtotalMinor:   cart.SubtotalMinor,
		ServiceFeeMinor: cart.ServiceFeeMinor,
		TaxExemptMinor:  cart.TaxExemptMinor,
		LoyaltyMinor:    loyaltyMinor,
		AmountDueMinor:  due,
		Currency:        in.Currency,
		Billing:         in.Billing,
		ShippingOption:  in.ShippingOption,
		// The tax context must survive to confirm time: the intent is re-priced
		// there, and losing origin/destination would drop the exemption and
		// charge more than this session quotes.
		Tax: domain.TaxContext{
			Origin:        in.Tax.Origin,
			Destination:   in.Tax.Destination,
			UserResidency: in.Tax.UserResidency,
		},
		Status:    domain.SessionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if err := s.cache.Put(ctx, session); err != nil {
		logging.FromCtx(ctx).Warn("session cache put failed", "session_id", session.SessionID, "err", err)
	}
	return session, nil
}

type ConfirmSessionInput struct {
	SessionID      string
	MethodType     domain.MethodType
	PaymentToken   string
	MethodID       string
	RedeemMiles    int64
	IdempotencyKey string
}

type PaymentResult struct {
	Status    string `json:"status"` // success | failed | requires_action
	OrderID   string `json:"orderId,omitempty"`
	ChargeID  string `json:"chargeId,omitempty"`
	ActionURL string `json:"actionUrl,omitempty"`
}

// ConfirmSession runs one of three payment paths (card, wallet, loyalty miles)
// against a pending, unexpired session. Inventory is re-validated first: items
// may have sold out since the session was created, and we never charge for
// unavailable goods.
func (s *CheckoutService) ConfirmSession(ctx context.Context, in ConfirmSessionInput) (PaymentResult, error) {
	session, err := s.loadSession(ctx, in.SessionID)
	if err != nil {
		return PaymentResult{}, err
	}
	now := s.clock.Now()
	if session.Status != domain.SessionPending {
		return PaymentResult{}, fmt.Errorf("session %s is %s: %w", session.SessionID, session.Status, domain.ErrSessionInvalid)
	}
	if session.ExpiredAt(now, s.cfg.SessionTTL) {
		s.moveSession(ctx, session.SessionID, domain.SessionExpired)
		return PaymentResult{}, fmt.Errorf("session %s expired: %w", session.SessionID, domain.ErrSessionInvalid)
	}

	if err := s.checkInventory(ctx, session.Items); err != nil {
		return PaymentResult{}, err
	}

	token := in.PaymentToken
	if token == "" && in.MethodID != "" {
		m, err := s.methods.GetByID(ctx, in.MethodID)
		if err != nil || m.DeletedAt != nil || m.UserID != session.UserID {
			return PaymentResult{}, domain.ErrInvalidPaymentMethod
		}
		token = m.GatewayID
	}

	var result PaymentResult
	switch in.MethodType {
	case domain.MethodCard, domain.MethodWallet:
		result, err = s.confirmViaGateway(ctx, session, in, token)
	case domain.MethodLoyaltyMiles:
		result, err = s.confirmViaLoyalty(ctx, session, in)
	default:
		return PaymentResult{}, fmt.Errorf("%q: %w", in.MethodType, domain.ErrInvalidPaymentMethod)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrGatewayUnavailable) && !errors.Is(err, domain.ErrDuplicateRequest) {
			// Terminal outcome: the session failed, nothing is left charged.
			s.moveSession(ctx, session.SessionID, domain.SessionFailed)
		}
		return result, err
	}

	switch result.Status {
	case "success":
		s.settle(ctx, session, result)
	case string(ChargeRequiresAction):
		// Leave the session pending; the webhook settles it after the client
		// completes the challenge.
	default:
		s.moveSession(ctx, session.SessionID, domain.SessionFailed)
	}
	return result, nil
}

// moveSession transitions a pending session and drops the cached copy. The
// cache holds the pending snapshot from creation; leaving it in place would
// let a later confirm read pending again and charge a second time.
func (s *CheckoutService) moveSession(ctx context.Context, sessionID string, to domain.SessionStatus) {
	if _, err := s.sessions.UpdateStatusIf(ctx, sessionID, domain.SessionPending, to); err != nil {
		logging.FromCtx(ctx).Error("session status update", "session_id", sessionID, "to", string(to), "err", err)
	}
	if err := s.cache.Del(ctx, sessionID); err != nil {
		logging.FromCtx(ctx).Warn("session cache drop failed", "session_id", sessionID, "err", err)
	}
}

func (s *CheckoutService) confirmViaGateway(ctx context.Context, session *domain.CheckoutSession, in ConfirmSessionInput, token string) (PaymentResult, error) {
	intent, err := s.payments.CreateIntent(ctx, CreateIntentInput{
		UserID:      session.UserID,
		Currency:    session.Currency,
		Items:       session.Items,
		RedeemMiles: in.RedeemMiles,
		Tax: TaxQuery{
			Origin:        session.Tax.Origin,
			Destination:   session.Tax.Destination,
			UserResidency: session.Tax.UserResidency,
		},
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return PaymentResult{}, err
	}
	out, err := s.payments.ConfirmIntent(ctx, ConfirmIntentInput{
		IntentID:       intent.IntentID,
		PaymentToken:   token,
		MethodType:     in.MethodType,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentDeclined) || errors.Is(err, domain.ErrHighRisk) {
			return PaymentResult{Status: "failed"}, err
		}
		return PaymentResult{}, err
	}
	switch out.Status {
	case "succeeded", string(domain.IntentPendingReview):
		return PaymentResult{Status: "success", ChargeID: out.ChargeID}, nil
	case string(ChargeRequiresAction):
		return PaymentResult{Status: string(ChargeRequiresAction), ActionURL: out.ActionURL}, nil
	default:
		return PaymentResult{Status: "failed", ChargeID: out.ChargeID}, nil
	}
}

func (s *CheckoutService) confirmViaLoyalty(ctx context.Context, session *domain.CheckoutSession, in ConfirmSessionInput) (PaymentResult, error) {
	if in.RedeemMiles <= 0 {
		return PaymentResult{}, fmt.Errorf("loyalty path needs miles: %w", domain.ErrInvalidPaymentMethod)
	}
	value, err := s.loyalty.RedemptionValue(ctx, session.UserID, in.RedeemMiles, session.Currency)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("loyalty value: %w", err)
	}
	if value < session.AmountDueMinor {
		return PaymentResult{}, fmt.Errorf("miles cover %d of %d: %w", value, session.AmountDueMinor, domain.ErrInsufficientFunds)
	}
	if err := s.loyalty.Redeem(ctx, session.UserID, in.RedeemMiles, session.SessionID); err != nil {
		return PaymentResult{}, fmt.Errorf("loyalty redeem: %w", err)
	}
	return PaymentResult{Status: "success"}, nil
}

// settle runs post-payment follow-ups. Reservation and notification are
// best-effort externals; the receipt is scheduled without blocking the caller.
func (s *CheckoutService) settle(ctx context.Context, session *domain.CheckoutSession, result PaymentResult) {
	l := logging.FromCtx(ctx).With("session_id", session.SessionID)
	s.moveSession(ctx, session.SessionID, domain.SessionPaid)
	orderID := uuid.NewString()
	if err := s.inventory.Reserve(ctx, session.UserID, session.Items); err != nil {
		l.Error("inventory reserve after payment", "err", err)
	}
	if err := s.notifier.PaymentConfirmed(ctx, session.UserID, orderID, session.AmountDueMinor, session.Currency); err != nil {
		l.Warn("payment notification", "err", err)
	}
	if err := s.receipts.Schedule(ctx, orderID); err != nil {
		l.Warn("receipt schedule", "err", err)
	}
}

func (s *CheckoutService) loadSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	if cached, ok, err := s.cache.Get(ctx, sessionID); err == nil && ok {
		return cached, nil
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// checkInventory fails closed: an unavailable or unverifiable item aborts the
// checkout before any charge.
func (s *CheckoutService) checkInventory(ctx context.Context, items []domain.CartItem) error {
	for _, it := range items {
		ok, err := s.inventory.Available(ctx, it.SKU, it.Quantity)
		if err != nil {
			return fmt.Errorf("inventory check %s: %w", it.SKU, domain.ErrInsufficientInventory)
		}
		if !ok {
			return fmt.Errorf("sku %s: %w", it.SKU, domain.ErrInsufficientInventory)
		}
	}
	return nil
}

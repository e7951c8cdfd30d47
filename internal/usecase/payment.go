package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/logging"
)

// PaymentService owns the payment-intent lifecycle:
// initiated -> {authorized|failed|pending_review} -> captured -> refunded.
type PaymentService struct {
	intents IntentRepo
	pricing *PricingEngine
	fraud   *FraudRiskEngine
	gateway PaymentGateway
	loyalty LoyaltyClient
	idem    IdempotencyStore
	outbox  OutboxRepo
	clock   Clock

	supported func(string) bool
}

func NewPaymentService(
	intents IntentRepo,
	pricing *PricingEngine,
	fraud *FraudRiskEngine,
	gateway PaymentGateway,
	loyalty LoyaltyClient,
	idem IdempotencyStore,
	outbox OutboxRepo,
	clock Clock,
	supported func(string) bool,
) *PaymentService {
	return &PaymentService{
		intents:   intents,
		pricing:   pricing,
		fraud:     fraud,
		gateway:   gateway,
		loyalty:   loyalty,
		idem:      idem,
		outbox:    outbox,
		clock:     clock,
		supported: supported,
	}
}

type CreateIntentInput struct {
	UserID         string
	Currency       string
	Items          []domain.CartItem
	RedeemMiles    int64
	Tax            TaxQuery
	IdempotencyKey string
}

type CreateIntentOutput struct {
	IntentID          string `json:"intentId"`
	AmountMinor       int64  `json:"amountMinor"`
	Currency          string `json:"currency"`
	MerchantPublicKey string `json:"merchantPublicKey"`
	ClientSecret      string `json:"clientSecret"`
}

// CreateIntent prices the order, persists an initiated intent, and obtains a
// client secret from the gateway. No money moves here.
func (s *PaymentService) CreateIntent(ctx context.Context, in CreateIntentInput) (CreateIntentOutput, error) {
	const scope = "intent:create"
	if in.IdempotencyKey != "" {
		if cached, ok, _ := s.idem.Recall(ctx, scope, in.UserID+":"+in.IdempotencyKey); ok {
			var out CreateIntentOutput
			if err := json.Unmarshal(cached, &out); err == nil {
				return out, nil
			}
		}
	}

	if len(in.Items) == 0 {
		return CreateIntentOutput{}, domain.ErrEmptyCart
	}
	if !s.supported(in.Currency) {
		return CreateIntentOutput{}, fmt.Errorf("%q: %w", in.Currency, domain.ErrUnsupportedCurrency)
	}

	var lockHeld bool
	if in.IdempotencyKey != "" {
		ok, err := s.idem.TryLock(ctx, scope, in.UserID+":"+in.IdempotencyKey)
		if err != nil {
			return CreateIntentOutput{}, fmt.Errorf("idempotency lock: %w", err)
		}
		if !ok {
			return CreateIntentOutput{}, domain.ErrDuplicateRequest
		}
		lockHeld = true
	}
	// A lock with no cached response would turn every retry into a duplicate
	// until the TTL lapses; release it unless a response was remembered.
	defer func() {
		if lockHeld {
			_ = s.idem.Unlock(ctx, scope, in.UserID+":"+in.IdempotencyKey)
		}
	}()

	cart, err := s.pricing.Price(ctx, in.Items, in.Tax)
	if err != nil {
		return CreateIntentOutput{}, err
	}

	var loyaltyMinor int64
	if in.RedeemMiles > 0 {
		v, err := s.loyalty.RedemptionValue(ctx, in.UserID, in.RedeemMiles, in.Currency)
		if err != nil {
			return CreateIntentOutput{}, fmt.Errorf("loyalty value: %w", err)
		}
		loyaltyMinor = v
	}

	due := s.pricing.AmountDue(cart, 0, 0, loyaltyMinor)
	due, err = s.pricing.ConvertTo(due, s.pricing.rates.BaseCurrency(), in.Currency)
	if err != nil {
		return CreateIntentOutput{}, err
	}

	now := s.clock.Now()
	intent := &domain.PaymentIntent{
		IntentID:    uuid.NewString(),
		UserID:      in.UserID,
		OrderID:     uuid.NewString(),
		AmountMinor: due,
		Currency:    in.Currency,
		Status:      domain.IntentInitiated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return CreateIntentOutput{}, fmt.Errorf("persist intent: %w", err)
	}

	gi, err := s.gateway.CreateIntent(ctx, due, in.Currency, in.IdempotencyKey)
	if err != nil {
		return CreateIntentOutput{}, fmt.Errorf("gateway create intent: %w", err)
	}
	if err := s.intents.SetGatewayRef(ctx, intent.IntentID, gi.GatewayRef); err != nil {
		return CreateIntentOutput{}, fmt.Errorf("save gateway ref: %w", err)
	}

	out := CreateIntentOutput{
		IntentID:          intent.IntentID,
		AmountMinor:       due,
		Currency:          in.Currency,
		MerchantPublicKey: s.gateway.PublishableKey(),
		ClientSecret:      gi.ClientSecret,
	}
	if in.IdempotencyKey != "" {
		b, _ := json.Marshal(out)
		_ = s.idem.Remember(ctx, scope, in.UserID+":"+in.IdempotencyKey, b)
		lockHeld = false
	}
	return out, nil
}

type ConfirmIntentInput struct {
	IntentID       string
	PaymentToken   string
	MethodType     domain.MethodType
	IdempotencyKey string
	RiskAttrs      map[string]string
}

type ConfirmIntentOutput struct {
	ChargeID   string `json:"chargeId"`
	Status     string `json:"status"` // succeeded | failed | requires_action | pending_review
	ActionURL  string `json:"actionUrl,omitempty"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
}

// ConfirmIntent consumes an initiated intent exactly once. Fraud gating runs
// before any gateway call: a decline never reaches the gateway; a review marks
// pending_review, records the score, and still attempts authorization.
func (s *PaymentService) ConfirmIntent(ctx context.Context, in ConfirmIntentInput) (ConfirmIntentOutput, error) {
	const scope = "intent:confirm"
	key := in.IntentID + ":" + in.IdempotencyKey
	if in.IdempotencyKey != "" {
		if cached, ok, _ := s.idem.Recall(ctx, scope, key); ok {
			var out ConfirmIntentOutput
			if err := json.Unmarshal(cached, &out); err == nil {
				return out, nil
			}
		}
	}

	intent, err := s.intents.GetByID(ctx, in.IntentID)
	if err != nil {
		return ConfirmIntentOutput{}, err
	}
	if intent.Status != domain.IntentInitiated {
		// An intent is consumed exactly once; anything past initiated conflicts.
		return ConfirmIntentOutput{}, fmt.Errorf("intent %s in %s: %w", intent.IntentID, intent.Status, domain.ErrIntentConsumed)
	}
	switch in.MethodType {
	case domain.MethodCard, domain.MethodWallet:
	default:
		return ConfirmIntentOutput{}, fmt.Errorf("%q: %w", in.MethodType, domain.ErrInvalidPaymentMethod)
	}

	var lockHeld bool
	if in.IdempotencyKey != "" {
		ok, err := s.idem.TryLock(ctx, scope, key)
		if err != nil {
			return ConfirmIntentOutput{}, fmt.Errorf("idempotency lock: %w", err)
		}
		if !ok {
			return ConfirmIntentOutput{}, domain.ErrDuplicateRequest
		}
		lockHeld = true
	}
	// Transport failures return without a cached response; the same key must
	// be retryable, so the lock cannot outlive this call in that case.
	defer func() {
		if lockHeld {
			_ = s.idem.Unlock(ctx, scope, key)
		}
	}()

	l := logging.FromCtx(ctx).With("intent_id", intent.IntentID)

	risk := s.fraud.Check(ctx, intent.UserID, intent.AmountMinor, string(in.MethodType), in.RiskAttrs)
	score := risk.Score
	underReview := false
	switch risk.Decision {
	case DecisionDecline:
		// Blocked before the gateway is ever contacted; no charge exists.
		if err := s.intents.MarkOutcome(ctx, intent.IntentID, domain.IntentFailed, "", &score); err != nil {
			l.Error("mark declined intent failed", "err", err)
		}
		s.publish(ctx, intent, "failed", "")
		return ConfirmIntentOutput{}, fmt.Errorf("score %.2f: %w", score, domain.ErrHighRisk)
	case DecisionReview:
		underReview = true
		if _, err := s.intents.UpdateStatusIf(ctx, intent.IntentID, domain.IntentInitiated, domain.IntentPendingReview); err != nil {
			return ConfirmIntentOutput{}, fmt.Errorf("mark pending_review: %w", err)
		}
	}

	charge, err := s.gateway.ConfirmIntent(ctx, gatewayRefOrIntent(intent.GatewayRef, intent.IntentID), in.PaymentToken, in.IdempotencyKey)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentDeclined) {
			if err2 := s.intents.MarkOutcome(ctx, intent.IntentID, domain.IntentFailed, "", &score); err2 != nil {
				l.Error("mark declined intent failed", "err", err2)
			}
			s.publish(ctx, intent, "failed", "")
			out := ConfirmIntentOutput{Status: "failed"}
			s.remember(ctx, scope, key, in.IdempotencyKey, out)
			lockHeld = false
			return out, err
		}
		// Transport failure: leave the intent where it is; the webhook (or the
		// event stream) reconciles the real outcome. Safe to retry with the
		// same idempotency key.
		l.Warn("gateway confirm unavailable", "err", err)
		return ConfirmIntentOutput{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	var out ConfirmIntentOutput
	switch charge.Outcome {
	case ChargeRequiresAction:
		// Not terminal: the client completes the challenge; settlement arrives
		// via webhook. The intent stays consumable by that settlement only.
		out = ConfirmIntentOutput{Status: string(ChargeRequiresAction), ActionURL: charge.ActionURL}
	case ChargeSucceeded:
		final := domain.IntentCaptured
		statusStr := "succeeded"
		if underReview {
			// Held for human reconciliation; the money is authorized but the
			// intent is not reported captured.
			final = domain.IntentPendingReview
			statusStr = string(domain.IntentPendingReview)
		}
		if err := s.intents.MarkOutcome(ctx, intent.IntentID, final, charge.ChargeID, &score); err != nil {
			return ConfirmIntentOutput{}, fmt.Errorf("mark captured: %w", err)
		}
		if !underReview {
			s.publish(ctx, intent, "succeeded", charge.ChargeID)
		}
		out = ConfirmIntentOutput{ChargeID: charge.ChargeID, Status: statusStr}
	default:
		if err := s.intents.MarkOutcome(ctx, intent.IntentID, domain.IntentFailed, charge.ChargeID, &score); err != nil {
			l.Error("mark failed intent failed", "err", err)
		}
		s.publish(ctx, intent, "failed", charge.ChargeID)
		out = ConfirmIntentOutput{ChargeID: charge.ChargeID, Status: "failed"}
	}

	s.remember(ctx, scope, key, in.IdempotencyKey, out)
	lockHeld = false
	return out, nil
}

func (s *PaymentService) GetIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	return s.intents.GetByID(ctx, intentID)
}

func (s *PaymentService) remember(ctx context.Context, scope, key, idemKey string, out ConfirmIntentOutput) {
	if idemKey == "" {
		return
	}
	b, _ := json.Marshal(out)
	_ = s.idem.Remember(ctx, scope, key, b)
}

// publish enqueues a payment event through the outbox; the drainer delivers it
// to the broker. Losing the outbox row is recovered by webhook reconciliation.
func (s *PaymentService) publish(ctx context.Context, intent *domain.PaymentIntent, status, chargeID string) {
	msg := PaymentEventMsg{
		IntentID:    intent.IntentID,
		OrderID:     intent.OrderID,
		UserID:      intent.UserID,
		AmountMinor: intent.AmountMinor,
		Currency:    intent.Currency,
		Status:      status,
		ChargeID:    chargeID,
		OccurredAt:  s.clock.Now().Format(time.RFC3339Nano),
	}
	if err := s.outbox.Insert(ctx, "payment."+status, msg.Marshal()); err != nil {
		logging.FromCtx(ctx).Error("outbox insert failed", "intent_id", intent.IntentID, "err", err)
	}
}

func gatewayRefOrIntent(ref, intentID string) string {
	if ref != "" {
		return ref
	}
	return intentID
}

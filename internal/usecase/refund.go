package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/logging"
)

// RefundManager issues partial or full refunds against captured charges.
// The pending row is persisted before the gateway call, so a crash mid-call
// leaves an auditable pending record instead of a silently lost request.
type RefundManager struct {
	intents    IntentRepo
	refunds    RefundRepo
	gateway    PaymentGateway
	idem       IdempotencyStore
	clock      Clock
	windowDays int
}

func NewRefundManager(intents IntentRepo, refunds RefundRepo, gateway PaymentGateway, idem IdempotencyStore, clock Clock, windowDays int) *RefundManager {
	return &RefundManager{
		intents:    intents,
		refunds:    refunds,
		gateway:    gateway,
		idem:       idem,
		clock:      clock,
		windowDays: windowDays,
	}
}

type RefundInput struct {
	ChargeID       string
	AmountMinor    int64
	Reason         string
	IdempotencyKey string
}

type RefundOutput struct {
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
}

func (m *RefundManager) Initiate(ctx context.Context, in RefundInput) (RefundOutput, error) {
	const scope = "refund"
	key := in.ChargeID + ":" + in.IdempotencyKey
	if in.IdempotencyKey != "" {
		if cached, ok, _ := m.idem.Recall(ctx, scope, key); ok {
			var out RefundOutput
			if err := json.Unmarshal(cached, &out); err == nil {
				return out, nil
			}
		}
	}

	if in.AmountMinor <= 0 {
		return RefundOutput{}, domain.ErrInvalidAmount
	}

	intent, err := m.intents.GetByChargeID(ctx, in.ChargeID)
	if err != nil {
		return RefundOutput{}, fmt.Errorf("charge %s: %w", in.ChargeID, domain.ErrChargeNotFound)
	}
	if intent.Status != domain.IntentCaptured {
		return RefundOutput{}, fmt.Errorf("intent %s is %s: %w", intent.IntentID, intent.Status, domain.ErrChargeNotRefundable)
	}

	// Window check against capture time: one day past the window is rejected,
	// the day before is accepted.
	captured := intent.UpdatedAt
	if m.clock.Now().Sub(captured) > time.Duration(m.windowDays)*24*time.Hour {
		return RefundOutput{}, fmt.Errorf("%d days: %w", m.windowDays, domain.ErrRefundWindowExpired)
	}

	var lockHeld bool
	if in.IdempotencyKey != "" {
		ok, err := m.idem.TryLock(ctx, scope, key)
		if err != nil {
			return RefundOutput{}, fmt.Errorf("idempotency lock: %w", err)
		}
		if !ok {
			return RefundOutput{}, domain.ErrDuplicateRequest
		}
		lockHeld = true
	}
	// Released unless a response gets cached, so a failed attempt can be
	// retried under the same key instead of reading as a duplicate.
	defer func() {
		if lockHeld {
			_ = m.idem.Unlock(ctx, scope, key)
		}
	}()

	now := m.clock.Now()
	refund := &domain.Refund{
		RefundID:    uuid.NewString(),
		ChargeID:    in.ChargeID,
		AmountMinor: in.AmountMinor,
		Status:      domain.RefundPending,
		Reason:      in.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// The repo re-checks sum(succeeded)+amount <= captured under a row lock,
	// so concurrent requests serialize on the charge.
	if err := m.refunds.CreatePendingLocked(ctx, refund, intent.AmountMinor); err != nil {
		return RefundOutput{}, err
	}

	gr, err := m.gateway.Refund(ctx, in.ChargeID, in.AmountMinor, in.IdempotencyKey)
	if err != nil {
		// Ambiguous or failed: the pending row stays; webhook reconciliation
		// decides the final status.
		logging.FromCtx(ctx).Warn("gateway refund unresolved",
			"refund_id", refund.RefundID, "charge_id", in.ChargeID, "err", err)
		out := RefundOutput{RefundID: refund.RefundID, Status: string(domain.RefundPending)}
		m.remember(ctx, scope, key, in.IdempotencyKey, out)
		lockHeld = false
		return out, nil
	}

	status := domain.RefundFailed
	if gr.Succeeded {
		status = domain.RefundSucceeded
	}
	if err := m.refunds.UpdateStatus(ctx, refund.RefundID, status, ""); err != nil {
		logging.FromCtx(ctx).Error("refund status update failed",
			"refund_id", refund.RefundID, "err", err)
	}
	out := RefundOutput{RefundID: refund.RefundID, Status: string(status)}
	m.remember(ctx, scope, key, in.IdempotencyKey, out)
	lockHeld = false
	return out, nil
}

func (m *RefundManager) remember(ctx context.Context, scope, key, idemKey string, out RefundOutput) {
	if idemKey == "" {
		return
	}
	b, _ := json.Marshal(out)
	_ = m.idem.Remember(ctx, scope, key, b)
}

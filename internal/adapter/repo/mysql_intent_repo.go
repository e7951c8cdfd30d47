package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

var ErrNotFound = errors.New("not found")

type MySQLIntentRepo struct{ db *sql.DB }

func NewMySQLIntentRepo(db *sql.DB) *MySQLIntentRepo { return &MySQLIntentRepo{db: db} }

func (r *MySQLIntentRepo) Create(ctx context.Context, in *domain.PaymentIntent) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO payment_intents (intent_id,user_id,order_id,amount_minor,currency,status,payment_method,gateway_ref,gateway_charge_id,risk_score,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,NOW(),NOW())
`, in.IntentID, in.UserID, in.OrderID, in.AmountMinor, in.Currency, in.Status, in.PaymentMethod, in.GatewayRef, in.GatewayChargeID, in.RiskScore)
	return err
}

func (r *MySQLIntentRepo) GetByID(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	return r.getWhere(ctx, `intent_id=?`, intentID)
}

func (r *MySQLIntentRepo) GetByChargeID(ctx context.Context, chargeID string) (*domain.PaymentIntent, error) {
	return r.getWhere(ctx, `gateway_charge_id=?`, chargeID)
}

func (r *MySQLIntentRepo) GetByGatewayRef(ctx context.Context, gatewayRef string) (*domain.PaymentIntent, error) {
	return r.getWhere(ctx, `gateway_ref=?`, gatewayRef)
}

func (r *MySQLIntentRepo) getWhere(ctx context.Context, where string, arg any) (*domain.PaymentIntent, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT intent_id,user_id,order_id,amount_minor,currency,status,payment_method,gateway_ref,gateway_charge_id,risk_score,created_at,updated_at
FROM payment_intents WHERE `+where, arg)
	var in domain.PaymentIntent
	var gatewayRef, chargeID sql.NullString
	var risk sql.NullFloat64
	err := row.Scan(&in.IntentID, &in.UserID, &in.OrderID, &in.AmountMinor, &in.Currency, &in.Status,
		&in.PaymentMethod, &gatewayRef, &chargeID, &risk, &in.CreatedAt, &in.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	in.GatewayRef = gatewayRef.String
	in.GatewayChargeID = chargeID.String
	if risk.Valid {
		in.RiskScore = &risk.Float64
	}
	return &in, nil
}

func (r *MySQLIntentRepo) UpdateStatusIf(ctx context.Context, intentID string, from, to domain.IntentStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE payment_intents
        SET status = ?, updated_at = NOW()
        WHERE intent_id = ? AND status = ?`,
		to, intentID, from,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// rows == 0 -> nothing matched (either not found or status mismatch)
	return rows > 0, nil
}

func (r *MySQLIntentRepo) MarkOutcome(ctx context.Context, intentID string, status domain.IntentStatus, gatewayChargeID string, riskScore *float64) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE payment_intents
        SET status = ?, gateway_charge_id = NULLIF(?,''), risk_score = COALESCE(?, risk_score), updated_at = NOW()
        WHERE intent_id = ?`,
		status, gatewayChargeID, riskScore, intentID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MySQLIntentRepo) SetGatewayRef(ctx context.Context, intentID, gatewayRef string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE payment_intents
        SET gateway_ref = ?, updated_at = NOW()
        WHERE intent_id = ?`,
		gatewayRef, intentID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CaptureByGatewayRef is the webhook reconciliation write. The status guard
// makes redelivery a no-op once the intent is captured or refunded.
func (r *MySQLIntentRepo) CaptureByGatewayRef(ctx context.Context, gatewayRef, chargeID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE payment_intents
        SET status = 'captured', gateway_charge_id = ?, updated_at = NOW()
        WHERE gateway_ref = ? AND status IN ('initiated','authorized','pending_review')`,
		chargeID, gatewayRef,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *MySQLIntentRepo) FailByGatewayRef(ctx context.Context, gatewayRef string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE payment_intents
        SET status = 'failed', updated_at = NOW()
        WHERE gateway_ref = ? AND status IN ('initiated','authorized','pending_review')`,
		gatewayRef,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

var _ usecase.IntentRepo = (*MySQLIntentRepo)(nil)

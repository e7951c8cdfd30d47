package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

type MySQLRefundRepo struct{ db *sql.DB }

func NewMySQLRefundRepo(db *sql.DB) *MySQLRefundRepo { return &MySQLRefundRepo{db: db} }

// CreatePendingLocked inserts the pending row inside one transaction that
// locks the parent intent row first. Two concurrent refunds for the same
// charge serialize here, so the cumulative cap is checked against committed
// state, never a stale read.
func (r *MySQLRefundRepo) CreatePendingLocked(ctx context.Context, ref *domain.Refund, capturedMinor int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var lockedID string
	err = tx.QueryRowContext(ctx, `
SELECT intent_id FROM payment_intents WHERE gateway_charge_id=? FOR UPDATE`, ref.ChargeID).Scan(&lockedID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrChargeNotFound
	}
	if err != nil {
		return err
	}

	var succeeded sql.NullInt64
	err = tx.QueryRowContext(ctx, `
SELECT COALESCE(SUM(amount_minor),0) FROM refunds WHERE charge_id=? AND status IN ('succeeded','pending')`,
		ref.ChargeID).Scan(&succeeded)
	if err != nil {
		return err
	}
	if succeeded.Int64+ref.AmountMinor > capturedMinor {
		return fmt.Errorf("refunded %d + %d > captured %d: %w",
			succeeded.Int64, ref.AmountMinor, capturedMinor, domain.ErrRefundExceedsCharge)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO refunds (refund_id,charge_id,amount_minor,status,reason,failure_reason,created_at,updated_at)
VALUES (?,?,?,?,?,'',NOW(),NOW())
`, ref.RefundID, ref.ChargeID, ref.AmountMinor, ref.Status, ref.Reason)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MySQLRefundRepo) UpdateStatus(ctx context.Context, refundID string, status domain.RefundStatus, failureReason string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE refunds
        SET status = ?, failure_reason = ?, updated_at = NOW()
        WHERE refund_id = ?`,
		status, failureReason, refundID,
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

func (r *MySQLRefundRepo) SucceededTotal(ctx context.Context, chargeID string) (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
SELECT COALESCE(SUM(amount_minor),0) FROM refunds WHERE charge_id=? AND status='succeeded'`,
		chargeID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// MarkSucceededByCharge flips pending rows for webhook reconciliation.
// Zero rows changed is a valid no-op on redelivery.
func (r *MySQLRefundRepo) MarkSucceededByCharge(ctx context.Context, chargeID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE refunds
        SET status = 'succeeded', updated_at = NOW()
        WHERE charge_id = ? AND status = 'pending'`,
		chargeID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ usecase.RefundRepo = (*MySQLRefundRepo)(nil)

package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

// MySQLMethodRepo stores tokenized instruments. Rows are only ever
// soft-deleted (deleted_at), and at most one row per user is default.
type MySQLMethodRepo struct{ db *sql.DB }

func NewMySQLMethodRepo(db *sql.DB) *MySQLMethodRepo { return &MySQLMethodRepo{db: db} }

const methodColumns = `method_id,user_id,type,gateway_id,card_brand,last4,exp_month,exp_year,is_default,created_at,deleted_at`

func (r *MySQLMethodRepo) GetByID(ctx context.Context, methodID string) (*domain.PaymentMethod, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+methodColumns+` FROM payment_methods WHERE method_id=?`, methodID)
	return scanMethod(row)
}

func (r *MySQLMethodRepo) GetDefault(ctx context.Context, userID string) (*domain.PaymentMethod, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+methodColumns+` FROM payment_methods
WHERE user_id=? AND is_default=1 AND deleted_at IS NULL`, userID)
	return scanMethod(row)
}

func (r *MySQLMethodRepo) Save(ctx context.Context, m *domain.PaymentMethod) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO payment_methods (`+methodColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,NOW(),NULL)
`, m.MethodID, m.UserID, m.Type, m.GatewayID, m.CardBrand, m.Last4, m.ExpMonth, m.ExpYear, m.IsDefault)
	return err
}

// SetDefault clears the previous default and sets the new one in one
// transaction, preserving the at-most-one-default invariant.
func (r *MySQLMethodRepo) SetDefault(ctx context.Context, userID, methodID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
UPDATE payment_methods SET is_default=0 WHERE user_id=? AND is_default=1`, userID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
UPDATE payment_methods SET is_default=1 WHERE method_id=? AND user_id=? AND deleted_at IS NULL`, methodID, userID)
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
	return tx.Commit()
}

// SoftDelete keeps the row for audit; there is no hard delete.
func (r *MySQLMethodRepo) SoftDelete(ctx context.Context, methodID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE payment_methods SET deleted_at=NOW(), is_default=0 WHERE method_id=? AND deleted_at IS NULL`, methodID)
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

func (r *MySQLMethodRepo) ListByUser(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+methodColumns+` FROM payment_methods WHERE user_id=? AND deleted_at IS NULL ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentMethod
	for rows.Next() {
		m, err := scanMethodRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanMethod(row rowScanner) (*domain.PaymentMethod, error) {
	m, err := scanMethodRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidPaymentMethod
	}
	return m, err
}

func scanMethodRows(row rowScanner) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	var deleted sql.NullTime
	if err := row.Scan(&m.MethodID, &m.UserID, &m.Type, &m.GatewayID, &m.CardBrand, &m.Last4,
		&m.ExpMonth, &m.ExpYear, &m.IsDefault, &m.CreatedAt, &deleted); err != nil {
		return nil, err
	}
	if deleted.Valid {
		t := deleted.Time
		m.DeletedAt = &t
	}
	return &m, nil
}

var _ usecase.MethodRepo = (*MySQLMethodRepo)(nil)

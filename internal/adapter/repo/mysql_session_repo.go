package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

type MySQLSessionRepo struct{ db *sql.DB }

func NewMySQLSessionRepo(db *sql.DB) *MySQLSessionRepo { return &MySQLSessionRepo{db: db} }

// Cart lines and the billing address ride along as JSON columns; the pricing
// fields that queries need are first-class columns.
type sessionDoc struct {
	Items   []domain.CartItem     `json:"items"`
	Billing domain.BillingAddress `json:"billing"`
	Tax     domain.TaxContext     `json:"tax"`
}

func (r *MySQLSessionRepo) Create(ctx context.Context, s *domain.CheckoutSession) error {
	doc, err := json.Marshal(sessionDoc{Items: s.Items, Billing: s.Billing, Tax: s.Tax})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO checkout_sessions (session_id,user_id,cart_json,subtotal_minor,tax_minor,service_fee_minor,tax_exempt_minor,loyalty_minor,amount_due_minor,currency,shipping_option,status,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,NOW(),NOW())
`, s.SessionID, s.UserID, doc, s.SubtotalMinor, s.TaxMinor, s.ServiceFeeMinor, s.TaxExemptMinor,
		s.LoyaltyMinor, s.AmountDueMinor, s.Currency, s.ShippingOption, s.Status)
	return err
}

func (r *MySQLSessionRepo) GetByID(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT session_id,user_id,cart_json,subtotal_minor,tax_minor,service_fee_minor,tax_exempt_minor,loyalty_minor,amount_due_minor,currency,shipping_option,status,created_at,updated_at
FROM checkout_sessions WHERE session_id=?`, sessionID)

	var s domain.CheckoutSession
	var doc []byte
	err := row.Scan(&s.SessionID, &s.UserID, &doc, &s.SubtotalMinor, &s.TaxMinor, &s.ServiceFeeMinor,
		&s.TaxExemptMinor, &s.LoyaltyMinor, &s.AmountDueMinor, &s.Currency, &s.ShippingOption,
		&s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var d sessionDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, err
	}
	s.Items = d.Items
	s.Billing = d.Billing
	s.Tax = d.Tax
	return &s, nil
}

func (r *MySQLSessionRepo) UpdateStatusIf(ctx context.Context, sessionID string, from, to domain.SessionStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE checkout_sessions
        SET status = ?, updated_at = NOW()
        WHERE session_id = ? AND status = ?`,
		to, sessionID, from,
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

var _ usecase.SessionRepo = (*MySQLSessionRepo)(nil)

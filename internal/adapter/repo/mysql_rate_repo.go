package repo

import (
	"context"
	"database/sql"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

type MySQLRateRepo struct{ db *sql.DB }

func NewMySQLRateRepo(db *sql.DB) *MySQLRateRepo { return &MySQLRateRepo{db: db} }

func (r *MySQLRateRepo) UpsertAll(ctx context.Context, rates []domain.CurrencyRate) error {
	for _, rate := range rates {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO currency_rates (currency_code,rate_micros,fetched_at)
VALUES (?,?,?)
ON DUPLICATE KEY UPDATE rate_micros=VALUES(rate_micros), fetched_at=VALUES(fetched_at)
`, rate.CurrencyCode, rate.RateMicros, rate.FetchedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *MySQLRateRepo) All(ctx context.Context) ([]domain.CurrencyRate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT currency_code,rate_micros,fetched_at FROM currency_rates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CurrencyRate
	for rows.Next() {
		var rate domain.CurrencyRate
		if err := rows.Scan(&rate.CurrencyCode, &rate.RateMicros, &rate.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

var _ usecase.RateRepo = (*MySQLRateRepo)(nil)

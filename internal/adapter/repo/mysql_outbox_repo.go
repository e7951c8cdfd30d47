package repo

import (
	"context"
	"database/sql"

	"github.com/skymall/checkout-api/internal/usecase"
)

type MySQLOutboxRepo struct{ db *sql.DB }

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

func (r *MySQLOutboxRepo) Insert(ctx context.Context, routingKey string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO outbox (routing_key,payload,status,retry_count,next_attempt_at,created_at)
VALUES (?, ?, 'PENDING', 0, NOW(), NOW())
`, routingKey, payload)
	return err
}

func (r *MySQLOutboxRepo) FetchPending(ctx context.Context, limit int) ([]usecase.OutboxRow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,routing_key,payload FROM outbox
WHERE status='PENDING' AND next_attempt_at <= NOW()
ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.OutboxRow
	for rows.Next() {
		var row usecase.OutboxRow
		if err := rows.Scan(&row.ID, &row.RoutingKey, &row.Payload); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) MarkSent(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status='SENT' WHERE id=?`, id)
	return err
}

// MarkFailed backs the row off a minute and counts the retry; the drainer
// picks it up again on a later pass.
func (r *MySQLOutboxRepo) MarkFailed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET retry_count=retry_count+1, next_attempt_at=NOW() + INTERVAL 1 MINUTE WHERE id=?`, id)
	return err
}

var _ usecase.OutboxRepo = (*MySQLOutboxRepo)(nil)

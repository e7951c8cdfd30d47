package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/usecase"
)

type MySQLWebhookEventRepo struct{ db *sql.DB }

func NewMySQLWebhookEventRepo(db *sql.DB) *MySQLWebhookEventRepo {
	return &MySQLWebhookEventRepo{db: db}
}

// Insert stores the raw event keyed by event_id. A duplicate key means the
// gateway redelivered; that is reported as (false, nil), not an error.
func (r *MySQLWebhookEventRepo) Insert(ctx context.Context, ev *domain.WebhookEvent) (bool, error) {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO webhook_events (event_id,gateway,event_type,payload,received_at)
VALUES (?,?,?,?,?)
`, ev.EventID, ev.Gateway, ev.EventType, []byte(ev.Payload), ev.ReceivedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ usecase.WebhookEventRepo = (*MySQLWebhookEventRepo)(nil)

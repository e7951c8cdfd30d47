package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/skymall/checkout-api/internal/usecase"
)

// OutboxDrainer moves rows written transactionally by the usecases onto the
// broker. Publish failures leave the row pending with a backoff, so an event
// is delivered at least once but never lost to a broker outage.
type OutboxDrainer struct {
	repo     usecase.OutboxRepo
	producer *RabbitProducer
	log      *slog.Logger
	interval time.Duration
	batch    int
}

func NewOutboxDrainer(repo usecase.OutboxRepo, producer *RabbitProducer, log *slog.Logger, interval time.Duration, batch int) *OutboxDrainer {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &OutboxDrainer{repo: repo, producer: producer, log: log, interval: interval, batch: batch}
}

// Run blocks until ctx is cancelled. Callers start it in its own goroutine.
func (d *OutboxDrainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drainOnce(ctx)
		}
	}
}

func (d *OutboxDrainer) drainOnce(ctx context.Context) {
	rows, err := d.repo.FetchPending(ctx, d.batch)
	if err != nil {
		d.log.Error("outbox fetch failed", "err", err)
		return
	}
	for _, row := range rows {
		if err := d.producer.Publish(ctx, row.RoutingKey, row.Payload); err != nil {
			d.log.Error("outbox publish failed", "id", row.ID, "routingKey", row.RoutingKey, "err", err)
			if err := d.repo.MarkFailed(ctx, row.ID); err != nil {
				d.log.Error("outbox mark failed errored", "id", row.ID, "err", err)
			}
			continue
		}
		if err := d.repo.MarkSent(ctx, row.ID); err != nil {
			d.log.Error("outbox mark sent errored", "id", row.ID, "err", err)
		}
	}
}

package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"clothstock/store"
)

// Publisher is the part of Client the drainer needs.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// OutboxDrainer periodically sends pending outbox messages.
type OutboxDrainer struct {
	db        *store.DB
	pub       Publisher
	interval  time.Duration
	batchSize int
	log       *zap.Logger
}

func NewOutboxDrainer(db *store.DB, pub Publisher, interval time.Duration, batchSize int, log *zap.Logger) *OutboxDrainer {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &OutboxDrainer{
		db:        db,
		pub:       pub,
		interval:  interval,
		batchSize: batchSize,
		log:       log.Named("outbox"),
	}
}

// Run drains on every tick until ctx is cancelled.
func (d *OutboxDrainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain publishes one batch and returns how many messages were acked.
// A failed publish bumps the row's retry count and leaves it pending.
func (d *OutboxDrainer) Drain(ctx context.Context) int {
	msgs, err := d.db.ListPendingOutbox(ctx, d.batchSize)
	if err != nil {
		d.log.Error("list pending", zap.Error(err))
		return 0
	}
	sent := 0
	for _, msg := range msgs {
		if err := d.pub.Publish(ctx, msg.Topic, msg.EventID, msg.Payload); err != nil {
			d.log.Warn("publish failed",
				zap.String("topic", msg.Topic),
				zap.Int64("outbox_id", msg.ID),
				zap.Int("retries", msg.Retries+1),
				zap.Error(err))
			if err := d.db.IncrementOutboxRetries(ctx, msg.ID); err != nil {
				d.log.Error("increment retries", zap.Int64("outbox_id", msg.ID), zap.Error(err))
			}
			continue
		}
		if err := d.db.AckOutbox(ctx, msg.ID); err != nil {
			d.log.Error("ack", zap.Int64("outbox_id", msg.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

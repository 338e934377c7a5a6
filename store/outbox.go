package store

import (
	"context"
	"fmt"
)

type OutboxMessage struct {
	ID        int64      `db:"id"`
	EventID   string     `db:"event_id"`
	Topic     string     `db:"topic"`
	MsgType   string     `db:"msg_type"`
	Payload   []byte     `db:"payload"`
	Retries   int        `db:"retries"`
	CreatedAt Timestamp  `db:"created_at"`
	SentAt    *Timestamp `db:"sent_at"`
}

// EnqueueOutbox writes a message in the caller's transaction so that it
// is published only if the surrounding write commits.
func (tx *Tx) EnqueueOutbox(ctx context.Context, eventID, topic, msgType string, payload []byte) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO outbox (event_id, topic, msg_type, payload) VALUES (?, ?, ?, ?)`),
		eventID, topic, msgType, payload)
	if err != nil {
		return fmt.Errorf("enqueue outbox: %w", err)
	}
	return nil
}

func (db *DB) ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error) {
	var msgs []OutboxMessage
	err := db.SelectContext(ctx, &msgs, db.Rebind(`SELECT id, event_id, topic, msg_type, payload, retries, created_at, sent_at
FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	return msgs, nil
}

func (db *DB) AckOutbox(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, db.Rebind(`UPDATE outbox SET sent_at=`+db.dialect.Now()+` WHERE id=?`), id)
	return err
}

func (db *DB) IncrementOutboxRetries(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, db.Rebind(`UPDATE outbox SET retries=retries+1 WHERE id=?`), id)
	return err
}

package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const MsgMovementRecorded = "stock.movement.recorded"

// Envelope wraps every outbound message.
type Envelope struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// MovementRecorded announces a committed stock movement.
type MovementRecorded struct {
	MovementID   int64  `json:"movement_id"`
	ItemID       int64  `json:"item_id"`
	MovementType string `json:"movement_type"`
	Quantity     int64  `json:"quantity"`
	Delta        int64  `json:"delta"`
	SupplierID   *int64 `json:"supplier_id"`
	Actor        string `json:"actor"`
}

// NewEnvelope creates an outbound envelope with a new UUID and timestamp.
func NewEnvelope(msgType string, payload any) *Envelope {
	return &Envelope{
		EventID:    uuid.New().String(),
		Type:       msgType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Type, err)
	}
	return data, nil
}

type rawEnvelope struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// DecodeEnvelope decodes the envelope first and then the payload named by
// its type.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	env := &Envelope{EventID: raw.EventID, Type: raw.Type, OccurredAt: raw.OccurredAt}
	switch raw.Type {
	case MsgMovementRecorded:
		var p MovementRecorded
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", raw.Type, err)
		}
		env.Payload = p
	default:
		return nil, fmt.Errorf("unknown message type: %s", raw.Type)
	}
	return env, nil
}

package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Envelope is the wire form of a domain event
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps evt, embedding its JSON form as the payload
func NewEnvelope(evt shared.DomainEvent) (*Envelope, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", evt.EventType(), err)
	}
	return &Envelope{
		ID:            evt.EventID(),
		Type:          evt.EventType(),
		AggregateType: evt.AggregateType(),
		AggregateID:   evt.AggregateID(),
		OccurredAt:    evt.OccurredAt().UTC(),
		Payload:       payload,
	}, nil
}

// Encode returns the envelope as JSON
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses data produced by Encode
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("decode envelope: missing type")
	}
	return &env, nil
}

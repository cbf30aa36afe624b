// Package events publishes shipment lifecycle events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeShipmentCreated = "shipment.created"
	TypeShipmentDeleted = "shipment.deleted"
)

// Event is a domain event awaiting publication.
type Event struct {
	Type string
	// Key groups events for ordering, usually the shipment ID.
	Key  string
	Data any
}

// Envelope is the wire format of a published event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Encode wraps an event in an envelope and marshals it to JSON.
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", e.Type, err)
	}

	return json.Marshal(Envelope{
		ID:         "evt_" + uuid.New().String()[:22],
		Type:       e.Type,
		Key:        e.Key,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }

var _ Publisher = NoopPublisher{}

package pubsub

import (
	"time"

	"github.com/google/uuid"
)

type Meta struct {
	// Trace / request correlation ID
	CorrelationID *string   `json:"correlation_id,omitempty"`
	ID            string    `json:"id"`
	Producer      *string   `json:"producer,omitempty"`
	Time          time.Time `json:"time"`
	// Event name and version, e.g. notifications.whatsapp.outbound.v1
	Type string `json:"type"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewEnvelope stamps data with a fresh id and the current time. An empty
// correlationID is omitted.
func NewEnvelope(eventType, producer, correlationID string, data any) Envelope {
	meta := Meta{
		ID:   uuid.NewString(),
		Time: time.Now().UTC(),
		Type: eventType,
	}
	if producer != "" {
		meta.Producer = &producer
	}
	if correlationID != "" {
		meta.CorrelationID = &correlationID
	}
	return Envelope{Meta: meta, Data: data}
}

package alerts

import (
	"context"

	"sales-routing-backend/internal/pubsub"
)

const (
	OutboundRoutingKey = "notifications.whatsapp.outbound"
	OutboundEventType  = "notifications.whatsapp.outbound.v1"
)

type OutboundMessage struct {
	AlertID        string   `json:"alert_id"`
	To             string   `json:"to"`
	Body           string   `json:"body"`
	SellerID       string   `json:"seller_id,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Reason         Reason   `json:"reason"`
	Priority       Priority `json:"priority"`
}

// QueueTransport hands messages to a downstream sender through the broker.
type QueueTransport struct {
	publisher pubsub.Publisher
	producer  string
}

func NewQueueTransport(publisher pubsub.Publisher, producer string) *QueueTransport {
	return &QueueTransport{publisher: publisher, producer: producer}
}

func (t *QueueTransport) Deliver(ctx context.Context, msg Message) error {
	env := pubsub.NewEnvelope(OutboundEventType, t.producer, msg.ConversationID, OutboundMessage{
		AlertID:        msg.AlertID,
		To:             PhoneNumber(msg.To),
		Body:           msg.Text,
		SellerID:       msg.SellerID,
		ConversationID: msg.ConversationID,
		Reason:         msg.Reason,
		Priority:       msg.Priority,
	})
	return t.publisher.Publish(ctx, OutboundRoutingKey, env)
}

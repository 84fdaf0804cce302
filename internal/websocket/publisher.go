package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"sales-routing-backend/internal/service/alerts"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

// RedisPublisher is the slice of *redis.Client the feed publisher uses.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher mirrors dispatched alerts to the seller room and the all-alerts room.
type Publisher struct {
	client  RedisPublisher
	logger  *slog.Logger
	metrics *metrics
}

func NewPublisher(client RedisPublisher, logger *slog.Logger, reg prometheus.Registerer) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:  client,
		logger:  logger.With(slog.String("component", "alert_feed")),
		metrics: newPublisherMetrics(reg),
	}
}

func (p *Publisher) PublishAlert(ctx context.Context, a alerts.Alert) error {
	payload, err := json.Marshal(AlertEvent{
		ID:             a.ID,
		SellerID:       a.SellerID,
		ConversationID: a.ConversationID,
		CustomerLabel:  a.CustomerLabel,
		Reason:         string(a.Reason),
		Priority:       string(a.Priority),
		Status:         string(a.Status),
		Message:        a.Message,
		CreatedAt:      a.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("alert feed: marshal alert: %w", err)
	}

	rooms := []string{AlertRoomAll}
	if a.SellerID != "" {
		rooms = append(rooms, AlertRoom(a.SellerID))
	}

	var errs []error
	for _, room := range rooms {
		if err := p.client.Publish(ctx, room, string(payload)).Err(); err != nil {
			errs = append(errs, fmt.Errorf("alert feed: publish %s: %w", room, err))
			p.metrics.publish("failed")
			continue
		}
		p.metrics.publish("published")
	}
	return errors.Join(errs...)
}

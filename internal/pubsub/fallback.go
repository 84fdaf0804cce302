package pubsub

import (
	"context"
	"log/slog"
)

// FallbackPublisher stands in when no broker is configured; it logs and drops.
type FallbackPublisher struct {
	log *slog.Logger
}

func (p *FallbackPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	p.log.Warn("FallbackPublisher: skipped publish",
		slog.String("key", key),
		slog.String("type", msg.Meta.Type),
		slog.String("id", msg.Meta.ID))
	return nil
}

func (p *FallbackPublisher) Close() error {
	return nil
}

func NewFallback(logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackPublisher{
		log: logger,
	}
}

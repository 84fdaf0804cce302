// Package flowstore keeps per-conversation flow state as flat string fields.
package flowstore

import "context"

type Store interface {
	// Get returns every field stored for the conversation, or an empty map.
	Get(ctx context.Context, conversationID string) (map[string]string, error)
	// Set merges fields into the conversation's state.
	Set(ctx context.Context, conversationID string, fields map[string]string) error
	// Delete removes the named fields, or the whole state when none are named.
	Delete(ctx context.Context, conversationID string, fields ...string) error
}

package flowstore

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	state map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(ctx context.Context, conversationID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.state[conversationID]))
	for k, v := range m.state[conversationID] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, conversationID string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.state[conversationID]
	if !ok {
		current = make(map[string]string, len(fields))
		m.state[conversationID] = current
	}
	for k, v := range fields {
		current[k] = v
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, conversationID string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(fields) == 0 {
		delete(m.state, conversationID)
		return nil
	}
	current := m.state[conversationID]
	for _, f := range fields {
		delete(current, f)
	}
	if len(current) == 0 {
		delete(m.state, conversationID)
	}
	return nil
}

package store

import (
	"context"
	"sync"

	"github.com/visionary-dev/visionary/internal/document"
	"github.com/visionary-dev/visionary/pkg/chat"
)

// MemoryStore keeps the workspace in process memory. It is the default
// backend and the one tests use.
type MemoryStore struct {
	mu         sync.RWMutex
	history    []chat.Message
	hasHistory bool
	doc        document.State
	hasDoc     bool
	credential string
	hasCred    bool
	closed     bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadHistory implements Store.
func (m *MemoryStore) LoadHistory(ctx context.Context) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	if !m.hasHistory {
		return nil, ErrNotFound
	}
	out := make([]chat.Message, len(m.history))
	copy(out, m.history)
	return out, nil
}

// SaveHistory implements Store.
func (m *MemoryStore) SaveHistory(ctx context.Context, messages []chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.history = make([]chat.Message, len(messages))
	copy(m.history, messages)
	m.hasHistory = true
	return nil
}

// LoadDocument implements Store.
func (m *MemoryStore) LoadDocument(ctx context.Context) (document.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return document.State{}, ErrStoreClosed
	}
	if !m.hasDoc {
		return document.State{}, ErrNotFound
	}
	return m.doc, nil
}

// SaveDocument implements Store.
func (m *MemoryStore) SaveDocument(ctx context.Context, state document.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.doc = state
	m.hasDoc = true
	return nil
}

// LoadCredential implements Store.
func (m *MemoryStore) LoadCredential(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrStoreClosed
	}
	if !m.hasCred {
		return "", ErrNotFound
	}
	return m.credential, nil
}

// SaveCredential implements Store.
func (m *MemoryStore) SaveCredential(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.credential = key
	m.hasCred = true
	return nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.history = nil
	m.hasHistory = false
	m.doc = document.State{}
	m.hasDoc = false
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

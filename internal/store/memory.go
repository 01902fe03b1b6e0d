package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps documents in process memory. It serves tests and
// STORE_BACKEND=memory development runs; nothing survives a restart.
type MemoryBackend struct {
	mu    sync.RWMutex
	docs  map[string]map[string][]byte
	order map[string][]string
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		docs:  make(map[string]map[string][]byte),
		order: make(map[string][]string),
	}
}

func (m *MemoryBackend) Insert(ctx context.Context, resourceType, id string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.docs[resourceType]
	if !ok {
		byID = make(map[string][]byte)
		m.docs[resourceType] = byID
	}
	if _, taken := byID[id]; taken {
		return ErrAlreadyExists
	}
	byID[id] = clone(doc)
	m.order[resourceType] = append(m.order[resourceType], id)
	return nil
}

func (m *MemoryBackend) Get(ctx context.Context, resourceType, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[resourceType][id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

// Scan returns documents in insertion order.
func (m *MemoryBackend) Scan(ctx context.Context, resourceType string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.order[resourceType]
	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(m.docs[resourceType][id]))
	}
	return out, nil
}

func (m *MemoryBackend) Replace(ctx context.Context, resourceType, id string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[resourceType][id]; !ok {
		return ErrNotFound
	}
	m.docs[resourceType][id] = clone(doc)
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

package sink

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a DocumentStore held in a map.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]Document{}}
}

func (m *MemoryStore) Get(_ context.Context, path string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[path]
	if !ok {
		return Document{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryStore) Put(_ context.Context, doc Document) error {
	props := make(map[string]string, len(doc.Properties))
	for k, v := range doc.Properties {
		props[k] = v
	}
	doc.Properties = props

	m.mu.Lock()
	m.docs[doc.Path] = doc
	m.mu.Unlock()
	return nil
}

// Paths returns the stored paths, sorted.
func (m *MemoryStore) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.docs))
	for p := range m.docs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

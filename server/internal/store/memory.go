package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// Memory serves sections from an in-process Document.
type Memory struct {
	mu  sync.RWMutex
	doc types.Document
}

// NewMemory returns a Memory store over a copy of doc's top level.
func NewMemory(doc types.Document) *Memory {
	cp := make(types.Document, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	return &Memory{doc: cp}
}

func (m *Memory) Get(_ context.Context, k types.Key) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.doc.Get(k)
	if !ok {
		return nil, ErrNotFound
	}
	return raw, nil
}

func (m *Memory) Put(_ context.Context, k types.Key, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc[k] = append(json.RawMessage(nil), data...)
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

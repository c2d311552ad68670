// Package memstore is an in-memory kv.Store for tests and ephemeral runs.
package memstore

import (
	"context"
	"sync"

	"github.com/meetsentinel/meetsentinel/kv"
)

var _ kv.Store = (*store)(nil)

type store struct {
	mu    *sync.RWMutex
	items map[string][]byte
}

func New() kv.Store {
	return &store{
		mu:    &sync.RWMutex{},
		items: make(map[string][]byte),
	}
}

func (s *store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.items[key]
	if !ok {
		return nil, kv.ErrNotFound
	}

	cp := make([]byte, len(val))
	copy(cp, val)

	return cp, nil
}

func (s *store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)

	s.items[key] = cp

	return nil
}

func (s *store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)

	return nil
}

func (s *store) Close() error {
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"sync"

	"estekhdam/pkg/platform/sentinel"
)

type InMemory struct {
	mu   sync.RWMutex
	rows map[string]json.RawMessage
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[string]json.RawMessage)}
}

func (s *InMemory) Get(_ context.Context, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rows[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append(json.RawMessage(nil), v...), nil
}

func (s *InMemory) InsertIfAbsent(_ context.Context, key string, value json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key]; ok {
		return false, nil
	}
	s.rows[key] = append(json.RawMessage(nil), value...)
	return true, nil
}

package lockout

import (
	"context"
	"sync"
	"time"

	"estekhdam/internal/auth/models"
)

type entry struct {
	rec       models.LoginFailures
	expiresAt time.Time
}

// InMemory keeps login failure counters in process.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]entry)}
}

func (s *InMemory) liveLocked(key string, now time.Time) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !now.Before(e.expiresAt) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

func (s *InMemory) Get(_ context.Context, key string, now time.Time) (*models.LoginFailures, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(key, now)
	if !ok {
		return nil, nil
	}
	out := e.rec
	return &out, nil
}

func (s *InMemory) RecordFailure(_ context.Context, key string, now time.Time, window time.Duration) (*models.LoginFailures, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(key, now)
	if !ok {
		e = entry{rec: models.LoginFailures{Key: key, FirstAt: now}, expiresAt: now.Add(window)}
	}
	e.rec.Count++
	s.entries[key] = e
	out := e.rec
	return &out, nil
}

// Lock extends the entry so it outlives the lock.
func (s *InMemory) Lock(_ context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = entry{rec: models.LoginFailures{Key: key}}
	}
	locked := until
	e.rec.LockedUntil = &locked
	if until.After(e.expiresAt) {
		e.expiresAt = until
	}
	s.entries[key] = e
	return nil
}

func (s *InMemory) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

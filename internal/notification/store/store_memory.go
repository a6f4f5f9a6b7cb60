package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"estekhdam/internal/notification/models"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
)

type InMemory struct {
	mu     sync.RWMutex
	rows   map[id.NotificationID]models.Notification
	nextID int64
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[id.NotificationID]models.Notification)}
}

func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.ID = id.NotificationID(s.nextID)
	s.rows[n.ID] = *n
	return nil
}

// ListForUser returns newest first.
func (s *InMemory) ListForUser(_ context.Context, userID id.UserID) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for _, n := range s.rows {
		if n.ToUserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// MarkRead sets read_at once; the row must belong to userID.
func (s *InMemory) MarkRead(_ context.Context, userID id.UserID, notificationID id.NotificationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[notificationID]
	if !ok || n.ToUserID != userID {
		return sentinel.ErrNotFound
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
		s.rows[notificationID] = n
	}
	return nil
}

// CountByTemplate counts rows sent to userID with the given template key.
func (s *InMemory) CountByTemplate(_ context.Context, userID id.UserID, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.rows {
		if n.ToUserID == userID && n.TemplateKey == key {
			count++
		}
	}
	return count, nil
}

package session

import (
	"context"
	"sync"
	"time"

	"estekhdam/internal/auth/models"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
)

// InMemory keeps sessions in process. Used in development when Redis is not
// configured and in tests.
type InMemory struct {
	mu       sync.Mutex
	sessions map[id.SessionID]models.Session
	now      func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.SessionID]models.Session), now: time.Now}
}

func clone(s models.Session) *models.Session {
	out := s
	out.Flashes = append([]models.Flash(nil), s.Flashes...)
	return &out
}

func (s *InMemory) Create(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.sessions[sess.ID] = *clone(*sess)
	return nil
}

// getLocked returns the session, dropping it when expired.
func (s *InMemory) getLocked(sid id.SessionID) (*models.Session, error) {
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.IsExpired(s.now()) {
		delete(s.sessions, sid)
		return nil, sentinel.ErrNotFound
	}
	return clone(sess), nil
}

func (s *InMemory) FindByID(_ context.Context, sid id.SessionID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(sid)
}

// Execute applies mutate when validate accepts the current session.
func (s *InMemory) Execute(_ context.Context, sid id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(sid)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(sess); err != nil {
			return nil, err
		}
	}
	mutate(sess)
	s.sessions[sid] = *clone(*sess)
	return sess, nil
}

func (s *InMemory) Delete(_ context.Context, sid id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sid]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, sid)
	return nil
}

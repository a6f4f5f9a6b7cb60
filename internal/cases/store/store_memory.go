package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"estekhdam/internal/cases/models"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/textnorm"
)

// InMemory mirrors the PostgreSQL store including the one-open-case-per-
// national-ID rule.
type InMemory struct {
	mu     sync.RWMutex
	cases  map[id.CaseID]models.HiringCase
	nextID int64
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[id.CaseID]models.HiringCase)}
}

func (s *InMemory) Create(_ context.Context, c *models.HiringCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cases {
		if existing.NationalID == c.NationalID && existing.IsOpen() {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.nextID++
	c.ID = id.CaseID(s.nextID)
	if c.Status == "" {
		c.Status = models.StatusDraft
	}
	c.Version = 1
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	s.cases[c.ID] = *c
	return nil
}

func (s *InMemory) FindByID(_ context.Context, caseID id.CaseID) (*models.HiringCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemory) FindOpenByNationalID(_ context.Context, nationalID string) (*models.HiringCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cases {
		if c.NationalID == nationalID && c.IsOpen() {
			return &c, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// LatestForCandidate returns the candidate's most recent case.
func (s *InMemory) LatestForCandidate(_ context.Context, userID id.UserID) (*models.HiringCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.HiringCase
	for _, c := range s.cases {
		if c.CandidateID != userID {
			continue
		}
		if found == nil || c.ID > found.ID {
			c := c
			found = &c
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}

// List returns matching cases, newest first.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]models.HiringCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(filter.Query)
	out := make([]models.HiringCase, 0, len(s.cases))
	for _, c := range s.cases {
		if filter.IDs != nil && !slices.Contains(filter.IDs, c.ID) {
			continue
		}
		if q != "" && !matches(c, q) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func matches(c models.HiringCase, q string) bool {
	return strings.Contains(strings.ToLower(textnorm.Letters(c.FullName)), q) ||
		strings.Contains(c.NationalID, q) ||
		strings.Contains(c.Mobile, q)
}

func (s *InMemory) UpdateStatus(_ context.Context, caseID id.CaseID, fromVersion int, status models.Status, step string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.Version != fromVersion {
		return sentinel.ErrConflict
	}
	c.Status = status
	c.CurrentStep = step
	c.Version++
	c.UpdatedAt = at
	s.cases[caseID] = c
	return nil
}

func (s *InMemory) Delete(_ context.Context, caseID id.CaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[caseID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.cases, caseID)
	return nil
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"estekhdam/internal/review/models"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
)

// InMemory holds the three review collections behind one lock.
type InMemory struct {
	mu        sync.RWMutex
	documents map[id.DocumentID]models.Document
	videos    map[id.VideoID]models.VideoKYC
	physical  map[id.ChecklistID]models.PhysicalChecklist
	nextDoc   int64
	nextVideo int64
	nextCheck int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		documents: make(map[id.DocumentID]models.Document),
		videos:    make(map[id.VideoID]models.VideoKYC),
		physical:  make(map[id.ChecklistID]models.PhysicalChecklist),
	}
}

func (s *InMemory) CreateDocument(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDoc++
	d.ID = id.DocumentID(s.nextDoc)
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	s.documents[d.ID] = *d
	return nil
}

func (s *InMemory) FindDocument(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &d, nil
}

func (s *InMemory) ListDocumentsByCase(_ context.Context, caseID id.CaseID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for _, d := range s.documents {
		if d.CaseID == caseID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) DocumentCounts(_ context.Context) (map[id.CaseID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.CaseID]int)
	for _, d := range s.documents {
		out[d.CaseID]++
	}
	return out, nil
}

func (s *InMemory) UpdateDocumentVerdict(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.documents[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cur.VerifyStatus = d.VerifyStatus
	cur.RejectCode = d.RejectCode
	cur.RejectReason = d.RejectReason
	cur.ReviewedBy = d.ReviewedBy
	cur.ReviewedAt = d.ReviewedAt
	s.documents[d.ID] = cur
	return nil
}

func (s *InMemory) CreateVideo(_ context.Context, v *models.VideoKYC) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextVideo++
	v.ID = id.VideoID(s.nextVideo)
	if v.SubmittedAt.IsZero() {
		v.SubmittedAt = time.Now()
	}
	s.videos[v.ID] = *v
	return nil
}

func (s *InMemory) FindVideo(_ context.Context, videoID id.VideoID) (*models.VideoKYC, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[videoID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &v, nil
}

// ListVideos returns every submission, most recent first.
func (s *InMemory) ListVideos(_ context.Context) ([]models.VideoKYC, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.VideoKYC, 0, len(s.videos))
	for _, v := range s.videos {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemory) ListVideosByCase(_ context.Context, caseID id.CaseID) ([]models.VideoKYC, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.VideoKYC
	for _, v := range s.videos {
		if v.CaseID == caseID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) UpdateVideoVerdict(_ context.Context, v *models.VideoKYC) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.videos[v.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cur.ReviewStatus = v.ReviewStatus
	cur.RejectCode = v.RejectCode
	cur.RejectReason = v.RejectReason
	cur.ReviewedBy = v.ReviewedBy
	cur.ReviewedAt = v.ReviewedAt
	s.videos[v.ID] = cur
	return nil
}

func (s *InMemory) CreatePhysical(_ context.Context, p *models.PhysicalChecklist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCheck++
	p.ID = id.ChecklistID(s.nextCheck)
	s.physical[p.ID] = *p
	return nil
}

func (s *InMemory) FindPhysical(_ context.Context, checklistID id.ChecklistID) (*models.PhysicalChecklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.physical[checklistID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// ListPhysical returns every checklist, newest first.
func (s *InMemory) ListPhysical(_ context.Context) ([]models.PhysicalChecklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PhysicalChecklist, 0, len(s.physical))
	for _, p := range s.physical {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *InMemory) ListPhysicalByCase(_ context.Context, caseID id.CaseID) ([]models.PhysicalChecklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PhysicalChecklist
	for _, p := range s.physical {
		if p.CaseID == caseID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) UpdatePhysical(_ context.Context, p *models.PhysicalChecklist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.physical[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.physical[p.ID] = *p
	return nil
}

// DocumentRollup counts cases, not files: a case is pending while any of
// its documents awaits a verdict.
func (s *InMemory) DocumentRollup(_ context.Context) (models.Rollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make(map[id.CaseID]struct{})
	pending := make(map[id.CaseID]struct{})
	for _, d := range s.documents {
		all[d.CaseID] = struct{}{}
		if d.IsPending() {
			pending[d.CaseID] = struct{}{}
		}
	}
	return models.Rollup{Total: len(all), Pending: len(pending)}, nil
}

func (s *InMemory) VideoRollup(_ context.Context) (models.Rollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := models.Rollup{Total: len(s.videos)}
	for _, v := range s.videos {
		if v.IsPending() {
			r.Pending++
		}
	}
	return r, nil
}

func (s *InMemory) PhysicalRollup(_ context.Context) (models.Rollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := models.Rollup{Total: len(s.physical)}
	for _, p := range s.physical {
		if p.IsPending() {
			r.Pending++
		}
	}
	return r, nil
}

func (s *InMemory) Presence(_ context.Context, caseIDs []id.CaseID) (map[id.CaseID]models.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[id.CaseID]struct{}, len(caseIDs))
	for _, c := range caseIDs {
		wanted[c] = struct{}{}
	}
	out := make(map[id.CaseID]models.Presence)
	bump := func(caseID id.CaseID, f func(*models.Presence)) {
		if _, ok := wanted[caseID]; !ok {
			return
		}
		p := out[caseID]
		f(&p)
		out[caseID] = p
	}
	for _, d := range s.documents {
		bump(d.CaseID, func(p *models.Presence) { p.Documents++ })
	}
	for _, v := range s.videos {
		bump(v.CaseID, func(p *models.Presence) { p.Videos++ })
	}
	for _, c := range s.physical {
		bump(c.CaseID, func(p *models.Presence) { p.Physical++ })
	}
	return out, nil
}

// DeleteByCase removes every review record of a case and returns the stored
// file paths they referenced.
func (s *InMemory) DeleteByCase(_ context.Context, caseID id.CaseID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	for k, d := range s.documents {
		if d.CaseID == caseID {
			paths = append(paths, d.FilePath)
			delete(s.documents, k)
		}
	}
	for k, v := range s.videos {
		if v.CaseID == caseID {
			paths = append(paths, v.FilePath)
			delete(s.videos, k)
		}
	}
	for k, p := range s.physical {
		if p.CaseID == caseID {
			delete(s.physical, k)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"

	casemodels "estekhdam/internal/cases/models"
	"estekhdam/internal/platform/metrics"
	"estekhdam/internal/review/models"
	"estekhdam/internal/settings"
	"estekhdam/internal/storage"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/textnorm"
)

type Store interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	FindDocument(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	ListDocumentsByCase(ctx context.Context, caseID id.CaseID) ([]models.Document, error)
	DocumentCounts(ctx context.Context) (map[id.CaseID]int, error)
	UpdateDocumentVerdict(ctx context.Context, d *models.Document) error

	CreateVideo(ctx context.Context, v *models.VideoKYC) error
	FindVideo(ctx context.Context, videoID id.VideoID) (*models.VideoKYC, error)
	ListVideos(ctx context.Context) ([]models.VideoKYC, error)
	ListVideosByCase(ctx context.Context, caseID id.CaseID) ([]models.VideoKYC, error)
	UpdateVideoVerdict(ctx context.Context, v *models.VideoKYC) error

	CreatePhysical(ctx context.Context, p *models.PhysicalChecklist) error
	FindPhysical(ctx context.Context, checklistID id.ChecklistID) (*models.PhysicalChecklist, error)
	ListPhysical(ctx context.Context) ([]models.PhysicalChecklist, error)
	ListPhysicalByCase(ctx context.Context, caseID id.CaseID) ([]models.PhysicalChecklist, error)
	UpdatePhysical(ctx context.Context, p *models.PhysicalChecklist) error

	DocumentRollup(ctx context.Context) (models.Rollup, error)
	VideoRollup(ctx context.Context) (models.Rollup, error)
	PhysicalRollup(ctx context.Context) (models.Rollup, error)
}

// CaseDirectory resolves the cases review items belong to.
type CaseDirectory interface {
	FindByID(ctx context.Context, caseID id.CaseID) (*casemodels.HiringCase, error)
	LatestForCandidate(ctx context.Context, userID id.UserID) (*casemodels.HiringCase, error)
	List(ctx context.Context, filter casemodels.Filter) ([]casemodels.HiringCase, error)
}

type Notifier interface {
	InApp(ctx context.Context, userID id.UserID, key string, payload any) error
}

type FileStore interface {
	Save(ctx context.Context, dir, ext string, r io.Reader, limit int64) (storage.StoredFile, error)
	Open(ctx context.Context, rel string) (*os.File, error)
	Delete(ctx context.Context, rel string) error
}

// Service runs the three review queues for recruiters and the matching
// intake flow for candidates.
type Service struct {
	store    Store
	cases    CaseDirectory
	notifier Notifier
	files    FileStore
	config   *settings.AppConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, cases CaseDirectory, notifier Notifier, files FileStore, config *settings.AppConfig, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cases:    cases,
		notifier: notifier,
		files:    files,
		config:   config,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config exposes the upload limits the service enforces.
func (s *Service) Config() *settings.AppConfig {
	return s.config
}

func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	var out models.Stats
	var err error
	if out.Documents, err = s.store.DocumentRollup(ctx); err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count documents")
	}
	if out.Videos, err = s.store.VideoRollup(ctx); err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count videos")
	}
	if out.Physical, err = s.store.PhysicalRollup(ctx); err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count physical checklists")
	}
	return out, nil
}

// casesByID loads the cases with the given ids that match query.
func (s *Service) casesByID(ctx context.Context, ids []id.CaseID, query string) (map[id.CaseID]casemodels.HiringCase, error) {
	out := make(map[id.CaseID]casemodels.HiringCase, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := s.cases.List(ctx, casemodels.Filter{Query: textnorm.Query(query), IDs: ids})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cases")
	}
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

func uniqueCaseIDs[T any](items []T, caseOf func(T) id.CaseID) []id.CaseID {
	seen := make(map[id.CaseID]struct{}, len(items))
	out := make([]id.CaseID, 0, len(items))
	for _, it := range items {
		c := caseOf(it)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// DocumentQueue lists cases with at least one document, highest case id first.
func (s *Service) DocumentQueue(ctx context.Context, query string) ([]models.DocumentQueueRow, error) {
	counts, err := s.store.DocumentCounts(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count documents")
	}
	ids := make([]id.CaseID, 0, len(counts))
	for caseID := range counts {
		ids = append(ids, caseID)
	}
	cases, err := s.casesByID(ctx, ids, query)
	if err != nil {
		return nil, err
	}
	out := make([]models.DocumentQueueRow, 0, len(cases))
	for caseID, c := range cases {
		out = append(out, models.DocumentQueueRow{Case: c, DocCount: counts[caseID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Case.ID > out[j].Case.ID })
	return out, nil
}

func (s *Service) CaseDocuments(ctx context.Context, caseID id.CaseID) (*casemodels.HiringCase, []models.Document, error) {
	c, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		return nil, nil, notFoundOr(err, "case not found", "failed to load case")
	}
	docs, err := s.store.ListDocumentsByCase(ctx, caseID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return c, docs, nil
}

// Videos lists submissions, most recent first, restricted to cases matching query.
func (s *Service) Videos(ctx context.Context, query string) ([]models.VideoRow, error) {
	videos, err := s.store.ListVideos(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list videos")
	}
	cases, err := s.casesByID(ctx, uniqueCaseIDs(videos, func(v models.VideoKYC) id.CaseID { return v.CaseID }), query)
	if err != nil {
		return nil, err
	}
	out := make([]models.VideoRow, 0, len(videos))
	for _, v := range videos {
		if c, ok := cases[v.CaseID]; ok {
			out = append(out, models.VideoRow{Video: v, Case: c})
		}
	}
	return out, nil
}

// Physical lists checklists, newest first, restricted to cases matching query.
func (s *Service) Physical(ctx context.Context, query string) ([]models.PhysicalRow, error) {
	items, err := s.store.ListPhysical(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list physical checklists")
	}
	cases, err := s.casesByID(ctx, uniqueCaseIDs(items, func(p models.PhysicalChecklist) id.CaseID { return p.CaseID }), query)
	if err != nil {
		return nil, err
	}
	out := make([]models.PhysicalRow, 0, len(items))
	for _, p := range items {
		if c, ok := cases[p.CaseID]; ok {
			out = append(out, models.PhysicalRow{Item: p, Case: c})
		}
	}
	return out, nil
}

// OpenDocument returns the stored file of a document for download.
func (s *Service) OpenDocument(ctx context.Context, docID id.DocumentID) (*models.Document, *os.File, error) {
	d, err := s.store.FindDocument(ctx, docID)
	if err != nil {
		return nil, nil, notFoundOr(err, "document not found", "failed to load document")
	}
	f, err := s.files.Open(ctx, d.FilePath)
	if err != nil {
		return nil, nil, notFoundOr(err, "document file missing", "failed to open document")
	}
	return d, f, nil
}

func (s *Service) OpenVideo(ctx context.Context, videoID id.VideoID) (*models.VideoKYC, *os.File, error) {
	v, err := s.store.FindVideo(ctx, videoID)
	if err != nil {
		return nil, nil, notFoundOr(err, "video not found", "failed to load video")
	}
	f, err := s.files.Open(ctx, v.FilePath)
	if err != nil {
		return nil, nil, notFoundOr(err, "video file missing", "failed to open video")
	}
	return v, f, nil
}

func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}

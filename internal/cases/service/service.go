package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"estekhdam/internal/cases/models"
	identitymodels "estekhdam/internal/identity/models"
	notificationmodels "estekhdam/internal/notification/models"
	"estekhdam/internal/platform/metrics"
	reviewmodels "estekhdam/internal/review/models"
	"estekhdam/internal/sms"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/platform/tx"
)

type CaseStore interface {
	Create(ctx context.Context, c *models.HiringCase) error
	FindByID(ctx context.Context, caseID id.CaseID) (*models.HiringCase, error)
	FindOpenByNationalID(ctx context.Context, nationalID string) (*models.HiringCase, error)
	LatestForCandidate(ctx context.Context, userID id.UserID) (*models.HiringCase, error)
	List(ctx context.Context, filter models.Filter) ([]models.HiringCase, error)
	UpdateStatus(ctx context.Context, caseID id.CaseID, fromVersion int, status models.Status, step string, at time.Time) error
	Delete(ctx context.Context, caseID id.CaseID) error
}

type UserStore interface {
	EnsureRole(ctx context.Context, name id.Role) (identitymodels.Role, error)
	Create(ctx context.Context, user *identitymodels.User) error
	Update(ctx context.Context, user *identitymodels.User) error
	FindByID(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
	FindByNationalID(ctx context.Context, nationalID string) (*identitymodels.User, error)
	FindByMobile(ctx context.Context, mobile string) (*identitymodels.User, error)
	SetUsername(ctx context.Context, userID id.UserID, username string) error
	LockMobile(ctx context.Context, mobile string) error
}

// ReviewStore is the slice of the review collections the case lifecycle
// needs: dashboard rollups and cascade deletion.
type ReviewStore interface {
	DocumentRollup(ctx context.Context) (reviewmodels.Rollup, error)
	VideoRollup(ctx context.Context) (reviewmodels.Rollup, error)
	PhysicalRollup(ctx context.Context) (reviewmodels.Rollup, error)
	Presence(ctx context.Context, caseIDs []id.CaseID) (map[id.CaseID]reviewmodels.Presence, error)
	DeleteByCase(ctx context.Context, caseID id.CaseID) ([]string, error)
}

type Notifier interface {
	InApp(ctx context.Context, userID id.UserID, key string, payload any) error
	RecordDelivery(ctx context.Context, userID id.UserID, channel notificationmodels.Channel, key string, payload any, state notificationmodels.DeliveryState) error
}

// FileRemover deletes stored uploads once their rows are gone.
type FileRemover interface {
	Delete(ctx context.Context, rel string) error
}

// Config carries the credential issued to new candidates.
type Config struct {
	DefaultPassword string
	LoginURL        string
}

// Service runs the hiring case lifecycle: creation with duplicate checks,
// dashboard aggregation, status transitions, closure and deletion.
type Service struct {
	cases    CaseStore
	users    UserStore
	reviews  ReviewStore
	notifier Notifier
	sender   sms.Sender
	files    FileRemover
	tx       tx.Runner
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
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

func WithFileRemover(files FileRemover) Option {
	return func(s *Service) {
		s.files = files
	}
}

func New(
	cases CaseStore,
	users UserStore,
	reviews ReviewStore,
	notifier Notifier,
	sender sms.Sender,
	runner tx.Runner,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		cases:    cases,
		users:    users,
		reviews:  reviews,
		notifier: notifier,
		sender:   sender,
		tx:       runner,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   otel.Tracer("estekhdam/cases"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) GetCase(ctx context.Context, caseID id.CaseID) (*models.HiringCase, error) {
	c, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		return nil, translateCaseErr(err, "failed to load case")
	}
	return c, nil
}

// CaseForCandidate returns the candidate's most recent case.
func (s *Service) CaseForCandidate(ctx context.Context, userID id.UserID) (*models.HiringCase, error) {
	c, err := s.cases.LatestForCandidate(ctx, userID)
	if err != nil {
		return nil, translateCaseErr(err, "failed to load case")
	}
	return c, nil
}

// CandidateProfile is a user together with their latest case, if any.
type CandidateProfile struct {
	User *identitymodels.User
	Case *models.HiringCase
}

func (s *Service) GetCandidate(ctx context.Context, userID id.UserID) (*CandidateProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	profile := &CandidateProfile{User: user}
	c, err := s.cases.LatestForCandidate(ctx, userID)
	switch {
	case err == nil:
		profile.Case = c
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	return profile, nil
}

func translateCaseErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "case was modified concurrently")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "an open case already exists for this national id")
	case isCoded(err):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func isCoded(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de)
}

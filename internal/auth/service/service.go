package service

import (
	"context"
	"log/slog"
	"time"

	"estekhdam/internal/auth/device"
	"estekhdam/internal/auth/models"
	"estekhdam/internal/auth/token"
	identitymodels "estekhdam/internal/identity/models"
	id "estekhdam/pkg/domain"
)

// Authenticator checks a username and password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*identitymodels.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, sess *models.Session) error
	FindByID(ctx context.Context, sid id.SessionID) (*models.Session, error)
	Execute(ctx context.Context, sid id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
	Delete(ctx context.Context, sid id.SessionID) error
}

type TokenSigner interface {
	Issue(sid id.SessionID, userID id.UserID, role id.Role, expiresAt time.Time) (string, error)
	Validate(raw string) (*token.Claims, error)
}

// LoginLimiter refuses logins for a username and address after repeated
// failures.
type LoginLimiter interface {
	Check(ctx context.Context, username, ip string) error
	RecordFailure(ctx context.Context, username, ip string) error
	Clear(ctx context.Context, username, ip string) error
}

type LoginMetrics interface {
	IncrementLogin(result string)
}

// Service logs users in and out and resolves the session cookie on every
// request. Flash messages ride on the session.
type Service struct {
	users    Authenticator
	sessions SessionStore
	signer   TokenSigner
	devices  *device.Service
	ttl      time.Duration
	logger   *slog.Logger
	metrics  LoginMetrics
	limiter  LoginLimiter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m LoginMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDeviceFingerprinting enables the User-Agent fingerprint drift check.
func WithLoginLimiter(l LoginLimiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

func WithDeviceFingerprinting(enabled bool) Option {
	return func(s *Service) {
		s.devices = device.NewService(enabled)
	}
}

func New(users Authenticator, sessions SessionStore, signer TokenSigner, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		signer:   signer,
		devices:  device.NewService(true),
		ttl:      ttl,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(result)
	}
}

// Package lockout slows password guessing: after a run of failed logins for
// one username from one address, further attempts are refused for a while.
package lockout

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"estekhdam/internal/auth/models"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/requestcontext"
)

type Config struct {
	Attempts int
	Window   time.Duration
	LockFor  time.Duration
}

func DefaultConfig() Config {
	return Config{Attempts: 5, Window: 15 * time.Minute, LockFor: 15 * time.Minute}
}

// Store holds failure counters. Get returns nil, nil when nothing is recorded
// or the window has lapsed.
type Store interface {
	Get(ctx context.Context, key string, now time.Time) (*models.LoginFailures, error)
	RecordFailure(ctx context.Context, key string, now time.Time, window time.Duration) (*models.LoginFailures, error)
	Lock(ctx context.Context, key string, until time.Time) error
	Clear(ctx context.Context, key string) error
}

type Service struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, cfg: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(username, ip string) string {
	return strings.ToLower(strings.TrimSpace(username)) + "|" + ip
}

// Check refuses the attempt with CodeRateLimited while the pair is locked.
func (s *Service) Check(ctx context.Context, username, ip string) error {
	now := requestcontext.Now(ctx)
	rec, err := s.store.Get(ctx, key(username, ip), now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read login failures")
	}
	if rec != nil && rec.IsLockedAt(now) {
		return dErrors.New(dErrors.CodeRateLimited, "too many failed attempts, try again later")
	}
	return nil
}

// RecordFailure counts a failed attempt and locks the pair once the window
// holds cfg.Attempts failures.
func (s *Service) RecordFailure(ctx context.Context, username, ip string) error {
	now := requestcontext.Now(ctx)
	k := key(username, ip)
	rec, err := s.store.RecordFailure(ctx, k, now, s.cfg.Window)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	if rec.Count < s.cfg.Attempts || rec.IsLockedAt(now) {
		return nil
	}
	until := now.Add(s.cfg.LockFor)
	if err := s.store.Lock(ctx, k, until); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock login")
	}
	s.logger.WarnContext(ctx, "login locked",
		"username", username,
		"client_ip", anonymizeIP(ip),
		"failures", rec.Count,
		"locked_until", until,
	)
	return nil
}

// Clear forgets failures after a successful login.
func (s *Service) Clear(ctx context.Context, username, ip string) error {
	if err := s.store.Clear(ctx, key(username, ip)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear login failures")
	}
	return nil
}

// anonymizeIP zeroes the host part: last octet for IPv4, last 80 bits for IPv6.
func anonymizeIP(raw string) string {
	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String()
	}
	return ip.Mask(net.CIDRMask(48, 128)).String()
}

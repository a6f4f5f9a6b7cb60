// Package app wires stores, services and handlers into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	authhandler "estekhdam/internal/auth/handler"
	"estekhdam/internal/auth/lockout"
	authservice "estekhdam/internal/auth/service"
	lockoutstore "estekhdam/internal/auth/store/lockout"
	"estekhdam/internal/auth/store/session"
	"estekhdam/internal/auth/token"
	caseshandler "estekhdam/internal/cases/handler"
	casesservice "estekhdam/internal/cases/service"
	casesstore "estekhdam/internal/cases/store"
	httpapi "estekhdam/internal/http"
	identityservice "estekhdam/internal/identity/service"
	identitystore "estekhdam/internal/identity/store"
	notificationservice "estekhdam/internal/notification/service"
	notificationstore "estekhdam/internal/notification/store"
	"estekhdam/internal/platform/config"
	"estekhdam/internal/platform/metrics"
	"estekhdam/internal/platform/postgres"
	platformredis "estekhdam/internal/platform/redis"
	"estekhdam/internal/platform/tracing"
	reviewhandler "estekhdam/internal/review/handler"
	reviewservice "estekhdam/internal/review/service"
	reviewstore "estekhdam/internal/review/store"
	"estekhdam/internal/settings"
	settingsstore "estekhdam/internal/settings/store"
	"estekhdam/internal/sms"
	"estekhdam/internal/storage"
	"estekhdam/internal/web"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/tx"
)

// App is a fully wired process. Close releases every backing connection.
type App struct {
	Handler  http.Handler
	Identity *identityservice.Service
	Registry *prometheus.Registry

	closers []func(context.Context) error
}

type stores struct {
	users         identityStore
	cases         casesservice.CaseStore
	reviews       reviewStoreSet
	notifications notificationservice.Store
	settings      settings.Store
	runner        tx.Runner
}

// identityStore is satisfied by both user store backends.
type identityStore interface {
	identityservice.UserStore
	casesservice.UserStore
}

type reviewStoreSet interface {
	reviewservice.Store
	casesservice.ReviewStore
}

// Build connects to configured backends, falling back to in-memory stores
// for any that are unset, and returns the assembled application.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checks := map[string]httpapi.HealthCheck{}

	st, err := a.openStores(ctx, cfg.Database, checks, logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	sessions, failures, err := a.openSessions(ctx, cfg.Redis, checks, logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	appConfig, err := settings.Load(ctx, st.settings)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("load settings: %w", err)
	}

	files, err := storage.NewLocal(cfg.Storage.UploadDir)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("open upload storage: %w", err)
	}

	tp, shutdownTracing, err := tracing.NewProvider(ctx, cfg.Tracing, logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	m := metrics.New(a.Registry)

	a.Identity = identityservice.New(st.users, identityservice.WithLogger(logger))
	notifications := notificationservice.New(st.notifications, notificationservice.WithLogger(logger))
	cases := casesservice.New(
		st.cases,
		st.users,
		st.reviews,
		notifications,
		sms.New(cfg.SMS, logger),
		st.runner,
		casesservice.Config{DefaultPassword: cfg.Candidate.DefaultPassword, LoginURL: cfg.Candidate.LoginURL},
		casesservice.WithLogger(logger),
		casesservice.WithMetrics(m),
		casesservice.WithFileRemover(files),
	)
	reviews := reviewservice.New(st.reviews, st.cases, notifications, files, appConfig,
		reviewservice.WithLogger(logger),
		reviewservice.WithMetrics(m),
	)
	auth := authservice.New(a.Identity, sessions, token.NewSigner(cfg.Session.SigningKey), cfg.Session.TTL,
		authservice.WithLogger(logger),
		authservice.WithMetrics(m),
		authservice.WithLoginLimiter(lockout.New(failures, lockout.WithLogger(logger))),
	)

	pages, err := web.NewRenderer(auth, logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	a.Handler = httpapi.NewRouter(httpapi.Deps{
		Logger:         logger,
		Metrics:        m,
		Gatherer:       a.Registry,
		TracerProvider: tp,
		CookieSecure:   cfg.Server.CookieSecure,
		TrustProxy:     cfg.Server.TrustProxy,
		HealthChecks:   checks,
		Auth:           authhandler.New(auth, pages, cfg.Server.CookieSecure, logger),
		Cases:          caseshandler.New(cases, pages, logger),
		Review:         reviewhandler.New(reviews, notifications, pages, logger),
	})
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg config.DatabaseConfig, checks map[string]httpapi.HealthCheck, logger *slog.Logger) (*stores, error) {
	if cfg.URL == "" {
		logger.Warn("database url not set, using in-memory stores")
		return &stores{
			users:         identitystore.NewInMemory(),
			cases:         casesstore.NewInMemory(),
			reviews:       reviewstore.NewInMemory(),
			notifications: notificationstore.NewInMemory(),
			settings:      settingsstore.NewInMemory(),
			runner:        tx.NewLockRunner(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	checks["database"] = db.PingContext

	return &stores{
		users:         identitystore.NewPostgres(db),
		cases:         casesstore.NewPostgres(db),
		reviews:       reviewstore.NewPostgres(db),
		notifications: notificationstore.NewPostgres(db),
		settings:      settingsstore.NewPostgres(db),
		runner:        tx.NewPostgresRunner(db),
	}, nil
}

// openSessions returns the session store and the login failure store, both
// backed by Redis when configured.
func (a *App) openSessions(ctx context.Context, cfg config.RedisConfig, checks map[string]httpapi.HealthCheck, logger *slog.Logger) (authservice.SessionStore, lockout.Store, error) {
	if cfg.URL == "" {
		logger.Warn("redis url not set, sessions are kept in memory")
		return session.NewInMemory(), lockoutstore.NewInMemory(), nil
	}
	client, err := platformredis.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	checks["redis"] = client.Health
	return session.NewRedis(client.Client), lockoutstore.NewRedis(client.Client), nil
}

// Bootstrap creates or refreshes the configured recruiter account. It is a
// no-op when either credential is empty.
func (a *App) Bootstrap(ctx context.Context, cfg config.BootstrapConfig) error {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	_, err := a.Identity.EnsureStaff(ctx, cfg.Username, cfg.Password, "", id.RoleRecruiter)
	return err
}

// Close runs closers in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

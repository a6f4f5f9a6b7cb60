// Package httpapi assembles the HTTP surface: shared middleware, machine
// endpoints and the role-gated page routes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	authhandler "estekhdam/internal/auth/handler"
	caseshandler "estekhdam/internal/cases/handler"
	"estekhdam/internal/platform/metrics"
	"estekhdam/internal/platform/middleware"
	reviewhandler "estekhdam/internal/review/handler"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/httputil"
	authmw "estekhdam/pkg/platform/middleware/auth"
	"estekhdam/pkg/platform/middleware/metadata"
	"estekhdam/pkg/platform/middleware/requesttime"
	"estekhdam/pkg/requestcontext"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	TracerProvider trace.TracerProvider
	CookieSecure   bool
	TrustProxy     bool
	HealthChecks   map[string]HealthCheck

	Auth   *authhandler.Handler
	Cases  *caseshandler.Handler
	Review *reviewhandler.Handler
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata(d.TrustProxy))
	r.Use(requesttime.Middleware)
	r.Use(middleware.Tracing(d.TracerProvider))
	r.Use(middleware.AccessLog(d.Logger))
	r.Use(middleware.Recover(d.Logger))
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/healthz", healthz(d.HealthChecks, d.Logger))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	d.Auth.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireSession(d.Auth.Resolve, d.CookieSecure, d.Logger))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, authhandler.HomeFor(requestcontext.Role(r.Context())), http.StatusSeeOther)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(id.RoleRecruiter, id.RoleAdmin))
			d.Cases.Register(r)
			d.Review.RegisterRecruiter(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(id.RoleCandidate))
			d.Review.RegisterCandidate(r)
		})
	})
	return r
}

func healthz(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, name+" unavailable"))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

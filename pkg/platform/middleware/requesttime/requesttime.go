// Package requesttime pins one "now" per request so timestamps written by a
// single operation (verdict_at, reviewed_at, notification sent_at) agree.
package requesttime

import (
	"net/http"
	"time"

	"estekhdam/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request, cut to
// the microsecond precision PostgreSQL stores so in-memory and database
// backends hand back equal values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC().Truncate(time.Microsecond))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

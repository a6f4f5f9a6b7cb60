// Package auth guards routes with the session cookie.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	id "estekhdam/pkg/domain"
	"estekhdam/pkg/requestcontext"
)

// CookieName is the session cookie carrying the signed session reference.
const CookieName = "estekhdam_session"

// LoginPath is where unauthenticated browsers are sent.
const LoginPath = "/login"

// Principal is the caller a resolved session stands for.
type Principal struct {
	SessionID id.SessionID
	UserID    id.UserID
	Role      id.Role
	Username  string
}

// ResolveFunc turns a raw cookie value into a principal.
type ResolveFunc func(ctx context.Context, raw string) (*Principal, error)

// ClearCookie expires the session cookie on the client.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// WithPrincipal stores the principal on ctx the way RequireSession does.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = requestcontext.WithPrincipal(ctx, p.UserID, p.Role)
	ctx = requestcontext.WithSessionID(ctx, p.SessionID)
	return requestcontext.WithUsername(ctx, p.Username)
}

// RequireSession resolves the session cookie. Requests without a live
// session are redirected to the login page; GET requests keep their target
// in the next parameter.
func RequireSession(resolve ResolveFunc, secure bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				redirectToLogin(w, r)
				return
			}
			principal, err := resolve(ctx, cookie.Value)
			if err != nil {
				logger.InfoContext(ctx, "session rejected",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				ClearCookie(w, secure)
				redirectToLogin(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginPath
	if r.Method == http.MethodGet && r.URL.Path != "/" {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RequireRole rejects principals whose role is not listed. It must run after
// RequireSession.
func RequireRole(roles ...id.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, requestcontext.Role(r.Context())) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SafeNext returns next when it is a local path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}

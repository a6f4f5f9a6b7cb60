package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"estekhdam/internal/auth/models"
	"estekhdam/internal/web"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	authmw "estekhdam/pkg/platform/middleware/auth"
	"estekhdam/pkg/requestcontext"
)

type Service interface {
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)
	Logout(ctx context.Context, sid id.SessionID) error
	Resolve(ctx context.Context, raw string) (*models.Session, error)
}

type Handler struct {
	auth         Service
	pages        *web.Renderer
	cookieSecure bool
	logger       *slog.Logger
}

func New(auth Service, pages *web.Renderer, cookieSecure bool, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, pages: pages, cookieSecure: cookieSecure, logger: logger}
}

// Register mounts the public login routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

// Resolve adapts the session service to the RequireSession middleware.
func (h *Handler) Resolve(ctx context.Context, raw string) (*authmw.Principal, error) {
	sess, err := h.auth.Resolve(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &authmw.Principal{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Role:      sess.Role,
		Username:  sess.Username,
	}, nil
}

type loginView struct {
	Username string
	Next     string
	Error    string
}

// HomeFor is the landing page of a role.
func HomeFor(role id.Role) string {
	if role.IsStaff() {
		return "/dashboard"
	}
	return "/me"
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(authmw.CookieName); err == nil && cookie.Value != "" {
		if sess, err := h.auth.Resolve(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, HomeFor(sess.Role), http.StatusSeeOther)
			return
		}
	}
	h.pages.Render(w, r, http.StatusOK, "login", "Sign in", loginView{Next: r.URL.Query().Get("next")})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.pages.Render(w, r, http.StatusBadRequest, "login", "Sign in", loginView{Error: "Invalid form submission."})
		return
	}
	username := r.PostFormValue("username")
	next := r.PostFormValue("next")

	res, err := h.auth.Login(ctx, username, r.PostFormValue("password"))
	if err != nil {
		view := loginView{Username: username, Next: next}
		status := http.StatusUnauthorized
		switch {
		case dErrors.HasCode(err, dErrors.CodeValidation):
			view.Error = "Enter your username and password."
			status = http.StatusUnprocessableEntity
		case dErrors.HasCode(err, dErrors.CodeUnauthorized):
			view.Error = "Invalid username or password."
		case dErrors.HasCode(err, dErrors.CodeRateLimited):
			view.Error = "Too many failed attempts. Try again in a few minutes."
			status = http.StatusTooManyRequests
		default:
			h.logger.ErrorContext(ctx, "login failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			view.Error = "Login is unavailable right now. Please try again."
			status = http.StatusInternalServerError
		}
		h.pages.Render(w, r, status, "login", "Sign in", view)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authmw.CookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authmw.SafeNext(next, HomeFor(res.Session.Role)), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if cookie, err := r.Cookie(authmw.CookieName); err == nil && cookie.Value != "" {
		if sess, err := h.auth.Resolve(ctx, cookie.Value); err == nil {
			if err := h.auth.Logout(ctx, sess.ID); err != nil {
				h.logger.ErrorContext(ctx, "logout failed", "error", err)
			}
		}
	}
	authmw.ClearCookie(w, h.cookieSecure)
	http.Redirect(w, r, authmw.LoginPath, http.StatusSeeOther)
}

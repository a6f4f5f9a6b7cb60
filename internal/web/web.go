// Package web renders the server-side HTML pages and carries flash messages
// between a mutating request and the page it redirects to.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"estekhdam/internal/auth/models"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	authmw "estekhdam/pkg/platform/middleware/auth"
	"estekhdam/pkg/requestcontext"
)

//go:embed templates/*.html
var templateFS embed.FS

// Flasher stores one-shot messages on the caller's session.
type Flasher interface {
	AddFlash(ctx context.Context, sid id.SessionID, kind models.FlashKind, message string) error
	PopFlashes(ctx context.Context, sid id.SessionID) ([]models.Flash, error)
}

// Page is what every template receives.
type Page struct {
	Title    string
	Username string
	Role     id.Role
	Flashes  []models.Flash
	Data     any
}

// IsStaff reports whether the navigation shows recruiter links.
func (p Page) IsStaff() bool {
	return p.Role.IsStaff()
}

type Renderer struct {
	pages   map[string]*template.Template
	flashes Flasher
	logger  *slog.Logger
}

func NewRenderer(flashes Flasher, logger *slog.Logger) (*Renderer, error) {
	pages, err := parsePages(templateFS)
	if err != nil {
		return nil, err
	}
	return &Renderer{pages: pages, flashes: flashes, logger: logger}, nil
}

// parsePages pairs layout.html with each page template.
func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	names, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		page := strings.TrimSuffix(strings.TrimPrefix(name, "templates/"), ".html")
		if page == "layout" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[page] = t
	}
	return pages, nil
}

var funcs = template.FuncMap{
	"datetime": func(t any) string {
		switch v := t.(type) {
		case time.Time:
			if v.IsZero() {
				return "-"
			}
			return v.Format("2006-01-02 15:04")
		case *time.Time:
			if v == nil || v.IsZero() {
				return "-"
			}
			return v.Format("2006-01-02 15:04")
		}
		return "-"
	},
	"orDash": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	},
}

// Render writes page with status. Queued flashes for the session are
// consumed and shown.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	ctx := r.Context()
	t, ok := rd.pages[page]
	if !ok {
		rd.logger.ErrorContext(ctx, "unknown template", "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	p := Page{
		Title:    title,
		Username: requestcontext.Username(ctx),
		Role:     requestcontext.Role(ctx),
		Data:     data,
	}
	if sid := requestcontext.SessionID(ctx); !sid.IsNil() && rd.flashes != nil {
		flashes, err := rd.flashes.PopFlashes(ctx, sid)
		if err != nil {
			rd.logger.WarnContext(ctx, "failed to load flashes", "error", err)
		}
		p.Flashes = flashes
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		rd.logger.ErrorContext(ctx, "template execution failed",
			"page", page,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Flash queues a message for the next page. Anonymous requests drop it.
func (rd *Renderer) Flash(r *http.Request, kind models.FlashKind, message string) {
	ctx := r.Context()
	sid := requestcontext.SessionID(ctx)
	if sid.IsNil() || rd.flashes == nil {
		return
	}
	if err := rd.flashes.AddFlash(ctx, sid, kind, message); err != nil {
		rd.logger.WarnContext(ctx, "failed to store flash", "error", err)
	}
}

// Redirect queues a flash and sends a 303 to target.
func (rd *Renderer) Redirect(w http.ResponseWriter, r *http.Request, target string, kind models.FlashKind, message string) {
	if message != "" {
		rd.Flash(r, kind, message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Fail maps a service error onto a flash and redirect. Internal errors are
// logged and shown as a generic message.
func (rd *Renderer) Fail(w http.ResponseWriter, r *http.Request, target string, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	msg := dErrors.Message(err)
	if code == dErrors.CodeInternal {
		rd.logger.ErrorContext(ctx, "request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		msg = "Something went wrong. Please try again."
	}
	rd.Redirect(w, r, target, models.FlashError, msg)
}

// Back returns the local Referer path, or fallback.
func Back(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := r.URL.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) || !strings.HasPrefix(u.Path, "/") {
		return fallback
	}
	back := u.Path
	if u.RawQuery != "" {
		back += "?" + u.RawQuery
	}
	return authmw.SafeNext(back, fallback)
}

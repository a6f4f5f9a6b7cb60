package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estekhdam/internal/auth/models"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/requestcontext"
)

type memoryFlasher struct {
	queued map[id.SessionID][]models.Flash
}

func (m *memoryFlasher) AddFlash(_ context.Context, sid id.SessionID, kind models.FlashKind, msg string) error {
	m.queued[sid] = append(m.queued[sid], models.Flash{Kind: kind, Message: msg})
	return nil
}

func (m *memoryFlasher) PopFlashes(_ context.Context, sid id.SessionID) ([]models.Flash, error) {
	out := m.queued[sid]
	delete(m.queued, sid)
	return out, nil
}

func newRenderer(t *testing.T) (*Renderer, *memoryFlasher) {
	t.Helper()
	flasher := &memoryFlasher{queued: map[id.SessionID][]models.Flash{}}
	rd, err := NewRenderer(flasher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return rd, flasher
}

func sessionRequest(method, target string, sid id.SessionID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := requestcontext.WithPrincipal(req.Context(), 3, id.RoleRecruiter)
	ctx = requestcontext.WithUsername(ctx, "rec")
	ctx = requestcontext.WithSessionID(ctx, sid)
	return req.WithContext(ctx)
}

func TestEveryPageParses(t *testing.T) {
	rd, _ := newRenderer(t)
	for _, page := range []string{"login", "error", "dashboard", "create", "user", "docs_queue", "case_docs", "videos", "physical", "me", "no_case"} {
		assert.Contains(t, rd.pages, page)
	}
	assert.NotContains(t, rd.pages, "layout")
}

func TestRenderConsumesFlashes(t *testing.T) {
	rd, flasher := newRenderer(t)
	sid := id.NewSessionID()

	rec := httptest.NewRecorder()
	rd.Redirect(rec, sessionRequest(http.MethodPost, "/case/1/close", sid), "/dashboard", models.FlashSuccess, "Case closed.")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	require.Len(t, flasher.queued[sid], 1)

	rec = httptest.NewRecorder()
	rd.Render(rec, sessionRequest(http.MethodGet, "/x", sid), http.StatusNotFound, "error", "Not found",
		map[string]any{"Status": 404, "Message": "case not found"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Case closed.")
	assert.Contains(t, body, "case not found")
	assert.Contains(t, body, "/dashboard", "staff navigation")
	assert.Empty(t, flasher.queued[sid])
}

func TestFail(t *testing.T) {
	rd, flasher := newRenderer(t)
	sid := id.NewSessionID()

	rec := httptest.NewRecorder()
	rd.Fail(rec, sessionRequest(http.MethodPost, "/x", sid), "/dashboard", dErrors.New(dErrors.CodeNotFound, "case not found"))
	rd.Fail(httptest.NewRecorder(), sessionRequest(http.MethodPost, "/x", sid), "/dashboard", io.ErrUnexpectedEOF)

	assert.Equal(t, []models.Flash{
		{Kind: models.FlashError, Message: "case not found"},
		{Kind: models.FlashError, Message: "Something went wrong. Please try again."},
	}, flasher.queued[sid])
}

func TestBack(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://example.com/docs/4/decision", nil)
	assert.Equal(t, "/queue/docs", Back(req, "/queue/docs"))

	req.Header.Set("Referer", "http://example.com/docs/9?q=1")
	assert.Equal(t, "/docs/9?q=1", Back(req, "/queue/docs"))

	req.Header.Set("Referer", "http://evil.example/phish")
	assert.Equal(t, "/queue/docs", Back(req, "/queue/docs"))

	for _, ref := range []string{"http://example.com//evil.example/x", `http://example.com/\evil.example/x`} {
		req.Header.Set("Referer", ref)
		assert.Equal(t, "/queue/docs", Back(req, "/queue/docs"), ref)
	}
}

func TestDatetime(t *testing.T) {
	format := funcs["datetime"].(func(any) string)
	ts := time.Date(2025, 3, 1, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-01 14:05", format(ts))
	assert.Equal(t, "2025-03-01 14:05", format(&ts))
	assert.Equal(t, "-", format((*time.Time)(nil)))
	assert.Equal(t, "-", format(time.Time{}))
}

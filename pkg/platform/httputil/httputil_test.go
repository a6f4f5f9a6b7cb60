package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "estekhdam/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok)
	})

	t.Run("not found includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeNotFound, "case not found"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "not_found", body["error"])
		assert.Equal(t, "case not found", body["error_description"])
	})
}

func TestDecodeForm(t *testing.T) {
	type form struct {
		Name    string `form:"full_name"`
		Mobile  string `form:"mobile"`
		Skipped string `form:"-"`
		Count   int    `form:"count"`
		Plain   string
	}
	req := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader("full_name=Sara&mobile=0912&count=3&Plain=x&-=y"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())

	var got form
	DecodeForm(req, &got)
	assert.Equal(t, form{Name: "Sara", Mobile: "0912"}, got)
}

package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"estekhdam/pkg/requestcontext"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remote     string
		trustProxy bool
		want       string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.2:80", true, "1.2.3.4"},
		{"forwarded skips junk", map[string]string{"X-Forwarded-For": "unknown, 1.2.3.4"}, "10.0.0.2:80", true, "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.2:80", true, "5.6.7.8"},
		{"headers ignored without trust", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.2:80", false, "10.0.0.2"},
		{"remote v4", nil, "127.0.0.1:5555", false, "127.0.0.1"},
		{"remote v6", nil, "[::1]:5555", false, "::1"},
		{"remote without port", nil, "192.0.2.1", false, "192.0.2.1"},
		{"garbage remote", nil, "pipe", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r, tt.trustProxy))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var gotIP, gotUA string
	h := ClientMetadata(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.9:1234"
	r.Header.Set("User-Agent", "Mozilla/5.0")
	r.Header.Set("X-Forwarded-For", "8.8.8.8")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.168.1.9", gotIP)
	assert.Equal(t, "Mozilla/5.0", gotUA)
}

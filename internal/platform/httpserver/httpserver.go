package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with defaults suited to form posts and uploads.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Video uploads can be large; the body read deadline stays generous.
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with project defaults. Write and idle timeouts
// sit above the router's 30s request timeout so the middleware, not the
// server, is what cancels a slow verification cycle.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

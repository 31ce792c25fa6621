package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with the project's timeouts. Write timeout is
// generous because POST /runs/{level} blocks for a whole level run.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with timeouts sized for KYC uploads: header
// reads stay tight, body reads get room for multi-megabyte multipart bodies.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// Package httpserver centralizes http.Server construction so every
// entrypoint gets the same timeout posture.
package httpserver

import (
	"net/http"
	"time"
)

// Timeouts protect against slow-loris clients and wedged handlers. Write
// is generous because an admin-triggered calibration run responds only
// after the full round completes.
const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
)

// New builds the server around the given router.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

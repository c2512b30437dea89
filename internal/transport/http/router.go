// Package httptransport composes the HTTP surface: platform middleware,
// health and metrics endpoints, and each module's routes.
package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"calibra/internal/platform/middleware"
)

// Registrar is implemented by each module handler.
type Registrar interface {
	Register(r chi.Router, validator middleware.AttestationValidator)
}

// Options configures the router.
type Options struct {
	Logger    *slog.Logger
	Validator middleware.AttestationValidator
	// RateLimitRPS throttles the whole surface; zero disables.
	RateLimitRPS   float64
	RateLimitBurst int
	// Ready is consulted by /readyz; nil checks are skipped.
	Ready map[string]func() error
}

// NewRouter builds the full chi router.
func NewRouter(opts Options, handlers ...Registrar) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	if opts.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyHandler(opts.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		for _, h := range handlers {
			h.Register(api, opts.Validator)
		}
	})
	return r
}

func readyHandler(checks map[string]func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(); err != nil {
				status = http.StatusServiceUnavailable
				out[name] = err.Error()
				continue
			}
			out[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(out)
	}
}

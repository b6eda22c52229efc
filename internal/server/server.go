package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"trackitnow-backend/internal/types"
)

// Options carries the HTTP settings shared by the three services.
type Options struct {
	AllowedOrigins []string
	// Requests per minute per client IP on write routes; 0 disables limiting
	RateLimitPerMinute int
	Logger             zerolog.Logger
	// Backend checks run by /health; any failure turns it into a 503
	Checks []HealthCheck
}

// HealthCheck reports whether a backend the service depends on is reachable.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 3 * time.Second

// newRouter builds a chi router with the middleware stack and the health and
// metrics routes every service exposes.
func newRouter(opts Options) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders: []string{"X-Session-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler(opts.Checks, opts.Logger))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func healthHandler(checks []HealthCheck, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn().Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.MessageResponse{Message: msg})
}

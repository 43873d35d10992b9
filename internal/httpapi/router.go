// Package httpapi exposes the model registry over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sarinfer/internal/auth"
	"sarinfer/internal/middleware"
	"sarinfer/internal/ratelimit"
	"sarinfer/internal/registry"
	"sarinfer/internal/utils"
)

// healthTimeout bounds each dependency check behind /healthz.
const healthTimeout = 2 * time.Second

// HealthChecker is a dependency reported by /healthz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies holds everything the router serves from.
type Dependencies struct {
	Service *registry.Service
	Gate    *auth.Gate
	// Issuer is nil when token exchange is disabled.
	Issuer *auth.TokenIssuer
	// Limiter is nil when rate limiting is disabled.
	Limiter ratelimit.Limiter
	Health  map[string]HealthChecker
	// Stats, when set, is reported under "stats" by /healthz.
	Stats func() interface{}
	// ModelsRoot confines the folders backup and restore requests touch.
	ModelsRoot string
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)

	r.Get("/healthz", healthHandler(deps.Health, deps.Stats))
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/auth/token", auth.TokenHandler(deps.Gate, deps.Issuer))

	models := NewModelsHandler(deps.Service.WithLocalRoot(deps.ModelsRoot))
	r.Route("/api/v1/models", func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Gate, deps.Issuer))
		if deps.Limiter != nil {
			r.Use(middleware.RateLimit(deps.Limiter))
		}

		r.Get("/", models.List)
		r.Post("/", models.Register)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", models.Get)
			r.Patch("/", models.Update)
			r.Delete("/", models.Delete)
			r.Post("/backup", models.Backup)
			r.Post("/restore", models.Restore)
			r.Post("/load", models.Load)
		})
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Stats  interface{}       `json:"stats,omitempty"`
}

func healthHandler(checks map[string]HealthChecker, stats func() interface{}) http.HandlerFunc {
	logger := utils.NewLogger("health")

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK

		for name, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			err := c.Health(ctx)
			cancel()
			if err != nil {
				logger.Warn("Health check failed", "check", name, "error", err)
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		if stats != nil {
			resp.Stats = stats()
		}

		_ = utils.RespondWithJSON(w, code, resp)
	}
}

package middleware

import (
	"net/http"

	"sarinfer/internal/ratelimit"
	"sarinfer/internal/utils"
)

// RateLimit rejects callers over their limit with 429. It must run after
// Authenticate. Limiter failures are logged and the request is let through.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	logger := utils.NewLogger("ratelimit")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyHash, ok := CallerKeyHash(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), keyHash)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				utils.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

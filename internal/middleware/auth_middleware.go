package middleware

import (
	"context"
	"net/http"

	"sarinfer/internal/auth"
	"sarinfer/internal/metrics"
	"sarinfer/internal/utils"
)

// ContextKey defines the type for context keys to avoid conflicts
type ContextKey string

const (
	// CallerKeyHashKey is the context key for the authenticated caller's key hash
	CallerKeyHashKey ContextKey = "callerKeyHash"
)

// Authenticate admits requests carrying an allow-listed API key or a token
// issued by issuer for a key that is still allow-listed. issuer may be nil, in which case only API keys are
// accepted. Every rejection carries the same message.
func Authenticate(gate *auth.Gate, issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := auth.KeyFromRequest(r)

			var keyHash string
			if err := gate.Validate(credential); err == nil {
				keyHash = utils.HashString(credential)
			} else if issuer != nil && credential != "" {
				// A token outlives its key only until the key leaves the
				// allow-list.
				if hash, err := issuer.Parse(credential); err == nil && gate.ValidateHash(hash) == nil {
					keyHash = hash
				}
			}

			if keyHash == "" {
				metrics.AuthFailuresTotal.Inc()
				utils.RespondWithError(w, http.StatusUnauthorized, auth.ErrMsgInvalidAPIKey)
				return
			}

			ctx := context.WithValue(r.Context(), CallerKeyHashKey, keyHash)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerKeyHash retrieves the authenticated caller's key hash from the context
func CallerKeyHash(ctx context.Context) (string, bool) {
	hash, ok := ctx.Value(CallerKeyHashKey).(string)
	return hash, ok && hash != ""
}

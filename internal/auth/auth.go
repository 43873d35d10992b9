package auth

import (
	"net/http"
	"strings"

	"sarinfer/internal/utils"
)

// KeyFromRequest extracts the presented credential from X-API-Key or an
// Authorization Bearer header.
func KeyFromRequest(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// TokenHandler exchanges an API key for a JWT.
func TokenHandler(gate *Gate, issuer *TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if issuer == nil {
			utils.RespondWithError(w, http.StatusNotFound, "token exchange is disabled")
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if err := gate.Validate(apiKey); err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, ErrMsgInvalidAPIKey)
			return
		}

		token, exp, err := issuer.Issue(utils.HashString(apiKey))
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Error generating token")
			return
		}

		_ = utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"token": token,
			"exp":   exp,
		})
	}
}

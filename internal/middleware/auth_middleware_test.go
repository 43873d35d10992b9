package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sarinfer/internal/auth"
	"sarinfer/internal/metrics"
	"sarinfer/internal/utils"
)

func protected(t *testing.T, gate *auth.Gate, issuer *auth.TokenIssuer) (http.Handler, *string) {
	t.Helper()
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash, ok := CallerKeyHash(r.Context())
		require.True(t, ok, "caller key hash not found in context")
		seen = hash
		w.WriteHeader(http.StatusOK)
	})
	return Authenticate(gate, issuer)(next), &seen
}

func TestAuthenticate_APIKey(t *testing.T) {
	gate := auth.NewGate([]string{"valid_key_1"})
	handler, seen := protected(t, gate, nil)

	t.Run("with X-API-Key header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/models", nil)
		req.Header.Set("X-API-Key", "valid_key_1")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, utils.HashString("valid_key_1"), *seen)
	})

	t.Run("with Bearer token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/models", nil)
		req.Header.Set("Authorization", "Bearer valid_key_1")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthenticate_Rejections(t *testing.T) {
	gate := auth.NewGate([]string{"valid_key_1"})
	issuer := auth.NewTokenIssuer([]byte("secret"), time.Minute)

	tests := []struct {
		name       string
		headerName string
		value      string
	}{
		{name: "missing", headerName: "", value: ""},
		{name: "invalid key", headerName: "X-API-Key", value: "invalid-key-12345"},
		{name: "Bearer with no token", headerName: "Authorization", value: "Bearer "},
		{name: "malformed Bearer", headerName: "Authorization", value: "Bearervalid_key_1"},
		{name: "different auth scheme", headerName: "Authorization", value: "Basic abc123"},
		{name: "garbage token", headerName: "Authorization", value: "Bearer a.b.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("next handler should not be called")
			})
			handler := Authenticate(gate, issuer)(next)

			req := httptest.NewRequest("GET", "/api/v1/models", nil)
			if tt.headerName != "" {
				req.Header.Set(tt.headerName, tt.value)
			}
			w := httptest.NewRecorder()
			failures := testutil.ToFloat64(metrics.AuthFailuresTotal)

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), auth.ErrMsgInvalidAPIKey)
			assert.Equal(t, failures+1, testutil.ToFloat64(metrics.AuthFailuresTotal))
		})
	}
}

func TestAuthenticate_Token(t *testing.T) {
	gate := auth.NewGate([]string{"valid_key_1"})
	issuer := auth.NewTokenIssuer([]byte("secret"), time.Minute)
	handler, seen := protected(t, gate, issuer)

	hash := utils.HashString("valid_key_1")
	token, _, err := issuer.Issue(hash)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/models", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, hash, *seen)
}

func TestAuthenticate_TokenForRevokedKey(t *testing.T) {
	issuer := auth.NewTokenIssuer([]byte("secret"), time.Minute)
	token, _, err := issuer.Issue(utils.HashString("old-key"))
	require.NoError(t, err)

	// Same secret, but old-key has since been removed from the allow-list.
	gate := auth.NewGate([]string{"new-key"})
	handler := Authenticate(gate, issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	before := testutil.ToFloat64(metrics.AuthFailuresTotal)
	req := httptest.NewRequest("GET", "/api/v1/models", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), auth.ErrMsgInvalidAPIKey)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AuthFailuresTotal))
}

func TestAuthenticate_TokenRejectedWithoutIssuer(t *testing.T) {
	gate := auth.NewGate([]string{"valid_key_1"})
	issuer := auth.NewTokenIssuer([]byte("secret"), time.Minute)
	token, _, err := issuer.Issue(utils.HashString("valid_key_1"))
	require.NoError(t, err)

	handler := Authenticate(gate, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCallerKeyHash(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), CallerKeyHashKey, "abc")
		hash, ok := CallerKeyHash(ctx)
		assert.True(t, ok)
		assert.Equal(t, "abc", hash)
	})

	t.Run("absent", func(t *testing.T) {
		_, ok := CallerKeyHash(context.Background())
		assert.False(t, ok)
	})

	t.Run("wrong type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), CallerKeyHashKey, 42)
		_, ok := CallerKeyHash(ctx)
		assert.False(t, ok)
	})
}

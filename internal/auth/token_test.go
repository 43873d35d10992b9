package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sarinfer/internal/utils"
)

func TestNewTokenIssuer_DisabledWithoutSecret(t *testing.T) {
	assert.Nil(t, NewTokenIssuer(nil, time.Minute))
	assert.Nil(t, NewTokenIssuer([]byte{}, time.Minute))
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret-key-for-testing"), time.Minute)
	hash := utils.HashString("valid_key_1")

	token, exp, err := issuer.Issue(hash)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Greater(t, exp, time.Now().Unix())

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, hash, got)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret-a"), time.Minute)
	other := NewTokenIssuer([]byte("secret-b"), time.Minute)

	foreign, _, err := other.Issue("hash")
	require.NoError(t, err)

	expiredIssuer := NewTokenIssuer([]byte("secret-a"), time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := expiredIssuer.Issue("hash")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "hash"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: expired},
		{name: "alg none", token: unsigned},
		{name: "plain api key", token: "valid_key_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestKeyFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", KeyFromRequest(r))

	r.Header.Set("Authorization", "Bearer from-bearer")
	assert.Equal(t, "from-bearer", KeyFromRequest(r))

	r.Header.Set("X-API-Key", "from-header")
	assert.Equal(t, "from-header", KeyFromRequest(r), "X-API-Key takes precedence")

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", KeyFromRequest(r2))
}

func TestTokenHandler(t *testing.T) {
	gate := NewGate(validAPIKeys)
	issuer := NewTokenIssuer([]byte("secret"), time.Minute)

	t.Run("valid key", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
		r.Header.Set("X-API-Key", "valid_key_1")
		w := httptest.NewRecorder()

		TokenHandler(gate, issuer)(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Token string `json:"token"`
			Exp   int64  `json:"exp"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		hash, err := issuer.Parse(body.Token)
		require.NoError(t, err)
		assert.Equal(t, utils.HashString("valid_key_1"), hash)
	})

	t.Run("invalid key", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
		r.Header.Set("X-API-Key", "wrong")
		w := httptest.NewRecorder()

		TokenHandler(gate, issuer)(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), ErrMsgInvalidAPIKey)
	})

	t.Run("disabled", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
		r.Header.Set("X-API-Key", "valid_key_1")
		w := httptest.NewRecorder()

		TokenHandler(gate, nil)(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

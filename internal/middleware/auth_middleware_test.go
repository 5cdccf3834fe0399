package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newKeyAndHandler(t *testing.T) (*rsa.PrivateKey, http.Handler, *int64) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var seenCallerID int64
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCallerID = CallerID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	return privateKey, AuthMiddleware(&privateKey.PublicKey)(inner), &seenCallerID
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestAuthMiddlewarePassesCallerID(t *testing.T) {
	key, handler, seen := newKeyAndHandler(t)

	token := signToken(t, key, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/apikeys/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(42), *seen)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	_, handler, seen := newKeyAndHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/apikeys/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, *seen)
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	key, handler, _ := newKeyAndHandler(t)

	token := signToken(t, key, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/apikeys/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsWrongSigningMethod(t *testing.T) {
	_, handler, _ := newKeyAndHandler(t)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("hmac-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/apikeys/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsNonNumericSubject(t *testing.T) {
	key, handler, _ := newKeyAndHandler(t)

	token := signToken(t, key, jwt.MapClaims{
		"sub": "not-a-number",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/apikeys/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallerIDDefaultsToZero(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/apikeys/", nil)
	require.Zero(t, CallerID(req.Context()))
}

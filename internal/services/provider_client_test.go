package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/poofware/apikey-service/internal/config"
)

// signedTestToken builds a structurally valid JWT. The signature is
// irrelevant: the client decodes claims without verifying it.
func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func testProviderConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		BaseURL:      baseURL,
		Realm:        "master",
		ClientID:     "apikey-client",
		ClientSecret: "s3cr3t",
		Timeout:      5 * time.Second,
	}
}

func TestExchangeCredentialsSuccess(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	accessToken := signedTestToken(t, jwt.MapClaims{
		"sub": "alice",
		"exp": exp,
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/realms/master/protocol/openid-connect/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "password", r.PostFormValue("grant_type"))
		require.Equal(t, "apikey-client", r.PostFormValue("client_id"))
		require.Equal(t, "s3cr3t", r.PostFormValue("client_secret"))
		require.Equal(t, "alice", r.PostFormValue("username"))
		require.Equal(t, "hunter2", r.PostFormValue("password"))
		require.Equal(t, "openid profile email roles", r.PostFormValue("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + accessToken + `","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	client := NewProviderClient(testProviderConfig(srv.URL))

	token, claims, err := client.ExchangeCredentials(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, accessToken, token)
	require.Equal(t, float64(exp), claims["exp"])
}

func TestExchangeCredentialsProviderRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid user credentials"}`))
	}))
	defer srv.Close()

	client := NewProviderClient(testProviderConfig(srv.URL))

	_, _, err := client.ExchangeCredentials(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	require.Equal(t, http.StatusUnauthorized, pErr.StatusCode)
	require.Contains(t, pErr.Body, "Invalid user credentials")
	require.NotContains(t, pErr.Error(), "s3cr3t")
}

func TestExchangeCredentialsMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	client := NewProviderClient(testProviderConfig(srv.URL))

	_, _, err := client.ExchangeCredentials(context.Background(), "alice", "hunter2")
	require.ErrorContains(t, err, "access_token")
}

func TestRevokeSuccess(t *testing.T) {
	var gotToken, gotHint string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/realms/master/protocol/openid-connect/revoke", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "apikey-client", r.PostFormValue("client_id"))
		require.Equal(t, "s3cr3t", r.PostFormValue("client_secret"))
		gotToken = r.PostFormValue("token")
		gotHint = r.PostFormValue("token_type_hint")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewProviderClient(testProviderConfig(srv.URL))

	err := client.Revoke(context.Background(), "the-token", "access_token")
	require.NoError(t, err)
	require.Equal(t, "the-token", gotToken)
	require.Equal(t, "access_token", gotHint)
}

func TestRevokeProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("revocation backend down"))
	}))
	defer srv.Close()

	client := NewProviderClient(testProviderConfig(srv.URL))

	err := client.Revoke(context.Background(), "the-token", "access_token")
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	require.Equal(t, http.StatusServiceUnavailable, pErr.StatusCode)
	require.Contains(t, pErr.Body, "revocation backend down")
}

func TestExchangeCredentialsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testProviderConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	client := NewProviderClient(cfg)

	_, _, err := client.ExchangeCredentials(context.Background(), "alice", "hunter2")
	require.Error(t, err)

	// A hung provider is a transport failure, not a provider response.
	var pErr *ProviderError
	require.False(t, errors.As(err, &pErr))
}

func TestDecodeClaimsWithoutVerification(t *testing.T) {
	claims := jwt.MapClaims{"exp": float64(1234567890), "sub": "alice"}
	raw := signedTestToken(t, claims)

	decoded, err := DecodeClaimsWithoutVerification(raw)
	require.NoError(t, err)
	require.Equal(t, float64(1234567890), decoded["exp"])
	require.Equal(t, "alice", decoded["sub"])

	_, err = DecodeClaimsWithoutVerification("not-a-jwt")
	require.Error(t, err)
}

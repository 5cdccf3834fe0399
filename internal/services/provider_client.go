package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/poofware/apikey-service/internal/config"
)

// Scope requested on every credential exchange.
const providerTokenScope = "openid profile email roles"

// ProviderError is returned when the identity provider responds with a
// non-2xx status. Body carries the provider's response text for
// diagnosis; the client secret is never part of a provider response.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.StatusCode, e.Body)
}

// IdentityProvider is the outbound contract to the OAuth2/OIDC token
// endpoints. It is implemented by ProviderClient and substituted with a
// fake in tests.
type IdentityProvider interface {
	ExchangeCredentials(ctx context.Context, username, password string) (string, jwt.MapClaims, error)
	Revoke(ctx context.Context, token, tokenTypeHint string) error
}

// ProviderClient talks to the identity provider's password-grant token
// endpoint and revoke endpoint. It is stateless: constructed once at
// startup from ProviderConfig and injected into the service layer.
type ProviderClient struct {
	cfg        config.ProviderConfig
	httpClient *http.Client
}

func NewProviderClient(cfg config.ProviderConfig) *ProviderClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultProviderTimeout
	}
	return &ProviderClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ExchangeCredentials posts a password-grant request and returns the
// raw access token together with its decoded claims.
func (c *ProviderClient) ExchangeCredentials(ctx context.Context, username, password string) (string, jwt.MapClaims, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"username":      {username},
		"password":      {password},
		"scope":         {providerTokenScope},
	}

	body, err := c.postForm(ctx, c.tokenURL(), form)
	if err != nil {
		return "", nil, err
	}

	var tokenData struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenData); err != nil {
		return "", nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenData.AccessToken == "" {
		return "", nil, fmt.Errorf("token response is missing access_token")
	}

	claims, err := DecodeClaimsWithoutVerification(tokenData.AccessToken)
	if err != nil {
		return "", nil, err
	}

	return tokenData.AccessToken, claims, nil
}

// Revoke posts the token to the provider's revoke endpoint. The side
// effect is external; callers decide what happens to local state.
func (c *ProviderClient) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"token":         {token},
	}
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}

	_, err := c.postForm(ctx, c.revokeURL(), form)
	return err
}

// DecodeClaimsWithoutVerification decodes a JWT's claims without
// checking its signature. The provider is trusted over TLS and we only
// read the exp claim for local bookkeeping, so local verification is an
// explicit non-goal rather than an omission.
func DecodeClaimsWithoutVerification(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to decode access token claims: %w", err)
	}
	return claims, nil
}

func (c *ProviderClient) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Realm)
}

func (c *ProviderClient) revokeURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/revoke",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Realm)
}

// postForm executes one form-encoded POST. Non-2xx responses become a
// *ProviderError carrying the response body.
func (c *ProviderClient) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

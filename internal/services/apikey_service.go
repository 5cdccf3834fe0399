package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/poofware/apikey-service/internal/models"
	"github.com/poofware/apikey-service/internal/repositories"
	"github.com/poofware/apikey-service/internal/utils"
)

// ---------------------------------------------------------------------
// ApiKeyService interface
// ---------------------------------------------------------------------
type ApiKeyService interface {
	// Create exchanges the user's credentials with the identity provider
	// and persists the issued token under callerID.
	Create(ctx context.Context, callerID int64, username, password string) (*models.ApiKeyToken, error)

	// Get returns the token with the given id if callerID owns it.
	Get(ctx context.Context, callerID, id int64) (*models.ApiKeyToken, error)

	// List returns every token owned by callerID, ordered by orderBy
	// (created_at or expires_at).
	List(ctx context.Context, callerID int64, orderBy string, descending bool) ([]*models.ApiKeyToken, error)

	// Delete removes the token locally. Not idempotent: a second delete
	// of the same id fails with not found.
	Delete(ctx context.Context, callerID, id int64) error

	// Revoke notifies the provider, then deletes the local row. If the
	// provider call fails the local row is left untouched so the
	// reference to the still-active remote token is not lost.
	Revoke(ctx context.Context, callerID, id int64) error
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------
type apiKeyService struct {
	tokenRepo repositories.TokenRepository
	provider  IdentityProvider
}

func NewApiKeyService(tokenRepo repositories.TokenRepository, provider IdentityProvider) ApiKeyService {
	return &apiKeyService{
		tokenRepo: tokenRepo,
		provider:  provider,
	}
}

func (s *apiKeyService) Create(ctx context.Context, callerID int64, username, password string) (*models.ApiKeyToken, error) {
	if callerID <= 0 {
		return nil, errUnauthorized()
	}

	accessToken, claims, err := s.provider.ExchangeCredentials(ctx, username, password)
	if err != nil {
		return nil, providerAppError("Failed to generate token with the identity provider", err)
	}

	expiresAt, err := expiryFromClaims(claims)
	if err != nil {
		return nil, &utils.AppError{
			StatusCode: http.StatusInternalServerError,
			Code:       utils.ErrCodeIdentityProvider,
			Message:    "Identity provider token has no usable expiry claim",
			Err:        err,
		}
	}

	record := &models.ApiKeyToken{
		UserID:    callerID,
		Token:     accessToken,
		ExpiresAt: expiresAt,
	}

	if err := s.tokenRepo.Create(ctx, record); err != nil {
		// The remote token is live but we have no local record of it.
		// Flagged for operational follow-up; we intentionally do not
		// attempt an automatic remote revoke here.
		utils.Logger.WithFields(logrus.Fields{
			"user_id":    callerID,
			"expires_at": expiresAt,
		}).WithError(err).Error("Failed to persist API key after successful provider exchange; remote token left active")
		return nil, &utils.AppError{
			StatusCode: http.StatusInternalServerError,
			Code:       utils.ErrCodeInternal,
			Message:    "Failed to store the generated token",
			Err:        err,
		}
	}

	return record, nil
}

func (s *apiKeyService) Get(ctx context.Context, callerID, id int64) (*models.ApiKeyToken, error) {
	return s.fetchOwned(ctx, callerID, id)
}

func (s *apiKeyService) List(ctx context.Context, callerID int64, orderBy string, descending bool) ([]*models.ApiKeyToken, error) {
	if callerID <= 0 {
		return nil, errUnauthorized()
	}

	tokens, err := s.tokenRepo.ListByOwner(ctx, callerID, orderBy, descending)
	if err != nil {
		return nil, &utils.AppError{
			StatusCode: http.StatusInternalServerError,
			Code:       utils.ErrCodeInternal,
			Message:    "Failed to list tokens",
			Err:        err,
		}
	}
	return tokens, nil
}

func (s *apiKeyService) Delete(ctx context.Context, callerID, id int64) error {
	if _, err := s.fetchOwned(ctx, callerID, id); err != nil {
		return err
	}

	deleted, err := s.tokenRepo.Delete(ctx, id)
	if err != nil {
		return &utils.AppError{
			StatusCode: http.StatusInternalServerError,
			Code:       utils.ErrCodeInternal,
			Message:    "Failed to delete token",
			Err:        err,
		}
	}
	if !deleted {
		// Row disappeared between the ownership check and the delete.
		return errNotFound()
	}
	return nil
}

func (s *apiKeyService) Revoke(ctx context.Context, callerID, id int64) error {
	record, err := s.fetchOwned(ctx, callerID, id)
	if err != nil {
		return err
	}

	// Provider first. On failure the local row stays so the reference to
	// the still-active remote token is not silently lost.
	if err := s.provider.Revoke(ctx, record.Token, "access_token"); err != nil {
		return providerAppError("Failed to revoke token with the identity provider", err)
	}

	if _, err := s.tokenRepo.Delete(ctx, id); err != nil {
		// Remote token is already dead; the orphaned row also falls to
		// the daily expiry sweep.
		return &utils.AppError{
			StatusCode: http.StatusInternalServerError,
			Code:       utils.ErrCodeInternal,
			Message:    "Token revoked but local cleanup failed",
			Err:        err,
		}
	}
	return nil
}

// fetchOwned is the single ownership gate for all by-id operations:
// existence first (404), then owner match (403).
func (s *apiKeyService) fetchOwned(ctx context.Context, callerID, id int64) (*models.ApiKeyToken, error) {
	if callerID <= 0 {
		return nil, errUnauthorized()
	}

	record, err := s.tokenRepo.GetByID(ctx, id)
	if err != nil {
		return nil, &utils.AppError{
			StatusCode: http.StatusInternalServerError,
			Code:       utils.ErrCodeInternal,
			Message:    "Failed to fetch token",
			Err:        err,
		}
	}
	if record == nil {
		return nil, errNotFound()
	}
	if record.UserID != callerID {
		return nil, &utils.AppError{
			StatusCode: http.StatusForbidden,
			Code:       utils.ErrCodeForbidden,
			Message:    "Token belongs to another user",
		}
	}
	return record, nil
}

// expiryFromClaims reads the exp claim (epoch seconds). Every stored
// record must carry an expiry; a token without one is rejected.
func expiryFromClaims(claims map[string]any) (time.Time, error) {
	raw, ok := claims["exp"]
	if !ok {
		return time.Time{}, errors.New("exp claim is missing")
	}
	exp, ok := raw.(float64)
	if !ok || exp <= 0 {
		return time.Time{}, errors.New("exp claim is not a positive number")
	}
	return time.Unix(int64(exp), 0), nil
}

func providerAppError(publicMessage string, err error) *utils.AppError {
	var pErr *ProviderError
	if errors.As(err, &pErr) && pErr.Body != "" {
		// Surface the provider's own error text for diagnosis. Provider
		// responses never contain our client secret.
		publicMessage = publicMessage + ": " + pErr.Body
	}
	return &utils.AppError{
		StatusCode: http.StatusInternalServerError,
		Code:       utils.ErrCodeIdentityProvider,
		Message:    publicMessage,
		Err:        err,
	}
}

func errUnauthorized() *utils.AppError {
	return &utils.AppError{
		StatusCode: http.StatusUnauthorized,
		Code:       utils.ErrCodeUnauthorized,
		Message:    "Authentication required",
	}
}

func errNotFound() *utils.AppError {
	return &utils.AppError{
		StatusCode: http.StatusNotFound,
		Code:       utils.ErrCodeNotFound,
		Message:    "Token not found",
	}
}

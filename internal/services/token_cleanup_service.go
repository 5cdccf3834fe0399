package services

import (
	"context"

	"github.com/poofware/apikey-service/internal/repositories"
	"github.com/poofware/apikey-service/internal/utils"
)

// TokenCleanupService sweeps rows whose provider token has expired. A
// stored token is useless once the provider no longer honors it.
type TokenCleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type tokenCleanupService struct {
	tokenRepo repositories.TokenRepository
}

func NewTokenCleanupService(tokenRepo repositories.TokenRepository) TokenCleanupService {
	return &tokenCleanupService{tokenRepo: tokenRepo}
}

func (s *tokenCleanupService) CleanupDaily(ctx context.Context) error {
	removed, err := s.tokenRepo.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		utils.Logger.Infof("Token cleanup removed %d expired API key tokens", removed)
	}
	return nil
}

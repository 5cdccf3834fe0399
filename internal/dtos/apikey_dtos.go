package dtos

import (
	"github.com/poofware/apikey-service/internal/models"
)

// ----------------------
// Requests
// ----------------------

type CreateApiKeyRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ----------------------
// Responses
// ----------------------

type CreateApiKeyResponse struct {
	Message string             `json:"message"`
	Result  models.ApiKeyToken `json:"result"`
}

type GetApiKeyResponse struct {
	Result models.ApiKeyToken `json:"result"`
}

type ListApiKeysResponse struct {
	Count  int                   `json:"count"`
	Result []*models.ApiKeyToken `json:"result"`
}

type DeleteApiKeyResponse struct {
	Message string `json:"message"`
}

type RevokeApiKeyResponse struct {
	Message string `json:"message"`
}

type HealthCheckResponse struct {
	Status string `json:"status"`
}

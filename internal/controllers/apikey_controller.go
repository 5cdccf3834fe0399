package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/poofware/apikey-service/internal/dtos"
	"github.com/poofware/apikey-service/internal/middleware"
	"github.com/poofware/apikey-service/internal/repositories"
	"github.com/poofware/apikey-service/internal/services"
	"github.com/poofware/apikey-service/internal/utils"
)

type ApiKeyController struct {
	apiKeyService services.ApiKeyService
}

func NewApiKeyController(apiKeyService services.ApiKeyService) *ApiKeyController {
	return &ApiKeyController{apiKeyService: apiKeyService}
}

var apiKeyValidate = validator.New()

// CreateToken exchanges the caller's credentials for a provider-issued
// token and stores it under the caller's account.
func (c *ApiKeyController) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateApiKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := apiKeyValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Required fields: username, password", nil, err,
		)
		return
	}

	callerID := middleware.CallerID(r.Context())
	record, err := c.apiKeyService.Create(r.Context(), callerID, req.Username, req.Password)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.CreateApiKeyResponse{
		Message: "Token created successfully",
		Result:  *record,
	})
}

func (c *ApiKeyController) GetToken(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTokenID(w, r)
	if !ok {
		return
	}

	callerID := middleware.CallerID(r.Context())
	record, err := c.apiKeyService.Get(r.Context(), callerID, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.GetApiKeyResponse{Result: *record})
}

func (c *ApiKeyController) ListTokens(w http.ResponseWriter, r *http.Request) {
	orderBy := r.URL.Query().Get("order_column")
	if orderBy == "" {
		orderBy = repositories.OrderByCreatedAt
	}
	descending := r.URL.Query().Get("order_direction") != "asc"

	callerID := middleware.CallerID(r.Context())
	tokens, err := c.apiKeyService.List(r.Context(), callerID, orderBy, descending)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.ListApiKeysResponse{
		Count:  len(tokens),
		Result: tokens,
	})
}

func (c *ApiKeyController) DeleteToken(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTokenID(w, r)
	if !ok {
		return
	}

	callerID := middleware.CallerID(r.Context())
	if err := c.apiKeyService.Delete(r.Context(), callerID, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.DeleteApiKeyResponse{
		Message: "Token deleted successfully",
	})
}

// RevokeToken revokes the token at the identity provider, then removes
// the local record. A failed provider call leaves the record in place.
func (c *ApiKeyController) RevokeToken(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTokenID(w, r)
	if !ok {
		return
	}

	callerID := middleware.CallerID(r.Context())
	if err := c.apiKeyService.Revoke(r.Context(), callerID, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.RevokeApiKeyResponse{
		Message: "Token revoked successfully",
	})
}

// parseTokenID reads the {id} path variable. Ids are positive integers;
// anything else cannot name an existing record.
func parseTokenID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound, "Token not found", nil,
		)
		return 0, false
	}
	return id, true
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
	"github.com/onetop21/mcp-server-hub-sub003/internal/interfaces/http/middleware"
	"github.com/onetop21/mcp-server-hub-sub003/internal/interfaces/http/response"
	"github.com/onetop21/mcp-server-hub-sub003/internal/usecases"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/utils"
)

type ApiKeyHandler struct {
	apiKeyUsecase *usecases.ApiKeyUsecase
}

func NewApiKeyHandler(apiKeyUsecase *usecases.ApiKeyUsecase) *ApiKeyHandler {
	return &ApiKeyHandler{
		apiKeyUsecase: apiKeyUsecase,
	}
}

// CreateApiKey issues a new API key for the authenticated user. The raw key
// appears in this response and never again.
// POST /api/v1/keys
func (h *ApiKeyHandler) CreateApiKey(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.Error(c, domainerrors.MissingCredential("request is not authenticated"))
		return
	}

	var input entities.CreateApiKeyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	created, err := h.apiKeyUsecase.CreateApiKey(c.Request.Context(), userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// ListApiKeys lists key metadata for the current user, oldest first
// GET /api/v1/keys
func (h *ApiKeyHandler) ListApiKeys(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.Error(c, domainerrors.MissingCredential("request is not authenticated"))
		return
	}

	apiKeys, err := h.apiKeyUsecase.ListApiKeys(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"keys": apiKeys, "count": len(apiKeys)})
}

// RevokeApiKey tombstones a key the current user owns
// DELETE /api/v1/keys/:id
func (h *ApiKeyHandler) RevokeApiKey(c *gin.Context) {
	apiKeyID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid api key id"))
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.Error(c, domainerrors.MissingCredential("request is not authenticated"))
		return
	}

	if err := h.apiKeyUsecase.RevokeApiKey(c.Request.Context(), userID, apiKeyID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "api key revoked"})
}

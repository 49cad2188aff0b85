package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
	"github.com/onetop21/mcp-server-hub-sub003/internal/interfaces/http/response"
	"github.com/onetop21/mcp-server-hub-sub003/internal/usecases"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey = "principal"
)

// AuthMiddleware resolves the Authorization header through the gateway and
// aborts with the mapped status on any failure. Every protected route goes
// through here exactly once.
func AuthMiddleware(gateway *usecases.AuthGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := gateway.Authenticate(c.Request.Context(), c.GetHeader(AuthorizationHeader))

		if principal != nil && principal.Quota != nil {
			setQuotaHeaders(c, principal.Quota)
		}

		if err != nil {
			if errors.Is(err, domainerrors.ErrRateLimitExceeded) {
				c.Header("Retry-After", retryAfter(principal))
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// RequirePermission gates a route on an API-key permission. Session tokens
// act with the full authority of their user and always pass.
func RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			response.Error(c, domainerrors.MissingCredential("request is not authenticated"))
			c.Abort()
			return
		}

		if principal.Credential == entities.CredentialApiKey {
			key := entities.ApiKey{Permissions: principal.Permissions}
			if !key.Can(resource, action) {
				response.Error(c, domainerrors.Forbidden("api key lacks permission "+resource+":"+action))
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// GetPrincipal gets the authenticated principal from context
func GetPrincipal(c *gin.Context) (*entities.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return nil, false
	}
	principal, ok := v.(*entities.Principal)
	return principal, ok
}

// GetUserID gets the authenticated user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	principal, ok := GetPrincipal(c)
	if !ok {
		return uuid.Nil, false
	}
	return principal.UserID, true
}

func setQuotaHeaders(c *gin.Context, quota *entities.RateLimitStatus) {
	c.Header("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
	c.Header("X-RateLimit-Reset", quota.ResetTime.UTC().Format(time.RFC3339))
}

func retryAfter(principal *entities.Principal) string {
	if principal == nil || principal.Quota == nil {
		return "60"
	}
	seconds := int(time.Until(principal.Quota.ResetTime).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

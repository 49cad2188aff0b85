package response

import (
	"errors"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error sends an error response. AppError carries its own status code; bare
// sentinels are mapped by kind. Anything else answers with a generic message
// so driver and infrastructure error text never leaves the process.
func Error(c *gin.Context, err error) {
	status := domainerrors.HTTPStatus(err)

	c.JSON(status, gin.H{
		"code":    status,
		"message": publicMessage(err),
	})
}

// sentinels whose text is safe to show to callers
var publicSentinels = []error{
	domainerrors.ErrMissingCredential,
	domainerrors.ErrInvalidCredential,
	domainerrors.ErrExpired,
	domainerrors.ErrUnauthorized,
	domainerrors.ErrForbidden,
	domainerrors.ErrRateLimitExceeded,
	domainerrors.ErrNotFound,
	domainerrors.ErrAlreadyExists,
	domainerrors.ErrInvalidInput,
	domainerrors.ErrKeyGenerationExhausted,
	domainerrors.ErrSchema,
	domainerrors.ErrUnavailable,
}

func publicMessage(err error) string {
	var appErr *domainerrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	for _, s := range publicSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal server error"
}

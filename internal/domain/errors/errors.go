package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound               = errors.New("resource not found")
	ErrAlreadyExists          = errors.New("resource already exists")
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrMissingCredential      = errors.New("missing credential")
	ErrInvalidCredential      = errors.New("invalid credential")
	ErrExpired                = errors.New("credential expired")
	ErrForbidden              = errors.New("forbidden")
	ErrRateLimitExceeded      = errors.New("rate limit exceeded")
	ErrKeyGenerationExhausted = errors.New("api key generation retries exhausted")
	ErrSchema                 = errors.New("schema migration error")
	ErrUnavailable            = errors.New("storage unavailable")
)

// AppError represents application error with HTTP status
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, ErrUnauthorized)
}

func MissingCredential(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, ErrMissingCredential)
}

func InvalidCredential(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, ErrInvalidCredential)
}

func Expired(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, ErrExpired)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, message, ErrForbidden)
}

func RateLimitExceeded(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, message, ErrRateLimitExceeded)
}

func SchemaError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, message, join(ErrSchema, err))
}

func Unavailable(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, "storage unavailable", join(ErrUnavailable, err))
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, "internal server error", err)
}

func join(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return errors.Join(kind, cause)
}

// HTTPStatus maps any error to the status code the HTTP layer should answer
// with. AppError carries its own code; bare sentinels map per kind.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrMissingCredential),
		errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

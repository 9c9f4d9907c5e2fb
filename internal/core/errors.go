// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")

	ErrValidation        = errors.New("validation failed")
	ErrConfiguration     = errors.New("configuration error")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrItemUnavailable   = errors.New("item unavailable")
	ErrAccessDenied      = errors.New("access denied")
	ErrUpstream          = errors.New("upstream failure")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("%s already exists", field),
		http.StatusConflict,
		"DUPLICATE",
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "token is invalid", http.StatusUnauthorized, "TOKEN_INVALID")
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrValidation, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

func ConfigurationError() *AppError {
	return NewAppError(
		ErrConfiguration,
		"service is misconfigured",
		http.StatusInternalServerError,
		"CONFIGURATION_ERROR",
	)
}

// InvalidTransitionError carries the violated guard. Only admin routes surface it.
func InvalidTransitionError(message string) *AppError {
	return NewAppError(ErrInvalidTransition, message, http.StatusConflict, "INVALID_TRANSITION")
}

func ItemUnavailableError() *AppError {
	return NewAppError(ErrItemUnavailable, "item is not available", http.StatusNotFound, "ITEM_UNAVAILABLE")
}

// AccessDeniedError never says which check failed.
func AccessDeniedError() *AppError {
	return NewAppError(ErrAccessDenied, "invalid download credentials", http.StatusForbidden, "ACCESS_DENIED")
}

func UpstreamError(message string) *AppError {
	return NewAppError(ErrUpstream, message, http.StatusBadGateway, "UPSTREAM_ERROR")
}

// TransitionError builds a wrapped ErrInvalidTransition naming the guard.
func TransitionError(op, current, required string) error {
	return fmt.Errorf(
		"%s: state is %q, requires %s: %w",
		op,
		current,
		required,
		ErrInvalidTransition,
	)
}

// TransitionMessage strips the wrapping so admins see only the guard text.
func TransitionMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	msg := err.Error()
	suffix := ": " + ErrInvalidTransition.Error()
	if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
		return msg[:len(msg)-len(suffix)]
	}
	return msg
}

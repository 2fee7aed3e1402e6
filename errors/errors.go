package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/NomadCrew/nomadnova-backend/logger"
)

type ErrorType string

const (
	ValidationError ErrorType = "VALIDATION_ERROR"
	NotFoundError   ErrorType = "NOT_FOUND"
	AuthError       ErrorType = "AUTHENTICATION_ERROR"
	ForbiddenError  ErrorType = "FORBIDDEN"
	ServerError     ErrorType = "SERVER_ERROR"
	TransientError  ErrorType = "TRANSIENT"
	RateLimitError  ErrorType = "RATE_LIMIT_EXCEEDED"

	ErrorTypeConflict ErrorType = "CONFLICT"
)

// Machine-readable codes carried in AppError.Code.
const (
	CodeTripNotFound         = "TRIP_NOT_FOUND"
	CodeMembershipNotFound   = "MEMBERSHIP_NOT_FOUND"
	CodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	CodeAlreadyJoined        = "ALREADY_JOINED"
	CodeTripFull             = "TRIP_FULL"
	CodeSelfJoin             = "SELF_JOIN"
	CodeTripTerminal         = "TRIP_TERMINAL"
	CodeTripNotStarted       = "TRIP_NOT_STARTED"
	CodeNotTripOwner         = "NOT_TRIP_OWNER"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeRateLimited          = "RATE_LIMITED"
)

// AppError is the error type rendered by the HTTP layer.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the status the error should be rendered with.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates an AppError whose status is derived from errType.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap attaches AppError context to err. Returns nil for a nil err.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

func NotFound(code, entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Code:       code,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Code:       CodeInvalidRequest,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Code:       CodeInvalidToken,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(code, message string) *AppError {
	return &AppError{
		Type:       ForbiddenError,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// Transient wraps a store or connection failure the caller may retry. The
// raw cause is logged here and kept out of the rendered message.
func Transient(err error, operation string) *AppError {
	logger.GetLogger().Errorw("Transient store failure", "operation", operation, "error", err)
	return &AppError{
		Type:       TransientError,
		Code:       CodeStoreUnavailable,
		Message:    "Service temporarily unavailable, please retry",
		Detail:     operation,
		HTTPStatus: http.StatusServiceUnavailable,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func RateLimitExceeded(message string, retryAfterSeconds int) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Code:       CodeRateLimited,
		Message:    message,
		Detail:     fmt.Sprintf("retry after %d seconds", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// As reports whether err is (or wraps) an *AppError and returns it.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an *AppError carrying code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case AuthError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case ErrorTypeConflict:
		return http.StatusConflict
	case TransientError:
		return http.StatusServiceUnavailable
	case RateLimitError:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

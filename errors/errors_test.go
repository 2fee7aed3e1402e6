package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestNew(t *testing.T) {
	err := New(ValidationError, "invalid input", "field required")
	assert.Equal(t, ValidationError, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Equal(t, "field required", err.Detail)
	assert.Equal(t, http.StatusBadRequest, err.GetHTTPStatus())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ServerError, "ignored"))

	cause := fmt.Errorf("boom")
	wrapped := Wrap(cause, ServerError, "operation failed")
	assert.Equal(t, ServerError, wrapped.Type)
	assert.Equal(t, "boom", wrapped.Detail)
	assert.True(t, stderrors.Is(wrapped, cause))
	assert.Equal(t, http.StatusInternalServerError, wrapped.GetHTTPStatus())
}

func TestTaxonomyStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		code   string
	}{
		{"not found", NotFound(CodeTripNotFound, "trip", "t1"), http.StatusNotFound, CodeTripNotFound},
		{"conflict", NewConflictError(CodeTripFull, "trip is full"), http.StatusConflict, CodeTripFull},
		{"forbidden", Forbidden(CodeNotTripOwner, "only the owner"), http.StatusForbidden, CodeNotTripOwner},
		{"transient", Transient(fmt.Errorf("conn reset"), "join"), http.StatusServiceUnavailable, CodeStoreUnavailable},
		{"auth", AuthenticationFailed("missing token"), http.StatusUnauthorized, CodeInvalidToken},
		{"rate limit", RateLimitExceeded("slow down", 30), http.StatusTooManyRequests, CodeRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.GetHTTPStatus())
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestAsAndHasCode(t *testing.T) {
	err := fmt.Errorf("context: %w", NewConflictError(CodeAlreadyJoined, "already joined"))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeConflict, appErr.Type)
	assert.True(t, HasCode(err, CodeAlreadyJoined))
	assert.False(t, HasCode(err, CodeTripFull))

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: trip not found (ID: 42)", NotFound(CodeTripNotFound, "trip", 42).Error())
	assert.Equal(t, "SERVER_ERROR: oops", InternalServerError("oops").Error())
}

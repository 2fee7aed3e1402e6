package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubHealth struct {
	status types.HealthStatus
}

func (s stubHealth) CheckHealth(context.Context) types.HealthCheck {
	return types.HealthCheck{Status: s.status, Components: map[string]types.HealthComponent{}}
}

func (s stubHealth) IsLive() bool { return true }

func TestReadinessCheck(t *testing.T) {
	for status, want := range map[types.HealthStatus]int{
		types.HealthStatusUp:       http.StatusOK,
		types.HealthStatusDegraded: http.StatusOK,
		types.HealthStatusDown:     http.StatusServiceUnavailable,
	} {
		h := NewHealthHandler(stubHealth{status: status})
		r := gin.New()
		r.GET("/health/readiness", h.ReadinessCheck)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))
		assert.Equal(t, want, w.Code, "status %s", status)
	}
}

func TestLivenessCheck(t *testing.T) {
	h := NewHealthHandler(stubHealth{status: types.HealthStatusDown})
	r := gin.New()
	r.GET("/health/liveness", h.LivenessCheck)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/liveness", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleTripView() *types.TripView {
	from := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	trip := types.Trip{
		ID:          "trip-1",
		OwnerID:     "owner-1",
		Title:       "Paris weekend",
		Destination: "Paris, France",
		FromDate:    from,
		ToDate:      from.Add(72 * time.Hour),
		MaxPeople:   4,
		Status:      types.TripStatusUpcoming,
	}
	view := types.NewTripView(&trip, from.Add(-24*time.Hour))
	return &view
}

func TestCreateTripHandler(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		body       string
		setupMock  func(*MockTripService)
		wantStatus int
		wantCode   string
	}{
		{
			name:   "created",
			userID: "owner-1",
			body:   `{"title":"Paris weekend","destination":"Paris, France","fromDate":"2026-11-01T00:00:00Z","toDate":"2026-11-04T00:00:00Z","maxPeople":4}`,
			setupMock: func(m *MockTripService) {
				m.On("CreateTrip", mock.Anything, "owner-1", mock.MatchedBy(func(req types.TripCreate) bool {
					return req.Title == "Paris weekend" && req.MaxPeople == 4 && req.FromDate.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
				})).Return(sampleTripView(), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "malformed body",
			userID:     "owner-1",
			body:       `{"title":`,
			setupMock:  func(m *MockTripService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidRequest,
		},
		{
			name:   "service validation error",
			userID: "owner-1",
			body:   `{"title":"Paris weekend","destination":"Paris, France","fromDate":"2026-11-04T00:00:00Z","toDate":"2026-11-01T00:00:00Z","maxPeople":4}`,
			setupMock: func(m *MockTripService) {
				m.On("CreateTrip", mock.Anything, "owner-1", mock.Anything).
					Return(nil, apperrors.ValidationFailed("Invalid trip data", "fromDate must be before toDate"))
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidRequest,
		},
		{
			name:       "unauthenticated",
			body:       `{}`,
			setupMock:  func(m *MockTripService) {},
			wantStatus: http.StatusUnauthorized,
			wantCode:   apperrors.CodeInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTripService)
			tt.setupMock(svc)
			h := NewTripHandler(svc, new(MockLedger))

			r := newTestRouter(tt.userID)
			r.POST("/v1/trips", h.CreateTripHandler)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/trips", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			if tt.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				assert.False(t, resp.Success)
			} else {
				assert.True(t, resp.Success)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestGetTripHandler_NotFound(t *testing.T) {
	svc := new(MockTripService)
	svc.On("GetTrip", mock.Anything, "missing").
		Return(nil, apperrors.NotFound(apperrors.CodeTripNotFound, "Trip", "missing"))
	h := NewTripHandler(svc, new(MockLedger))

	r := newTestRouter("user-1")
	r.GET("/v1/trips/:id", h.GetTripHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/trips/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperrors.CodeTripNotFound, resp.Error.Code)
}

func TestGetTripHandler_ReturnsDerivedStatus(t *testing.T) {
	view := sampleTripView()
	view.Status = types.TripStatusOngoing
	svc := new(MockTripService)
	svc.On("GetTrip", mock.Anything, "trip-1").Return(view, nil)
	h := NewTripHandler(svc, new(MockLedger))

	r := newTestRouter("user-1")
	r.GET("/v1/trips/:id", h.GetTripHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/trips/trip-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ongoing"`)
}

func TestListUserTripsHandler_EmptyIsArray(t *testing.T) {
	svc := new(MockTripService)
	svc.On("ListUserTrips", mock.Anything, "user-1").Return(nil, nil)
	h := NewTripHandler(svc, new(MockLedger))

	r := newTestRouter("user-1")
	r.GET("/v1/trips", h.ListUserTripsHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/trips", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestCompleteTripHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "owner completes", wantStatus: http.StatusOK},
		{name: "not owner", err: apperrors.Forbidden(apperrors.CodeNotTripOwner, "Only the trip owner can complete this trip"), wantStatus: http.StatusForbidden},
		{name: "not started yet", err: apperrors.NewConflictError(apperrors.CodeTripNotStarted, "A trip can only be completed after it starts"), wantStatus: http.StatusConflict},
		{name: "already terminal", err: apperrors.NewConflictError(apperrors.CodeTripTerminal, "Trip is already completed"), wantStatus: http.StatusConflict},
		{name: "store unavailable", err: apperrors.Transient(errors.New("connection refused"), "complete trip"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTripService)
			if tt.err != nil {
				svc.On("CompleteTrip", mock.Anything, "trip-1", "owner-1").Return(nil, tt.err)
			} else {
				view := sampleTripView()
				view.Status = types.TripStatusCompleted
				svc.On("CompleteTrip", mock.Anything, "trip-1", "owner-1").Return(view, nil)
			}
			h := NewTripHandler(svc, new(MockLedger))

			r := newTestRouter("owner-1")
			r.POST("/v1/trips/:id/complete", h.CompleteTripHandler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/trips/trip-1/complete", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestAbandonTripHandler(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("Abandon", mock.Anything, "trip-1", "owner-1").
		Return(&types.AbandonResult{TripID: "trip-1", RemovedMembers: []string{"u1", "u2"}}, nil)
	h := NewTripHandler(new(MockTripService), ledger)

	r := newTestRouter("owner-1")
	r.DELETE("/v1/trips/:id", h.AbandonTripHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/trips/trip-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removedMembers":["u1","u2"]`)
	ledger.AssertExpectations(t)
}

func TestListMembersHandler(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("ListMembers", mock.Anything, "trip-1").
		Return([]types.Membership{{ID: "m1", TripID: "trip-1", UserID: "u1"}}, nil)
	h := NewTripHandler(new(MockTripService), ledger)

	r := newTestRouter("u1")
	r.GET("/v1/trips/:id/members", h.ListMembersHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/trips/trip-1/members", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"u1"`)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/NomadCrew/nomadnova-backend/middleware"
	notificationservice "github.com/NomadCrew/nomadnova-backend/models/notification/service"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockTripService struct {
	mock.Mock
}

func (m *MockTripService) CreateTrip(ctx context.Context, ownerID string, req types.TripCreate) (*types.TripView, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TripView), args.Error(1)
}

func (m *MockTripService) GetTrip(ctx context.Context, tripID string) (*types.TripView, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TripView), args.Error(1)
}

func (m *MockTripService) ListUserTrips(ctx context.Context, userID string) ([]types.TripView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.TripView), args.Error(1)
}

func (m *MockTripService) CompleteTrip(ctx context.Context, tripID, ownerID string) (*types.TripView, error) {
	args := m.Called(ctx, tripID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TripView), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Join(ctx context.Context, userID, tripID string) (*types.JoinResult, error) {
	args := m.Called(ctx, userID, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.JoinResult), args.Error(1)
}

func (m *MockLedger) Leave(ctx context.Context, userID, tripID string) (*types.LeaveResult, error) {
	args := m.Called(ctx, userID, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LeaveResult), args.Error(1)
}

func (m *MockLedger) Abandon(ctx context.Context, tripID, ownerID string) (*types.AbandonResult, error) {
	args := m.Called(ctx, tripID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AbandonResult), args.Error(1)
}

func (m *MockLedger) ListMembers(ctx context.Context, tripID string) ([]types.Membership, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Membership), args.Error(1)
}

type MockRewardsService struct {
	mock.Mock
}

func (m *MockRewardsService) GetEconomy(ctx context.Context, userID string) (*types.UserEconomy, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserEconomy), args.Error(1)
}

func (m *MockRewardsService) Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.LeaderboardEntry), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) List(ctx context.Context, userID string, filter types.NotificationFilter) (*notificationservice.NotificationPage, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notificationservice.NotificationPage), args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *MockNotificationService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// newTestRouter mirrors the production chain closely enough for handler
// tests: errors are rendered by ErrorHandler and userID stands in for auth.
func newTestRouter(userID string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(string(middleware.UserIDKey), userID)
		}
		c.Next()
	})
	return r
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) types.StandardResponse {
	t.Helper()
	var resp types.StandardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

package handlers

import (
	"context"

	notificationservice "github.com/NomadCrew/nomadnova-backend/models/notification/service"
	"github.com/NomadCrew/nomadnova-backend/types"
)

// TripServiceInterface defines the trip service methods needed by handlers
type TripServiceInterface interface {
	CreateTrip(ctx context.Context, ownerID string, req types.TripCreate) (*types.TripView, error)
	GetTrip(ctx context.Context, tripID string) (*types.TripView, error)
	ListUserTrips(ctx context.Context, userID string) ([]types.TripView, error)
	CompleteTrip(ctx context.Context, tripID, ownerID string) (*types.TripView, error)
}

// MembershipLedgerInterface covers join, leave and abandon.
type MembershipLedgerInterface interface {
	Join(ctx context.Context, userID, tripID string) (*types.JoinResult, error)
	Leave(ctx context.Context, userID, tripID string) (*types.LeaveResult, error)
	Abandon(ctx context.Context, tripID, ownerID string) (*types.AbandonResult, error)
	ListMembers(ctx context.Context, tripID string) ([]types.Membership, error)
}

type RewardsServiceInterface interface {
	GetEconomy(ctx context.Context, userID string) (*types.UserEconomy, error)
	Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error)
}

type NotificationServiceInterface interface {
	List(ctx context.Context, userID string, filter types.NotificationFilter) (*notificationservice.NotificationPage, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, notificationID string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

package store

import (
	"context"
	"time"

	"github.com/NomadCrew/nomadnova-backend/types"
)

// TripStore persists trips. Soft-deleted trips are invisible to every read.
type TripStore interface {
	CreateTrip(ctx context.Context, trip *types.Trip) error
	GetTrip(ctx context.Context, id string) (*types.Trip, error)
	// ListUserTrips returns live trips the user owns or has joined.
	ListUserTrips(ctx context.Context, userID string) ([]*types.Trip, error)
	// ListExpiredTrips returns up to limit open, not auto-completed trips whose
	// toDate is before now, oldest first.
	ListExpiredTrips(ctx context.Context, now time.Time, limit int) ([]*types.Trip, error)
	// CompleteTrip moves an open trip to completed in a single guarded update.
	// It returns ErrGuardFailed when the trip is no longer open.
	CompleteTrip(ctx context.Context, id string, now time.Time, auto bool) (*types.Trip, error)
	// CancelTrip cancels and soft-deletes an open trip owned by ownerID and
	// removes all of its memberships in the same transaction.
	CancelTrip(ctx context.Context, id, ownerID string, now time.Time) (*types.CancelledTrip, error)
}

// MembershipStore owns memberships and the participant counter on trips.
type MembershipStore interface {
	// AddMember creates the membership and increments currentParticipants as
	// one atomic unit. Fails with ErrNotFound, ErrAlreadyJoined, ErrTripFull or
	// ErrTripTerminal.
	AddMember(ctx context.Context, tripID, userID string, now time.Time) (*types.Membership, *types.Trip, error)
	// RemoveMember deletes the membership and decrements the counter. Fails
	// with ErrNotFound when there is no membership and ErrTripTerminal when the
	// trip no longer accepts changes.
	RemoveMember(ctx context.Context, tripID, userID string, now time.Time) (*types.Trip, error)
	GetMembership(ctx context.Context, tripID, userID string) (*types.Membership, error)
	ListMembers(ctx context.Context, tripID string) ([]types.Membership, error)
}

// EconomyUpdateFn mutates an economy in place inside UpdateEconomy.
type EconomyUpdateFn func(e *types.UserEconomy) error

// EconomyStore persists user economies.
type EconomyStore interface {
	// GetEconomy returns ErrNotFound for users never rewarded.
	GetEconomy(ctx context.Context, userID string) (*types.UserEconomy, error)
	// UpdateEconomy runs fn against the current economy of userID while
	// holding that record exclusively, creating it first if needed, and
	// persists the result. Achievements are append-only.
	UpdateEconomy(ctx context.Context, userID string, fn EconomyUpdateFn) (*types.UserEconomy, error)
	// Leaderboard orders by coins, then experience, descending.
	Leaderboard(ctx context.Context, limit int) ([]types.UserEconomy, error)
}

// NotificationStore persists notifications. Every mutation is scoped to the
// owning user.
type NotificationStore interface {
	Create(ctx context.Context, n *types.Notification) error
	ListByUser(ctx context.Context, userID string, filter types.NotificationFilter) ([]types.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// Store bundles every store behind one handle.
type Store interface {
	Trips() TripStore
	Memberships() MembershipStore
	Economies() EconomyStore
	Notifications() NotificationStore
	Ping(ctx context.Context) error
}

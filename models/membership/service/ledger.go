// Package service is the membership ledger: join, leave and abandon, with the
// capacity guard delegated to the store and rewards and notifications applied
// afterwards as best-effort side effects.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/internal/clock"
	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/logger"
	rewardsservice "github.com/NomadCrew/nomadnova-backend/models/rewards/service"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	operationJoin    = "join"
	operationLeave   = "leave"
	operationAbandon = "abandon"
)

type ledgerMetrics struct {
	operations *prometheus.CounterVec
}

var (
	metricsInstance *ledgerMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newLedgerMetrics() *ledgerMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &ledgerMetrics{
			operations: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "nomadnova_membership_operations_total",
				Help: "Join, leave and abandon operations by result",
			}, []string{"operation", "result"}),
		}
	})
	return metricsInstance
}

// Ledger owns memberships and the participant counter of every trip.
type Ledger struct {
	trips       store.TripStore
	memberships store.MembershipStore
	rewards     rewardsservice.Awarder
	notifier    rewardsservice.Notifier
	clock       clock.Clock
	log         *zap.SugaredLogger
	metrics     *ledgerMetrics
}

func NewLedger(
	trips store.TripStore,
	memberships store.MembershipStore,
	rewards rewardsservice.Awarder,
	notifier rewardsservice.Notifier,
	clk clock.Clock,
) *Ledger {
	return &Ledger{
		trips:       trips,
		memberships: memberships,
		rewards:     rewards,
		notifier:    notifier,
		clock:       clk,
		log:         logger.GetLogger().Named("ledger"),
		metrics:     newLedgerMetrics(),
	}
}

// Join adds userID to tripID. The checks below give callers a precise error;
// the store's guarded insert is what actually enforces capacity.
func (l *Ledger) Join(ctx context.Context, userID, tripID string) (result *types.JoinResult, err error) {
	defer func() { l.record(operationJoin, err) }()

	trip, err := l.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, mapStoreError(err, tripID, "load trip")
	}
	if trip.OwnerID == userID {
		return nil, apperrors.NewConflictError(apperrors.CodeSelfJoin, "You cannot join your own trip")
	}
	if _, err := l.memberships.GetMembership(ctx, tripID, userID); err == nil {
		return nil, conflict(store.ErrAlreadyJoined)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Transient(err, "load membership")
	}
	if trip.IsFull() {
		return nil, conflict(store.ErrTripFull)
	}
	if trip.Status.IsTerminal() {
		return nil, conflict(store.ErrTripTerminal)
	}

	membership, updated, err := l.memberships.AddMember(ctx, tripID, userID, l.clock.Now())
	if err != nil {
		return nil, mapStoreError(err, tripID, "add member")
	}

	l.log.Infow("User joined trip",
		"userID", userID,
		"tripID", tripID,
		"currentParticipants", updated.CurrentParticipants,
		"maxPeople", updated.MaxPeople)

	coins := l.award(ctx, userID, types.ActionJoin, updated)
	l.notify(ctx, types.NotificationRequest{
		UserID:      userID,
		Type:        types.NotificationTripJoined,
		Title:       "Trip joined",
		Message:     fmt.Sprintf("You joined %s to %s.", updated.Title, updated.Destination),
		TripID:      tripID,
		Destination: updated.Destination,
		Metadata:    map[string]interface{}{"coinsEarned": coins},
	})
	l.notify(ctx, types.NotificationRequest{
		UserID:      updated.OwnerID,
		Type:        types.NotificationParticipantJoined,
		Title:       "New participant",
		Message:     fmt.Sprintf("A traveler joined %s. %d of %d spots taken.", updated.Title, updated.CurrentParticipants, updated.MaxPeople),
		TripID:      tripID,
		Destination: updated.Destination,
		Metadata:    map[string]interface{}{"participantId": userID},
	})

	return &types.JoinResult{Membership: *membership, Trip: *updated}, nil
}

// Leave removes userID from tripID and applies the leave penalty.
func (l *Ledger) Leave(ctx context.Context, userID, tripID string) (result *types.LeaveResult, err error) {
	defer func() { l.record(operationLeave, err) }()

	updated, err := l.memberships.RemoveMember(ctx, tripID, userID, l.clock.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeMembershipNotFound, "Membership", tripID)
		}
		return nil, mapStoreError(err, tripID, "remove member")
	}

	l.log.Infow("User left trip",
		"userID", userID,
		"tripID", tripID,
		"currentParticipants", updated.CurrentParticipants)

	coins := l.award(ctx, userID, types.ActionLeave, updated)
	l.notify(ctx, types.NotificationRequest{
		UserID:      userID,
		Type:        types.NotificationTripLeft,
		Title:       "Trip left",
		Message:     fmt.Sprintf("You left %s.", updated.Title),
		TripID:      tripID,
		Destination: updated.Destination,
		Metadata:    map[string]interface{}{"coinsLost": -coins},
	})

	return &types.LeaveResult{TripID: tripID, CurrentParticipants: updated.CurrentParticipants}, nil
}

// Abandon cancels an open trip owned by ownerID and removes every member.
// The trip stays in storage as cancelled but is no longer readable.
func (l *Ledger) Abandon(ctx context.Context, tripID, ownerID string) (result *types.AbandonResult, err error) {
	defer func() { l.record(operationAbandon, err) }()

	cancelled, err := l.trips.CancelTrip(ctx, tripID, ownerID, l.clock.Now())
	if err != nil {
		return nil, mapStoreError(err, tripID, "cancel trip")
	}

	trip := &cancelled.Trip
	removed := make([]string, 0, len(cancelled.Memberships))
	for _, m := range cancelled.Memberships {
		removed = append(removed, m.UserID)
	}

	l.log.Infow("Trip abandoned",
		"tripID", tripID,
		"ownerID", ownerID,
		"removedMembers", len(removed))

	l.award(ctx, ownerID, types.ActionAbandon, trip)
	l.notify(ctx, types.NotificationRequest{
		UserID:      ownerID,
		Type:        types.NotificationTripAbandoned,
		Title:       "Trip abandoned",
		Message:     fmt.Sprintf("You abandoned %s.", trip.Title),
		TripID:      tripID,
		Destination: trip.Destination,
		Metadata:    map[string]interface{}{"removedMembers": len(removed)},
	})
	for _, memberID := range removed {
		l.award(ctx, memberID, types.ActionAbandonParticipant, trip)
		l.notify(ctx, types.NotificationRequest{
			UserID:      memberID,
			Type:        types.NotificationTripAbandoned,
			Title:       "Trip cancelled",
			Message:     fmt.Sprintf("%s was abandoned by its organizer.", trip.Title),
			TripID:      tripID,
			Destination: trip.Destination,
		})
	}

	return &types.AbandonResult{TripID: tripID, RemovedMembers: removed}, nil
}

// ListMembers returns the current members of a live trip.
func (l *Ledger) ListMembers(ctx context.Context, tripID string) ([]types.Membership, error) {
	if _, err := l.trips.GetTrip(ctx, tripID); err != nil {
		return nil, mapStoreError(err, tripID, "load trip")
	}
	members, err := l.memberships.ListMembers(ctx, tripID)
	if err != nil {
		return nil, apperrors.Transient(err, "list members")
	}
	return members, nil
}

// award returns the applied coin delta, or zero when the reward failed.
func (l *Ledger) award(ctx context.Context, userID string, action types.RewardAction, trip *types.Trip) int {
	outcome, err := l.rewards.Award(ctx, userID, action, trip.Destination)
	if err != nil {
		l.log.Errorw("Failed to apply reward",
			"userID", userID,
			"tripID", trip.ID,
			"action", action,
			"error", err)
		return 0
	}
	return outcome.CoinDelta
}

func (l *Ledger) notify(ctx context.Context, req types.NotificationRequest) {
	if _, err := l.notifier.Notify(ctx, req); err != nil {
		l.log.Errorw("Failed to send notification",
			"userID", req.UserID,
			"tripID", req.TripID,
			"type", req.Type,
			"error", err)
	}
}

func (l *Ledger) record(operation string, err error) {
	l.metrics.operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if appErr, ok := apperrors.As(err); ok && appErr.Code != "" {
		return appErr.Code
	}
	return "error"
}

func conflict(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, store.ErrAlreadyJoined):
		return apperrors.NewConflictError(apperrors.CodeAlreadyJoined, "You have already joined this trip")
	case errors.Is(err, store.ErrTripFull):
		return apperrors.NewConflictError(apperrors.CodeTripFull, "This trip is full")
	default:
		return apperrors.NewConflictError(apperrors.CodeTripTerminal, "This trip no longer accepts changes")
	}
}

// mapStoreError translates store sentinels. A failed guard means the row moved
// under us, so the caller is told to retry.
func mapStoreError(err error, tripID, operation string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound(apperrors.CodeTripNotFound, "Trip", tripID)
	case errors.Is(err, store.ErrForbidden):
		return apperrors.Forbidden(apperrors.CodeNotTripOwner, "Only the trip owner can do this")
	case errors.Is(err, store.ErrAlreadyJoined), errors.Is(err, store.ErrTripFull), errors.Is(err, store.ErrTripTerminal):
		return conflict(err)
	default:
		return apperrors.Transient(err, operation)
	}
}

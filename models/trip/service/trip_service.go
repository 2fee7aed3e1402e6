// Package service owns trip creation, reads and the completed/cancelled side
// of the lifecycle, including the background completion sweep.
package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/internal/clock"
	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/logger"
	rewardsservice "github.com/NomadCrew/nomadnova-backend/models/rewards/service"
	"github.com/NomadCrew/nomadnova-backend/models/trip/validation"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TripService handles core trip operations.
type TripService struct {
	trips    store.TripStore
	rewards  rewardsservice.Awarder
	notifier rewardsservice.Notifier
	finisher *completionFinisher
	clock    clock.Clock
	log      *zap.SugaredLogger
}

func NewTripService(
	trips store.TripStore,
	memberships store.MembershipStore,
	rewards rewardsservice.Awarder,
	notifier rewardsservice.Notifier,
	clk clock.Clock,
) *TripService {
	log := logger.GetLogger().Named("trips")
	return &TripService{
		trips:    trips,
		rewards:  rewards,
		notifier: notifier,
		finisher: newCompletionFinisher(memberships, rewards, notifier, log),
		clock:    clk,
		log:      log,
	}
}

// CreateTrip persists a new upcoming trip and rewards its owner for hosting.
func (s *TripService) CreateTrip(ctx context.Context, ownerID string, req types.TripCreate) (*types.TripView, error) {
	now := s.clock.Now()
	if err := validation.ValidateNewTrip(&req, now); err != nil {
		return nil, err
	}

	trip := &types.Trip{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Destination: req.Destination,
		FromDate:    req.FromDate.UTC(),
		ToDate:      req.ToDate.UTC(),
		MaxPeople:   req.MaxPeople,
		Status:      types.TripStatusUpcoming,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.trips.CreateTrip(ctx, trip); err != nil {
		return nil, apperrors.Transient(err, "create trip")
	}

	s.log.Infow("Trip created",
		"tripID", trip.ID,
		"ownerID", ownerID,
		"destination", trip.Destination,
		"maxPeople", trip.MaxPeople)

	coins := 0
	if outcome, err := s.rewards.Award(ctx, ownerID, types.ActionHost, trip.Destination); err != nil {
		s.log.Errorw("Failed to apply host reward", "tripID", trip.ID, "ownerID", ownerID, "error", err)
	} else {
		coins = outcome.CoinDelta
	}
	if _, err := s.notifier.Notify(ctx, types.NotificationRequest{
		UserID:      ownerID,
		Type:        types.NotificationTripCreated,
		Title:       "Trip created",
		Message:     fmt.Sprintf("%s to %s is live.", trip.Title, trip.Destination),
		TripID:      trip.ID,
		Destination: trip.Destination,
		Metadata:    map[string]interface{}{"coinsEarned": coins},
	}); err != nil {
		s.log.Errorw("Failed to send trip created notification", "tripID", trip.ID, "error", err)
	}

	view := types.NewTripView(trip, now)
	return &view, nil
}

func (s *TripService) GetTrip(ctx context.Context, tripID string) (*types.TripView, error) {
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	view := types.NewTripView(trip, s.clock.Now())
	return &view, nil
}

// ListUserTrips returns trips the user owns or has joined.
func (s *TripService) ListUserTrips(ctx context.Context, userID string) ([]types.TripView, error) {
	trips, err := s.trips.ListUserTrips(ctx, userID)
	if err != nil {
		return nil, apperrors.Transient(err, "list trips")
	}
	now := s.clock.Now()
	views := make([]types.TripView, 0, len(trips))
	for _, t := range trips {
		views = append(views, types.NewTripView(t, now))
	}
	return views, nil
}

// CompleteTrip lets the owner close a trip once it has started. Rewards match
// the sweep but the trip is not flagged as auto-completed.
func (s *TripService) CompleteTrip(ctx context.Context, tripID, ownerID string) (*types.TripView, error) {
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.OwnerID != ownerID {
		return nil, apperrors.Forbidden(apperrors.CodeNotTripOwner, "Only the trip owner can complete it")
	}
	if err := validation.ValidateStatusTransition(trip, types.TripStatusCompleted); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if now.Before(trip.FromDate) {
		return nil, apperrors.NewConflictError(apperrors.CodeTripNotStarted, "A trip can only be completed after it starts")
	}
	completed, err := s.trips.CompleteTrip(ctx, tripID, now, false)
	if err != nil {
		if errors.Is(err, store.ErrGuardFailed) {
			return nil, apperrors.NewConflictError(apperrors.CodeTripTerminal, "This trip no longer accepts changes")
		}
		return nil, apperrors.Transient(err, "complete trip")
	}

	s.log.Infow("Trip completed by owner", "tripID", tripID, "ownerID", ownerID)
	if failed := s.finisher.finish(ctx, completed); failed > 0 {
		s.log.Warnw("Trip completed with failed side effects", "tripID", tripID, "failed", failed)
	}

	view := types.NewTripView(completed, now)
	return &view, nil
}

func (s *TripService) loadTrip(ctx context.Context, tripID string) (*types.Trip, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeTripNotFound, "Trip", tripID)
		}
		return nil, apperrors.Transient(err, "load trip")
	}
	return trip, nil
}

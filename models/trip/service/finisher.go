package service

import (
	"context"
	"fmt"

	"github.com/NomadCrew/nomadnova-backend/internal/store"
	rewardsservice "github.com/NomadCrew/nomadnova-backend/models/rewards/service"
	"github.com/NomadCrew/nomadnova-backend/types"
	"go.uber.org/zap"
)

// completionFinisher hands out completion rewards and notifications for a trip
// that has just been moved to completed. Memberships are frozen at that point,
// so listing them after the transition is stable.
type completionFinisher struct {
	memberships store.MembershipStore
	rewards     rewardsservice.Awarder
	notifier    rewardsservice.Notifier
	log         *zap.SugaredLogger
}

func newCompletionFinisher(
	memberships store.MembershipStore,
	rewards rewardsservice.Awarder,
	notifier rewardsservice.Notifier,
	log *zap.SugaredLogger,
) *completionFinisher {
	return &completionFinisher{memberships: memberships, rewards: rewards, notifier: notifier, log: log}
}

// finish returns the number of side effects that failed. Failures are logged
// and never undo the completion.
func (f *completionFinisher) finish(ctx context.Context, trip *types.Trip) int {
	failed := 0
	members, err := f.memberships.ListMembers(ctx, trip.ID)
	if err != nil {
		f.log.Errorw("Failed to list members of completed trip", "tripID", trip.ID, "error", err)
		failed++
	}

	if !f.reward(ctx, trip, trip.OwnerID, types.ActionCompleteOrganizer,
		fmt.Sprintf("%s is complete. Thanks for organizing!", trip.Title)) {
		failed++
	}
	for _, m := range members {
		if !f.reward(ctx, trip, m.UserID, types.ActionCompleteParticipant,
			fmt.Sprintf("%s is complete. Hope you had a great time!", trip.Title)) {
			failed++
		}
	}
	return failed
}

func (f *completionFinisher) reward(ctx context.Context, trip *types.Trip, userID string, action types.RewardAction, message string) bool {
	ok := true
	coins := 0
	if outcome, err := f.rewards.Award(ctx, userID, action, trip.Destination); err != nil {
		f.log.Errorw("Failed to apply completion reward",
			"tripID", trip.ID,
			"userID", userID,
			"action", action,
			"error", err)
		ok = false
	} else {
		coins = outcome.CoinDelta
	}

	if _, err := f.notifier.Notify(ctx, types.NotificationRequest{
		UserID:      userID,
		Type:        types.NotificationTripCompleted,
		Title:       "Trip completed",
		Message:     message,
		TripID:      trip.ID,
		Destination: trip.Destination,
		Metadata: map[string]interface{}{
			"coinsEarned":   coins,
			"autoCompleted": trip.AutoCompleted,
		},
	}); err != nil {
		f.log.Errorw("Failed to send completion notification",
			"tripID", trip.ID,
			"userID", userID,
			"error", err)
		ok = false
	}
	return ok
}

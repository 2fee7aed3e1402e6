// Package service applies reward actions to stored economies and fans the
// result out to the leaderboard channel and the achievement inbox.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NomadCrew/nomadnova-backend/config"
	apperrors "github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/internal/clock"
	"github.com/NomadCrew/nomadnova-backend/internal/events"
	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/models/rewards"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// Notifier persists and pushes a notification.
type Notifier interface {
	Notify(ctx context.Context, req types.NotificationRequest) (*types.Notification, error)
}

// Awarder is the part of RewardsService the membership and trip services use.
type Awarder interface {
	Award(ctx context.Context, userID string, action types.RewardAction, destination string) (*types.RewardOutcome, error)
}

type rewardsMetrics struct {
	applied  *prometheus.CounterVec
	unlocked *prometheus.CounterVec
}

var (
	metricsInstance *rewardsMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newRewardsMetrics() *rewardsMetrics {
	metricsOnce.Do(func() {
		factory := promauto.With(defaultRegistry)
		metricsInstance = &rewardsMetrics{
			applied: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "nomadnova_rewards_applied_total",
				Help: "Reward actions applied to user economies",
			}, []string{"action"}),
			unlocked: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "nomadnova_achievements_unlocked_total",
				Help: "Achievements granted by type",
			}, []string{"type"}),
		}
	})
	return metricsInstance
}

// RewardsService owns every write to user economies.
type RewardsService struct {
	store              store.EconomyStore
	publisher          types.EventPublisher
	notifier           Notifier
	clock              clock.Clock
	publishLeaderboard bool
	log                *zap.SugaredLogger
	metrics            *rewardsMetrics
}

var _ Awarder = (*RewardsService)(nil)

func NewRewardsService(
	economyStore store.EconomyStore,
	publisher types.EventPublisher,
	notifier Notifier,
	clk clock.Clock,
	cfg config.RewardsConfig,
) *RewardsService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &RewardsService{
		store:              economyStore,
		publisher:          publisher,
		notifier:           notifier,
		clock:              clk,
		publishLeaderboard: cfg.PublishLeaderboard,
		log:                logger.GetLogger().Named("rewards"),
		metrics:            newRewardsMetrics(),
	}
}

// Award applies action to userID's economy under the store's per-user lock.
// The leaderboard event and achievement notifications are best effort.
func (s *RewardsService) Award(ctx context.Context, userID string, action types.RewardAction, destination string) (*types.RewardOutcome, error) {
	if !action.IsValid() {
		return nil, apperrors.ValidationFailed("invalid reward action", string(action))
	}

	now := s.clock.Now()
	var (
		fired     []types.Achievement
		coinDelta int
	)
	updated, err := s.store.UpdateEconomy(ctx, userID, func(e *types.UserEconomy) error {
		next, achievements, err := rewards.ApplyDelta(*e, action, destination, now)
		if err != nil {
			return err
		}
		coinDelta = next.Coins - e.Coins
		fired = achievements
		*e = next
		return nil
	})
	if err != nil {
		return nil, apperrors.Transient(err, fmt.Sprintf("award %s", action))
	}

	s.metrics.applied.WithLabelValues(string(action)).Inc()
	for _, a := range fired {
		s.metrics.unlocked.WithLabelValues(string(a.Type)).Inc()
	}

	outcome := &types.RewardOutcome{
		UserID:       userID,
		Action:       action,
		CoinDelta:    coinDelta,
		Economy:      *updated,
		Achievements: fired,
	}
	s.log.Debugw("Reward applied",
		"userID", userID,
		"action", action,
		"coinDelta", coinDelta,
		"coins", updated.Coins,
		"achievements", len(fired))

	s.publishLeaderboardUpdate(ctx, outcome)
	s.notifyAchievements(ctx, userID, fired)
	return outcome, nil
}

func (s *RewardsService) publishLeaderboardUpdate(ctx context.Context, outcome *types.RewardOutcome) {
	if !s.publishLeaderboard {
		return
	}
	e := outcome.Economy
	update := types.LeaderboardUpdate{
		UserID:       outcome.UserID,
		Action:       outcome.Action,
		CoinDelta:    outcome.CoinDelta,
		Coins:        e.Coins,
		Experience:   e.Experience,
		Level:        e.Level,
		Title:        e.Title,
		TotalTrips:   e.TotalTrips,
		Countries:    e.CountriesCount(),
		Achievements: outcome.Achievements,
	}
	if err := events.PublishEventWithContext(ctx, s.publisher, types.EventLeaderboardUpdate, outcome.UserID, "rewards", update); err != nil {
		s.log.Warnw("Failed to publish leaderboard update",
			"userID", outcome.UserID,
			"action", outcome.Action,
			"error", err)
	}
}

func (s *RewardsService) notifyAchievements(ctx context.Context, userID string, fired []types.Achievement) {
	if s.notifier == nil {
		return
	}
	for _, a := range fired {
		_, err := s.notifier.Notify(ctx, types.NotificationRequest{
			UserID:  userID,
			Type:    types.NotificationAchievementUnlocked,
			Title:   fmt.Sprintf("Achievement unlocked: %s", a.Title),
			Message: fmt.Sprintf("You earned %d bonus coins.", a.Bonus),
			Metadata: map[string]interface{}{
				"achievement": a.Type,
				"bonus":       a.Bonus,
			},
		})
		if err != nil {
			s.log.Warnw("Failed to send achievement notification",
				"userID", userID,
				"achievement", a.Type,
				"error", err)
		}
	}
}

// GetEconomy returns the stored economy or a fresh one for unseen users.
func (s *RewardsService) GetEconomy(ctx context.Context, userID string) (*types.UserEconomy, error) {
	e, err := s.store.GetEconomy(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fresh := rewards.NewEconomy(userID)
			return &fresh, nil
		}
		return nil, apperrors.Transient(err, "get economy")
	}
	return e, nil
}

// Leaderboard ranks users by coins, then experience. limit is clamped to
// [1, MaxLeaderboardLimit]; zero selects the default.
func (s *RewardsService) Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		limit = MaxLeaderboardLimit
	}

	board, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, apperrors.Transient(err, "leaderboard")
	}

	entries := make([]types.LeaderboardEntry, 0, len(board))
	for i, e := range board {
		entries = append(entries, types.LeaderboardEntry{
			Rank:       i + 1,
			UserID:     e.UserID,
			Coins:      e.Coins,
			Experience: e.Experience,
			Level:      e.Level,
			Title:      e.Title,
			TotalTrips: e.TotalTrips,
		})
	}
	return entries, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/NomadCrew/nomadnova-backend/config"
	apperrors "github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/internal/clock"
	"github.com/NomadCrew/nomadnova-backend/internal/store/memory"
	notificationservice "github.com/NomadCrew/nomadnova-backend/models/notification/service"
	rewardsservice "github.com/NomadCrew/nomadnova-backend/models/rewards/service"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	ledger   *Ledger
	rewards  *rewardsservice.RewardsService
	notifier *notificationservice.NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.NewStore()
	clk := clock.NewFake(testNow)
	notifier := notificationservice.NewNotificationService(st.Notifications(), nil, clk)
	rewards := rewardsservice.NewRewardsService(st.Economies(), nil, notifier, clk, config.RewardsConfig{})
	return &fixture{
		store:    st,
		ledger:   NewLedger(st.Trips(), st.Memberships(), rewards, notifier, clk),
		rewards:  rewards,
		notifier: notifier,
	}
}

func (f *fixture) seedTrip(t *testing.T, id, owner string, maxPeople int, status types.TripStatus) {
	t.Helper()
	require.NoError(t, f.store.Trips().CreateTrip(context.Background(), &types.Trip{
		ID:          id,
		OwnerID:     owner,
		Title:       "Spring in Paris",
		Destination: "Paris, France",
		FromDate:    testNow.Add(72 * time.Hour),
		ToDate:      testNow.Add(120 * time.Hour),
		MaxPeople:   maxPeople,
		Status:      status,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}))
}

func (f *fixture) notificationsOf(t *testing.T, userID string, kind types.NotificationType) int {
	t.Helper()
	page, err := f.notifier.List(context.Background(), userID, types.NotificationFilter{Limit: 100})
	require.NoError(t, err)
	count := 0
	for _, n := range page.Notifications {
		if n.Type == kind {
			count++
		}
	}
	return count
}

func TestJoin_FirstTripToNewCountry(t *testing.T) {
	f := newFixture(t)
	f.seedTrip(t, "trip-1", "owner", 4, types.TripStatusUpcoming)

	result, err := f.ledger.Join(context.Background(), "alice", "trip-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Membership.UserID)
	assert.Equal(t, 1, result.Trip.CurrentParticipants)

	economy, err := f.rewards.GetEconomy(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 18, economy.Coins)
	assert.Equal(t, 1, economy.TripsJoined)
	assert.Equal(t, 1, economy.TotalTrips)
	assert.Equal(t, []string{"France"}, economy.Countries)
	assert.True(t, economy.HasAchievement(types.AchievementFirstTrip))

	assert.Equal(t, 1, f.notificationsOf(t, "alice", types.NotificationTripJoined))
	assert.Equal(t, 1, f.notificationsOf(t, "alice", types.NotificationAchievementUnlocked))
	assert.Equal(t, 1, f.notificationsOf(t, "owner", types.NotificationParticipantJoined))
}

func TestJoin_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTrip(t, "full", "owner", 1, types.TripStatusUpcoming)
	f.seedTrip(t, "done", "owner", 5, types.TripStatusCompleted)
	f.seedTrip(t, "open", "owner", 5, types.TripStatusUpcoming)

	_, err := f.ledger.Join(ctx, "bob", "full")
	require.NoError(t, err)
	_, err = f.ledger.Join(ctx, "carol", "open")
	require.NoError(t, err)

	tests := []struct {
		name   string
		userID string
		tripID string
		code   string
	}{
		{"missing trip", "dave", "nope", apperrors.CodeTripNotFound},
		{"owner joins own trip", "owner", "open", apperrors.CodeSelfJoin},
		{"already joined", "carol", "open", apperrors.CodeAlreadyJoined},
		{"no slots left", "dave", "full", apperrors.CodeTripFull},
		{"completed trip", "dave", "done", apperrors.CodeTripTerminal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Join(ctx, tt.userID, tt.tripID)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	trip, err := f.store.Trips().GetTrip(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, 1, trip.CurrentParticipants)
}

func TestJoin_ConcurrentLastSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const capacity, joiners = 4, 30
	f.seedTrip(t, "trip-1", "owner", capacity, types.TripStatusUpcoming)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		full      int
	)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.ledger.Join(ctx, fmt.Sprintf("user-%d", i), "trip-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperrors.HasCode(err, apperrors.CodeTripFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, successes)
	assert.Equal(t, joiners-capacity, full)

	trip, err := f.store.Trips().GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	members, err := f.ledger.ListMembers(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, capacity, trip.CurrentParticipants)
	assert.Len(t, members, trip.CurrentParticipants)
}

func TestLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTrip(t, "trip-1", "owner", 3, types.TripStatusUpcoming)

	_, err := f.ledger.Leave(ctx, "alice", "trip-1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeMembershipNotFound))

	_, err = f.ledger.Join(ctx, "alice", "trip-1")
	require.NoError(t, err)

	result, err := f.ledger.Leave(ctx, "alice", "trip-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.CurrentParticipants)

	economy, err := f.rewards.GetEconomy(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 13, economy.Coins)
	assert.Equal(t, 0, economy.TripsJoined)
	assert.Equal(t, 1, f.notificationsOf(t, "alice", types.NotificationTripLeft))

	_, err = f.ledger.Leave(ctx, "alice", "trip-1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeMembershipNotFound))
}

func TestLeave_PenaltyFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTrip(t, "trip-1", "owner", 3, types.TripStatusUpcoming)
	_, _, err := f.store.Memberships().AddMember(ctx, "trip-1", "ghost", testNow)
	require.NoError(t, err)

	_, err = f.ledger.Leave(ctx, "ghost", "trip-1")
	require.NoError(t, err)

	economy, err := f.rewards.GetEconomy(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, economy.Coins)
	assert.Equal(t, 0, economy.Experience)
}

func TestAbandon_TwoMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTrip(t, "trip-1", "owner", 3, types.TripStatusUpcoming)
	for _, u := range []string{"alice", "bob"} {
		_, err := f.ledger.Join(ctx, u, "trip-1")
		require.NoError(t, err)
	}

	_, err := f.ledger.Abandon(ctx, "trip-1", "alice")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotTripOwner))

	result, err := f.ledger.Abandon(ctx, "trip-1", "owner")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, result.RemovedMembers)

	_, err = f.store.Trips().GetTrip(ctx, "trip-1")
	assert.Error(t, err)
	members, err := f.store.Memberships().ListMembers(ctx, "trip-1")
	require.NoError(t, err)
	assert.Empty(t, members)

	owner, err := f.rewards.GetEconomy(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 0, owner.Coins)
	for _, u := range []string{"alice", "bob"} {
		e, err := f.rewards.GetEconomy(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, 13, e.Coins, u)
		assert.Equal(t, 0, e.TripsJoined, u)
	}

	sent := 0
	for _, u := range []string{"owner", "alice", "bob"} {
		sent += f.notificationsOf(t, u, types.NotificationTripAbandoned)
	}
	assert.Equal(t, 3, sent)

	_, err = f.ledger.Abandon(ctx, "trip-1", "owner")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTripNotFound))
}

func TestLeaveAndAbandon_CompletedTripIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTrip(t, "trip-1", "owner", 3, types.TripStatusUpcoming)
	_, err := f.ledger.Join(ctx, "alice", "trip-1")
	require.NoError(t, err)

	_, err = f.store.Trips().CompleteTrip(ctx, "trip-1", testNow.Add(121*time.Hour), true)
	require.NoError(t, err)

	before := map[string]int{}
	for _, u := range []string{"owner", "alice"} {
		e, err := f.rewards.GetEconomy(ctx, u)
		require.NoError(t, err)
		before[u] = e.Coins
	}

	_, err = f.ledger.Leave(ctx, "alice", "trip-1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTripTerminal), "leave: %v", err)

	_, err = f.ledger.Abandon(ctx, "trip-1", "owner")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTripTerminal), "abandon: %v", err)

	_, err = f.store.Memberships().GetMembership(ctx, "trip-1", "alice")
	assert.NoError(t, err)
	trip, err := f.store.Trips().GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, types.TripStatusCompleted, trip.Status)
	assert.Equal(t, 1, trip.CurrentParticipants)

	for u, coins := range before {
		e, err := f.rewards.GetEconomy(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, coins, e.Coins, u)
	}
	assert.Equal(t, 0, f.notificationsOf(t, "alice", types.NotificationTripLeft))
	assert.Equal(t, 0, f.notificationsOf(t, "owner", types.NotificationTripAbandoned))
}

type failingAwarder struct{}

func (failingAwarder) Award(context.Context, string, types.RewardAction, string) (*types.RewardOutcome, error) {
	return nil, errors.New("economy store down")
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, types.NotificationRequest) (*types.Notification, error) {
	return nil, errors.New("notification store down")
}

func TestJoin_SideEffectFailuresKeepMembership(t *testing.T) {
	st := memory.NewStore()
	ledger := NewLedger(st.Trips(), st.Memberships(), failingAwarder{}, failingNotifier{}, clock.NewFake(testNow))
	f := &fixture{store: st, ledger: ledger}
	f.seedTrip(t, "trip-1", "owner", 2, types.TripStatusUpcoming)

	result, err := ledger.Join(context.Background(), "alice", "trip-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Trip.CurrentParticipants)

	_, err = st.Memberships().GetMembership(context.Background(), "trip-1", "alice")
	assert.NoError(t, err)
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "success", resultLabel(nil))
	assert.Equal(t, apperrors.CodeTripTerminal, resultLabel(conflict(errors.New("x"))))
	assert.Equal(t, "error", resultLabel(errors.New("boom")))
}

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTripStatus_IsValidTransition(t *testing.T) {
	tests := []struct {
		from, to TripStatus
		want     bool
	}{
		{TripStatusUpcoming, TripStatusOngoing, true},
		{TripStatusUpcoming, TripStatusCompleted, true},
		{TripStatusUpcoming, TripStatusCancelled, true},
		{TripStatusOngoing, TripStatusCompleted, true},
		{TripStatusOngoing, TripStatusCancelled, true},
		{TripStatusOngoing, TripStatusUpcoming, false},
		{TripStatusCompleted, TripStatusCancelled, false},
		{TripStatusCancelled, TripStatusUpcoming, false},
		{TripStatus("bogus"), TripStatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.IsValidTransition(tt.to))
		})
	}
}

func TestTripStatus_IsTerminal(t *testing.T) {
	assert.False(t, TripStatusUpcoming.IsTerminal())
	assert.False(t, TripStatusOngoing.IsTerminal())
	assert.True(t, TripStatusCompleted.IsTerminal())
	assert.True(t, TripStatusCancelled.IsTerminal())
}

func TestTrip_DerivedStatus(t *testing.T) {
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	trip := &Trip{FromDate: from, ToDate: from.AddDate(0, 0, 7), Status: TripStatusUpcoming}

	assert.Equal(t, TripStatusUpcoming, trip.DerivedStatus(from.Add(-time.Hour)))
	assert.Equal(t, TripStatusOngoing, trip.DerivedStatus(from.AddDate(0, 0, 3)))
	// Past its end but not yet swept: still reads as upcoming until the sweep completes it.
	assert.Equal(t, TripStatusUpcoming, trip.DerivedStatus(from.AddDate(0, 0, 8)))

	trip.Status = TripStatusCompleted
	assert.Equal(t, TripStatusCompleted, trip.DerivedStatus(from.AddDate(0, 0, 3)))
}

func TestTrip_CapacityAndExpiry(t *testing.T) {
	now := time.Now()
	trip := &Trip{MaxPeople: 2, CurrentParticipants: 1, ToDate: now.Add(-time.Minute)}
	assert.False(t, trip.IsFull())
	trip.CurrentParticipants = 2
	assert.True(t, trip.IsFull())
	assert.True(t, trip.IsExpired(now))
}

func TestUserEconomy_Clone(t *testing.T) {
	e := UserEconomy{Countries: []string{"France"}, Achievements: []Achievement{{Type: AchievementFirstTrip}}}
	c := e.Clone()
	c.Countries[0] = "Spain"
	c.Achievements = append(c.Achievements, Achievement{Type: AchievementHostMaster})

	assert.Equal(t, "France", e.Countries[0])
	assert.Len(t, e.Achievements, 1)
	assert.True(t, e.HasCountry("France"))
	assert.True(t, e.HasAchievement(AchievementFirstTrip))
	assert.False(t, e.HasAchievement(AchievementHostMaster))
}

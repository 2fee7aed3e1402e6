// Package rewards holds the pure economy rules: coin/experience deltas per
// action, the new-country bonus, achievements, level and title.
package rewards

import (
	"fmt"
	"strings"
	"time"

	"github.com/NomadCrew/nomadnova-backend/types"
)

const (
	CountryBonus  = 3
	CoinsPerLevel = 50
	DefaultTitle  = "New Traveler"
	StartingLevel = 1
)

type delta struct {
	coins   int
	hosted  int
	joined  int
	country bool
}

var actionDeltas = map[types.RewardAction]delta{
	types.ActionHost:                {coins: 5, hosted: 1, country: true},
	types.ActionJoin:                {coins: 5, joined: 1, country: true},
	types.ActionLeave:               {coins: -5, joined: -1},
	types.ActionAbandon:             {coins: -5, hosted: -1},
	types.ActionAbandonParticipant:  {coins: -5, joined: -1},
	types.ActionCompleteOrganizer:   {coins: 10},
	types.ActionCompleteParticipant: {coins: 5},
}

// CoinDelta returns the base coin change of action, before bonuses.
func CoinDelta(action types.RewardAction) int {
	return actionDeltas[action].coins
}

// ApplyDelta applies action to a copy of economy and returns it together with
// any achievements unlocked by the change. The input is never mutated.
// Coins, experience and trip counters are clamped at zero. Level, title and
// totalTrips are recomputed from the final values.
func ApplyDelta(economy types.UserEconomy, action types.RewardAction, destination string, at time.Time) (types.UserEconomy, []types.Achievement, error) {
	d, ok := actionDeltas[action]
	if !ok {
		return economy, nil, fmt.Errorf("unknown reward action %q", action)
	}

	next := economy.Clone()
	addPoints(&next, d.coins)
	next.TripsHosted = clamp(next.TripsHosted + d.hosted)
	next.TripsJoined = clamp(next.TripsJoined + d.joined)
	next.TotalTrips = next.TripsHosted + next.TripsJoined

	if d.country {
		if country := ExtractCountry(destination); country != "" && !next.HasCountry(country) {
			next.Countries = append(next.Countries, country)
			addPoints(&next, CountryBonus)
		}
	}

	fired := evaluateAchievements(&next, at)

	next.Level = LevelFor(next.Coins)
	next.Title = TitleFor(next.TotalTrips)
	next.UpdatedAt = at
	return next, fired, nil
}

// NewEconomy is the starting state of a user never rewarded before.
func NewEconomy(userID string) types.UserEconomy {
	return types.UserEconomy{
		UserID:       userID,
		Level:        StartingLevel,
		Title:        DefaultTitle,
		Countries:    []string{},
		Achievements: []types.Achievement{},
	}
}

// ExtractCountry returns the text after the last comma of a free-text
// destination, trimmed. Without a comma the whole destination is used.
func ExtractCountry(destination string) string {
	if i := strings.LastIndex(destination, ","); i >= 0 {
		return strings.TrimSpace(destination[i+1:])
	}
	return strings.TrimSpace(destination)
}

// LevelFor is floor(coins/50)+1.
func LevelFor(coins int) int {
	return clamp(coins)/CoinsPerLevel + 1
}

func addPoints(e *types.UserEconomy, n int) {
	e.Coins = clamp(e.Coins + n)
	e.Experience = clamp(e.Experience + n)
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

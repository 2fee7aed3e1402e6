package rewards

import (
	"time"

	"github.com/NomadCrew/nomadnova-backend/types"
)

type achievementRule struct {
	kind  types.AchievementType
	title string
	bonus int
	met   func(e *types.UserEconomy) bool
}

// coin_collector is evaluated last so earlier bonuses count towards it.
var achievementRules = []achievementRule{
	{types.AchievementFirstTrip, "First Trip", 10, func(e *types.UserEconomy) bool { return e.TotalTrips == 1 }},
	{types.AchievementSocialButterfly, "Social Butterfly", 25, func(e *types.UserEconomy) bool { return e.TripsJoined >= 5 }},
	{types.AchievementHostMaster, "Host Master", 30, func(e *types.UserEconomy) bool { return e.TripsHosted >= 3 }},
	{types.AchievementCoinCollector, "Coin Collector", 50, func(e *types.UserEconomy) bool { return e.Coins >= 100 }},
}

// evaluateAchievements grants every rule that is met and not yet held,
// paying its bonus into e.
func evaluateAchievements(e *types.UserEconomy, at time.Time) []types.Achievement {
	var fired []types.Achievement
	for _, rule := range achievementRules {
		if e.HasAchievement(rule.kind) || !rule.met(e) {
			continue
		}
		a := types.Achievement{Type: rule.kind, Title: rule.title, Bonus: rule.bonus, UnlockedAt: at}
		e.Achievements = append(e.Achievements, a)
		addPoints(e, rule.bonus)
		fired = append(fired, a)
	}
	return fired
}

// AchievementTitle returns the display name of t.
func AchievementTitle(t types.AchievementType) string {
	for _, rule := range achievementRules {
		if rule.kind == t {
			return rule.title
		}
	}
	return string(t)
}

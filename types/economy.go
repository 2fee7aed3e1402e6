package types

import "time"

// RewardAction identifies a coin/experience delta.
type RewardAction string

const (
	ActionHost                RewardAction = "host"
	ActionJoin                RewardAction = "join"
	ActionLeave               RewardAction = "leave"
	ActionAbandon             RewardAction = "abandon"
	ActionAbandonParticipant  RewardAction = "abandon_participant"
	ActionCompleteOrganizer   RewardAction = "complete_organizer"
	ActionCompleteParticipant RewardAction = "complete_participant"
)

func (a RewardAction) IsValid() bool {
	switch a {
	case ActionHost, ActionJoin, ActionLeave, ActionAbandon, ActionAbandonParticipant,
		ActionCompleteOrganizer, ActionCompleteParticipant:
		return true
	}
	return false
}

// AchievementType identifies a one-time achievement.
type AchievementType string

const (
	AchievementFirstTrip       AchievementType = "first_trip"
	AchievementSocialButterfly AchievementType = "social_butterfly"
	AchievementHostMaster      AchievementType = "host_master"
	AchievementCoinCollector   AchievementType = "coin_collector"
)

// Achievement is an unlocked achievement. Bonus is the coins/experience it paid.
type Achievement struct {
	Type       AchievementType `json:"type"`
	Title      string          `json:"title"`
	Bonus      int             `json:"bonus"`
	UnlockedAt time.Time       `json:"unlockedAt"`
}

// UserEconomy is the gamified state attached to a user. Level, Title and
// TotalTrips are derived and always recomputed together with Coins and the counters.
type UserEconomy struct {
	UserID       string        `json:"userId"`
	Coins        int           `json:"coins"`
	Experience   int           `json:"experience"`
	Level        int           `json:"level"`
	Title        string        `json:"title"`
	TripsHosted  int           `json:"tripsHosted"`
	TripsJoined  int           `json:"tripsJoined"`
	TotalTrips   int           `json:"totalTrips"`
	Countries    []string      `json:"countries"`
	Achievements []Achievement `json:"achievements"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// CountriesCount is the number of distinct countries visited.
func (e *UserEconomy) CountriesCount() int {
	return len(e.Countries)
}

// HasCountry reports whether country was already recorded.
func (e *UserEconomy) HasCountry(country string) bool {
	for _, c := range e.Countries {
		if c == country {
			return true
		}
	}
	return false
}

// HasAchievement reports whether t was already granted.
func (e *UserEconomy) HasAchievement(t AchievementType) bool {
	for _, a := range e.Achievements {
		if a.Type == t {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (e UserEconomy) Clone() UserEconomy {
	out := e
	out.Countries = append([]string(nil), e.Countries...)
	out.Achievements = append([]Achievement(nil), e.Achievements...)
	return out
}

// RewardOutcome is the result of applying one action to a user's economy.
type RewardOutcome struct {
	UserID       string        `json:"userId"`
	Action       RewardAction  `json:"action"`
	CoinDelta    int           `json:"coinDelta"`
	Economy      UserEconomy   `json:"economy"`
	Achievements []Achievement `json:"achievements,omitempty"`
}

// LeaderboardEntry is one row of the coin leaderboard.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"userId"`
	Coins      int    `json:"coins"`
	Experience int    `json:"experience"`
	Level      int    `json:"level"`
	Title      string `json:"title"`
	TotalTrips int    `json:"totalTrips"`
}

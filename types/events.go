package types

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NomadCrew/nomadnova-backend/errors"
)

// EventName is the realtime channel event name clients switch on.
type EventName string

const (
	EventNotification      EventName = "notification"
	EventLeaderboardUpdate EventName = "leaderboardUpdate"
)

// EventMetadata is carried for tracing.
type EventMetadata struct {
	Source        string `json:"source"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Event is a realtime message broadcast to every subscriber. UserID is the
// user the event concerns; clients filter on it.
type Event struct {
	ID        string          `json:"id"`
	Name      EventName       `json:"event"`
	UserID    string          `json:"userId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Version   int             `json:"version"`
	Metadata  EventMetadata   `json:"metadata"`
	Payload   json.RawMessage `json:"data"`
}

func (e Event) Validate() error {
	if e.ID == "" {
		return errors.ValidationFailed("invalid event", "event ID is required")
	}
	if e.Name == "" {
		return errors.ValidationFailed("invalid event", "event name is required")
	}
	if e.Timestamp.IsZero() {
		return errors.ValidationFailed("invalid event", "timestamp is required")
	}
	return nil
}

// EventPublisher publishes realtime events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber streams every realtime event until ctx is done.
type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// LeaderboardUpdate is the payload of a leaderboardUpdate event.
type LeaderboardUpdate struct {
	UserID       string        `json:"userId"`
	Action       RewardAction  `json:"action"`
	CoinDelta    int           `json:"coinDelta"`
	Coins        int           `json:"coins"`
	Experience   int           `json:"experience"`
	Level        int           `json:"level"`
	Title        string        `json:"title"`
	TotalTrips   int           `json:"totalTrips"`
	Countries    int           `json:"countriesCount"`
	Achievements []Achievement `json:"achievements,omitempty"`
}

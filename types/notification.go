package types

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationTripCreated         NotificationType = "trip_created"
	NotificationTripJoined          NotificationType = "trip_joined"
	NotificationParticipantJoined   NotificationType = "participant_joined"
	NotificationTripLeft            NotificationType = "trip_left"
	NotificationTripAbandoned       NotificationType = "trip_abandoned"
	NotificationTripCompleted       NotificationType = "trip_completed"
	NotificationAchievementUnlocked NotificationType = "achievement_unlocked"
)

// Notification is a durable message for one user. Only its owner may mark it
// read or delete it.
type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	TripID      *string          `json:"tripId,omitempty"`
	Destination *string          `json:"destination,omitempty"`
	Metadata    json.RawMessage  `json:"metadata,omitempty"`
	IsRead      bool             `json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// NotificationRequest carries the inputs of Notify.
type NotificationRequest struct {
	UserID      string
	Type        NotificationType
	Title       string
	Message     string
	TripID      string
	Destination string
	Metadata    map[string]interface{}
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

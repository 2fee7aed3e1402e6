// Package events carries realtime events between service instances over
// Redis Pub/Sub and hands them to the websocket hub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/google/uuid"
)

// NewEvent builds an event with a fresh ID and the current timestamp.
func NewEvent(name types.EventName, userID, source string, payload interface{}) (types.Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return types.Event{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return types.Event{
		ID:        uuid.NewString(),
		Name:      name,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Version:   1,
		Metadata:  types.EventMetadata{Source: source},
		Payload:   data,
	}, nil
}

// PublishEventWithContext builds and publishes an event in one step.
func PublishEventWithContext(ctx context.Context, publisher types.EventPublisher, name types.EventName, userID, source string, payload interface{}) error {
	event, err := NewEvent(name, userID, source, payload)
	if err != nil {
		return err
	}
	if err := publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

// NoopPublisher drops every event. Used when no realtime transport is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, types.Event) error { return nil }

// Package service implements the notification fanout: every notification is
// persisted first and then pushed to realtime subscribers on a best-effort basis.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/internal/clock"
	"github.com/NomadCrew/nomadnova-backend/internal/events"
	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type NotificationService struct {
	store     store.NotificationStore
	publisher types.EventPublisher
	clock     clock.Clock
	log       *zap.SugaredLogger
}

// NewNotificationService wires the store and the realtime publisher. The
// publisher should not block; pass an events.AsyncPublisher in production.
func NewNotificationService(ns store.NotificationStore, publisher types.EventPublisher, clk clock.Clock) *NotificationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &NotificationService{
		store:     ns,
		publisher: publisher,
		clock:     clk,
		log:       logger.GetLogger().Named("notifications"),
	}
}

// Notify persists a notification and then publishes it on the realtime
// channel. Only a persistence failure is returned.
func (s *NotificationService) Notify(ctx context.Context, req types.NotificationRequest) (*types.Notification, error) {
	if req.UserID == "" || req.Type == "" {
		return nil, apperrors.ValidationFailed("invalid notification", "userID and type are required")
	}

	metadata := json.RawMessage("{}")
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, apperrors.ValidationFailed("invalid notification metadata", err.Error())
		}
		metadata = raw
	}

	now := s.clock.Now()
	n := &types.Notification{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.TripID != "" {
		tripID := req.TripID
		n.TripID = &tripID
	}
	if req.Destination != "" {
		destination := req.Destination
		n.Destination = &destination
	}

	if err := s.store.Create(ctx, n); err != nil {
		return nil, apperrors.Transient(err, "create notification")
	}

	s.log.Debugw("Notification created",
		"notificationID", n.ID,
		"userID", n.UserID,
		"type", n.Type)

	if err := events.PublishEventWithContext(ctx, s.publisher, types.EventNotification, n.UserID, "notifications", n); err != nil {
		s.log.Warnw("Failed to publish notification event",
			"notificationID", n.ID,
			"userID", n.UserID,
			"error", err)
	}
	return n, nil
}

// NotificationPage is one page of a user's inbox.
type NotificationPage struct {
	Notifications []types.Notification `json:"notifications"`
	Total         int                  `json:"total"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

func (s *NotificationService) List(ctx context.Context, userID string, filter types.NotificationFilter) (*NotificationPage, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultPageSize
	case filter.Limit > MaxPageSize:
		filter.Limit = MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	list, total, err := s.store.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, apperrors.Transient(err, "list notifications")
	}
	return &NotificationPage{Notifications: list, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.Transient(err, "count unread notifications")
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.mapOwned(s.store.MarkRead(ctx, notificationID, userID), notificationID, "mark notification read")
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperrors.Transient(err, "mark all notifications read")
	}
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	return s.mapOwned(s.store.Delete(ctx, notificationID, userID), notificationID, "delete notification")
}

func (s *NotificationService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.DeleteAll(ctx, userID)
	if err != nil {
		return 0, apperrors.Transient(err, "delete all notifications")
	}
	return n, nil
}

// mapOwned hides whether a notification exists for another user.
func (s *NotificationService) mapOwned(err error, notificationID, operation string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound(apperrors.CodeNotificationNotFound, "Notification", notificationID)
	default:
		return apperrors.Transient(err, fmt.Sprintf("%s %s", operation, notificationID))
	}
}

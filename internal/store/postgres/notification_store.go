package postgres

import (
	"context"
	"fmt"

	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, user_id, type, title, message, trip_id, destination, metadata,
	is_read, created_at, updated_at`

// NotificationStore implements store.NotificationStore.
type NotificationStore struct {
	pool DBPool
}

var _ store.NotificationStore = (*NotificationStore)(nil)

func NewNotificationStore(pool DBPool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

func scanNotification(row pgx.Row) (types.Notification, error) {
	var (
		n        types.Notification
		nType    string
		metadata []byte
	)
	err := row.Scan(&n.ID, &n.UserID, &nType, &n.Title, &n.Message, &n.TripID, &n.Destination,
		&metadata, &n.IsRead, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return n, err
	}
	n.Type = types.NotificationType(nType)
	n.Metadata = metadata
	return n, nil
}

func (s *NotificationStore) Create(ctx context.Context, n *types.Notification) error {
	metadata := []byte(n.Metadata)
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.TripID, n.Destination,
		metadata, n.IsRead, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string, filter types.NotificationFilter) ([]types.Notification, int, error) {
	where := `WHERE user_id = $1`
	if filter.UnreadOnly {
		where += ` AND is_read = false`
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+where, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications `+where+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	list := make([]types.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification row: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return list, total, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true, updated_at = now() WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		if isNoRecord(err) {
			return fmt.Errorf("notification %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true, updated_at = now() WHERE user_id = $1 AND is_read = false`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *NotificationStore) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if isNoRecord(err) {
			return fmt.Errorf("notification %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("failed to delete notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *NotificationStore) DeleteAll(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

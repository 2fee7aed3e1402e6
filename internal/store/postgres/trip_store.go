package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const tripColumns = `id, owner_id, title, description, destination, from_date, to_date, max_people,
	current_participants, status, completed_at, auto_completed, created_at, updated_at`

// openStatusSQL mirrors types.OpenTripStatuses.
const openStatusSQL = `('upcoming', 'ongoing')`

const pgInvalidTextRepresentation = "22P02"

// TripStore implements store.TripStore.
type TripStore struct {
	pool DBPool
}

var _ store.TripStore = (*TripStore)(nil)

func NewTripStore(pool DBPool) *TripStore {
	return &TripStore{pool: pool}
}

func scanTrip(row pgx.Row) (*types.Trip, error) {
	var (
		t      types.Trip
		status string
	)
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Destination, &t.FromDate, &t.ToDate,
		&t.MaxPeople, &t.CurrentParticipants, &status, &t.CompletedAt, &t.AutoCompleted,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = types.TripStatus(status)
	return &t, nil
}

func scanTrips(rows pgx.Rows) ([]*types.Trip, error) {
	defer rows.Close()
	var trips []*types.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip row: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trip rows: %w", err)
	}
	return trips, nil
}

// isNoRecord treats both "no rows" and a malformed uuid as a missing record.
func isNoRecord(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || isMalformedID(err)
}

// isMalformedID reports a uuid parse failure. Postgres aborts the enclosing
// transaction on it, so callers must not issue follow-up queries.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}

func (s *TripStore) CreateTrip(ctx context.Context, trip *types.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.pool.Exec(ctx, query,
		trip.ID, trip.OwnerID, trip.Title, trip.Description, trip.Destination, trip.FromDate, trip.ToDate,
		trip.MaxPeople, trip.CurrentParticipants, string(trip.Status), trip.CompletedAt, trip.AutoCompleted,
		trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	logger.GetLogger().Debugw("Trip created", "tripID", trip.ID, "ownerID", trip.OwnerID)
	return nil
}

func (s *TripStore) GetTrip(ctx context.Context, id string) (*types.Trip, error) {
	return getTrip(ctx, s.pool, id, false)
}

func getTrip(ctx context.Context, q querier, id string, forUpdate bool) (*types.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 AND deleted_at IS NULL`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	trip, err := scanTrip(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRecord(err) {
			return nil, fmt.Errorf("trip %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip %s: %w", id, err)
	}
	return trip, nil
}

func (s *TripStore) ListUserTrips(ctx context.Context, userID string) ([]*types.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips t
		WHERE t.deleted_at IS NULL
		  AND (t.owner_id = $1
		       OR EXISTS (SELECT 1 FROM trip_memberships m WHERE m.trip_id = t.id AND m.user_id = $1))
		ORDER BY t.from_date`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips for user %s: %w", userID, err)
	}
	return scanTrips(rows)
}

func (s *TripStore) ListExpiredTrips(ctx context.Context, now time.Time, limit int) ([]*types.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE to_date < $1
		  AND status IN ` + openStatusSQL + `
		  AND auto_completed = false
		  AND deleted_at IS NULL
		ORDER BY to_date
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired trips: %w", err)
	}
	return scanTrips(rows)
}

func (s *TripStore) CompleteTrip(ctx context.Context, id string, now time.Time, auto bool) (*types.Trip, error) {
	query := `
		UPDATE trips
		SET status = 'completed', completed_at = $2, auto_completed = $3, updated_at = $2
		WHERE id = $1
		  AND status IN ` + openStatusSQL + `
		  AND auto_completed = false
		  AND deleted_at IS NULL
		RETURNING ` + tripColumns

	trip, err := scanTrip(s.pool.QueryRow(ctx, query, id, now, auto))
	if err != nil {
		if isNoRecord(err) {
			return nil, fmt.Errorf("complete trip %s: %w", id, store.ErrGuardFailed)
		}
		return nil, fmt.Errorf("failed to complete trip %s: %w", id, err)
	}
	return trip, nil
}

func (s *TripStore) CancelTrip(ctx context.Context, id, ownerID string, now time.Time) (*types.CancelledTrip, error) {
	var result types.CancelledTrip

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		cancelQuery := `
			UPDATE trips
			SET status = 'cancelled', current_participants = 0, deleted_at = $3, updated_at = $3
			WHERE id = $1
			  AND owner_id = $2
			  AND status IN ` + openStatusSQL + `
			  AND deleted_at IS NULL
			RETURNING ` + tripColumns

		trip, err := scanTrip(tx.QueryRow(ctx, cancelQuery, id, ownerID, now))
		if err != nil {
			if isMalformedID(err) {
				return fmt.Errorf("trip %s: %w", id, store.ErrNotFound)
			}
			if isNoRecord(err) {
				return classifyCancelFailure(ctx, tx, id, ownerID)
			}
			return fmt.Errorf("failed to cancel trip %s: %w", id, err)
		}
		result.Trip = *trip

		rows, err := tx.Query(ctx,
			`DELETE FROM trip_memberships WHERE trip_id = $1 RETURNING id, trip_id, user_id, joined_at`, id)
		if err != nil {
			return fmt.Errorf("failed to delete memberships of trip %s: %w", id, err)
		}
		memberships, err := scanMemberships(rows)
		if err != nil {
			return err
		}
		result.Memberships = memberships
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infow("Trip cancelled",
		"tripID", id,
		"ownerID", ownerID,
		"removedMembers", len(result.Memberships))
	return &result, nil
}

func classifyCancelFailure(ctx context.Context, tx pgx.Tx, id, ownerID string) error {
	var (
		owner  string
		status string
	)
	err := tx.QueryRow(ctx, `SELECT owner_id, status FROM trips WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&owner, &status)
	if err != nil {
		if isNoRecord(err) {
			return fmt.Errorf("trip %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("failed to inspect trip %s: %w", id, err)
	}
	if owner != ownerID {
		return fmt.Errorf("trip %s: %w", id, store.ErrForbidden)
	}
	if types.TripStatus(status).IsTerminal() {
		return fmt.Errorf("trip %s: %w", id, store.ErrTripTerminal)
	}
	return fmt.Errorf("cancel trip %s: %w", id, store.ErrGuardFailed)
}

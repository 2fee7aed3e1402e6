package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const membershipColumns = `id, trip_id, user_id, joined_at`

// MembershipStore implements store.MembershipStore. The participant counter
// lives on trips and is only ever changed together with a membership row.
type MembershipStore struct {
	pool DBPool
}

var _ store.MembershipStore = (*MembershipStore)(nil)

func NewMembershipStore(pool DBPool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

func scanMembership(row pgx.Row) (types.Membership, error) {
	var m types.Membership
	err := row.Scan(&m.ID, &m.TripID, &m.UserID, &m.JoinedAt)
	return m, err
}

func scanMemberships(rows pgx.Rows) ([]types.Membership, error) {
	defer rows.Close()
	members := make([]types.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating membership rows: %w", err)
	}
	return members, nil
}

// AddMember claims a slot with a guarded increment and inserts the membership
// in the same transaction. The unique (trip_id, user_id) index rejects a
// second concurrent join by the same user.
func (s *MembershipStore) AddMember(ctx context.Context, tripID, userID string, now time.Time) (*types.Membership, *types.Trip, error) {
	var (
		membership types.Membership
		trip       *types.Trip
	)

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		claimQuery := `
			UPDATE trips
			SET current_participants = current_participants + 1, updated_at = $2
			WHERE id = $1
			  AND deleted_at IS NULL
			  AND status IN ` + openStatusSQL + `
			  AND current_participants < max_people
			RETURNING ` + tripColumns

		var err error
		trip, err = scanTrip(tx.QueryRow(ctx, claimQuery, tripID, now))
		if err != nil {
			if isMalformedID(err) {
				return fmt.Errorf("trip %s: %w", tripID, store.ErrNotFound)
			}
			if isNoRecord(err) {
				return classifyJoinFailure(ctx, tx, tripID, userID)
			}
			return fmt.Errorf("failed to claim slot on trip %s: %w", tripID, err)
		}

		membership = types.Membership{
			ID:       uuid.NewString(),
			TripID:   tripID,
			UserID:   userID,
			JoinedAt: now,
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO trip_memberships (`+membershipColumns+`) VALUES ($1, $2, $3, $4)`,
			membership.ID, membership.TripID, membership.UserID, membership.JoinedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("user %s on trip %s: %w", userID, tripID, store.ErrAlreadyJoined)
			}
			return fmt.Errorf("failed to insert membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.GetLogger().Debugw("Member added",
		"tripID", tripID,
		"userID", userID,
		"currentParticipants", trip.CurrentParticipants)
	return &membership, trip, nil
}

// classifyJoinFailure explains why the guarded increment matched nothing.
func classifyJoinFailure(ctx context.Context, tx pgx.Tx, tripID, userID string) error {
	var (
		status   string
		current  int
		capacity int
	)
	err := tx.QueryRow(ctx,
		`SELECT status, current_participants, max_people FROM trips WHERE id = $1 AND deleted_at IS NULL`,
		tripID).Scan(&status, &current, &capacity)
	if err != nil {
		if isNoRecord(err) {
			return fmt.Errorf("trip %s: %w", tripID, store.ErrNotFound)
		}
		return fmt.Errorf("failed to inspect trip %s: %w", tripID, err)
	}

	var joined bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM trip_memberships WHERE trip_id = $1 AND user_id = $2)`,
		tripID, userID).Scan(&joined)
	if err != nil {
		return fmt.Errorf("failed to inspect membership: %w", err)
	}

	switch {
	case joined:
		return fmt.Errorf("user %s on trip %s: %w", userID, tripID, store.ErrAlreadyJoined)
	case current >= capacity:
		return fmt.Errorf("trip %s: %w", tripID, store.ErrTripFull)
	case types.TripStatus(status).IsTerminal():
		return fmt.Errorf("trip %s: %w", tripID, store.ErrTripTerminal)
	}
	// A slot was freed between the increment and this read.
	return fmt.Errorf("join trip %s: %w", tripID, store.ErrGuardFailed)
}

// RemoveMember locks the trip row, deletes the membership and decrements the
// counter, never below zero.
func (s *MembershipStore) RemoveMember(ctx context.Context, tripID, userID string, now time.Time) (*types.Trip, error) {
	var trip *types.Trip

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		locked, err := getTrip(ctx, tx, tripID, true)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM trip_memberships WHERE trip_id = $1 AND user_id = $2`, tripID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete membership: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("membership of %s on trip %s: %w", userID, tripID, store.ErrNotFound)
		}
		if locked.Status.IsTerminal() {
			return fmt.Errorf("trip %s: %w", tripID, store.ErrTripTerminal)
		}

		decrementQuery := `
			UPDATE trips
			SET current_participants = GREATEST(current_participants - 1, 0), updated_at = $2
			WHERE id = $1
			RETURNING ` + tripColumns
		trip, err = scanTrip(tx.QueryRow(ctx, decrementQuery, tripID, now))
		if err != nil {
			return fmt.Errorf("failed to decrement participants of trip %s: %w", tripID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Debugw("Member removed",
		"tripID", tripID,
		"userID", userID,
		"currentParticipants", trip.CurrentParticipants)
	return trip, nil
}

func (s *MembershipStore) GetMembership(ctx context.Context, tripID, userID string) (*types.Membership, error) {
	m, err := scanMembership(s.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM trip_memberships WHERE trip_id = $1 AND user_id = $2`,
		tripID, userID))
	if err != nil {
		if isNoRecord(err) {
			return nil, fmt.Errorf("membership of %s on trip %s: %w", userID, tripID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

func (s *MembershipStore) ListMembers(ctx context.Context, tripID string) ([]types.Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+membershipColumns+` FROM trip_memberships WHERE trip_id = $1 ORDER BY joined_at`,
		tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of trip %s: %w", tripID, err)
	}
	return scanMemberships(rows)
}

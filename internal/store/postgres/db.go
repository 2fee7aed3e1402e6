// Package postgres implements the store interfaces on PostgreSQL via pgx/v5.
// Every mutation that must be atomic per record runs as a single guarded
// UPDATE or inside a transaction that locks the trip row first.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool is the subset of *pgxpool.Pool the stores use. pgxmock pools satisfy it.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// querier is implemented by both pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxFn is the body of a transaction.
type TxFn func(tx pgx.Tx) error

// WithTx runs fn in a transaction, committing on success and rolling back on error.
func WithTx(ctx context.Context, db DBPool, fn TxFn) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.GetLogger().Errorw("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Store bundles the Postgres stores over one pool.
type Store struct {
	pool          DBPool
	trips         *TripStore
	memberships   *MembershipStore
	economies     *EconomyStore
	notifications *NotificationStore
}

var _ store.Store = (*Store)(nil)

// NewStore wires every Postgres store onto pool.
func NewStore(pool DBPool) *Store {
	return &Store{
		pool:          pool,
		trips:         NewTripStore(pool),
		memberships:   NewMembershipStore(pool),
		economies:     NewEconomyStore(pool),
		notifications: NewNotificationStore(pool),
	}
}

func (s *Store) Trips() store.TripStore                 { return s.trips }
func (s *Store) Memberships() store.MembershipStore     { return s.memberships }
func (s *Store) Economies() store.EconomyStore          { return s.economies }
func (s *Store) Notifications() store.NotificationStore { return s.notifications }

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/jackc/pgx/v5"
)

const economyColumns = `user_id, coins, experience, level, title, trips_hosted, trips_joined,
	total_trips, countries, updated_at`

// EconomyStore implements store.EconomyStore on user_economies and the
// append-only user_achievements table.
type EconomyStore struct {
	pool DBPool
}

var _ store.EconomyStore = (*EconomyStore)(nil)

func NewEconomyStore(pool DBPool) *EconomyStore {
	return &EconomyStore{pool: pool}
}

func scanEconomy(row pgx.Row) (*types.UserEconomy, error) {
	var e types.UserEconomy
	err := row.Scan(&e.UserID, &e.Coins, &e.Experience, &e.Level, &e.Title, &e.TripsHosted,
		&e.TripsJoined, &e.TotalTrips, &e.Countries, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if e.Countries == nil {
		e.Countries = []string{}
	}
	return &e, nil
}

func loadAchievements(ctx context.Context, q querier, userID string) ([]types.Achievement, error) {
	rows, err := q.Query(ctx,
		`SELECT type, title, bonus, unlocked_at FROM user_achievements WHERE user_id = $1 ORDER BY unlocked_at, type`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements of %s: %w", userID, err)
	}
	defer rows.Close()

	achievements := make([]types.Achievement, 0)
	for rows.Next() {
		var (
			a       types.Achievement
			achType string
		)
		if err := rows.Scan(&achType, &a.Title, &a.Bonus, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement row: %w", err)
		}
		a.Type = types.AchievementType(achType)
		achievements = append(achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievement rows: %w", err)
	}
	return achievements, nil
}

func (s *EconomyStore) GetEconomy(ctx context.Context, userID string) (*types.UserEconomy, error) {
	e, err := scanEconomy(s.pool.QueryRow(ctx,
		`SELECT `+economyColumns+` FROM user_economies WHERE user_id = $1`, userID))
	if err != nil {
		if isNoRecord(err) {
			return nil, fmt.Errorf("economy of %s: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get economy of %s: %w", userID, err)
	}

	e.Achievements, err = loadAchievements(ctx, s.pool, userID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEconomy serializes writers on the user's row with SELECT ... FOR UPDATE.
func (s *EconomyStore) UpdateEconomy(ctx context.Context, userID string, fn store.EconomyUpdateFn) (*types.UserEconomy, error) {
	var updated *types.UserEconomy

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO user_economies (user_id, level, title, countries, updated_at)
			VALUES ($1, 1, 'New Traveler', '{}', now())
			ON CONFLICT (user_id) DO NOTHING`, userID)
		if err != nil {
			return fmt.Errorf("failed to ensure economy of %s: %w", userID, err)
		}

		e, err := scanEconomy(tx.QueryRow(ctx,
			`SELECT `+economyColumns+` FROM user_economies WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil {
			return fmt.Errorf("failed to lock economy of %s: %w", userID, err)
		}
		if e.Achievements, err = loadAchievements(ctx, tx, userID); err != nil {
			return err
		}

		known := make(map[types.AchievementType]bool, len(e.Achievements))
		for _, a := range e.Achievements {
			known[a.Type] = true
		}

		if err := fn(e); err != nil {
			return err
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = time.Now().UTC()
		}
		if e.Countries == nil {
			e.Countries = []string{}
		}

		_, err = tx.Exec(ctx, `
			UPDATE user_economies
			SET coins = $2, experience = $3, level = $4, title = $5, trips_hosted = $6,
			    trips_joined = $7, total_trips = $8, countries = $9, updated_at = $10
			WHERE user_id = $1`,
			userID, e.Coins, e.Experience, e.Level, e.Title, e.TripsHosted,
			e.TripsJoined, e.TotalTrips, e.Countries, e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update economy of %s: %w", userID, err)
		}

		for _, a := range e.Achievements {
			if known[a.Type] {
				continue
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO user_achievements (user_id, type, title, bonus, unlocked_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id, type) DO NOTHING`,
				userID, string(a.Type), a.Title, a.Bonus, a.UnlockedAt)
			if err != nil {
				return fmt.Errorf("failed to record achievement %s for %s: %w", a.Type, userID, err)
			}
		}

		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *EconomyStore) Leaderboard(ctx context.Context, limit int) ([]types.UserEconomy, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+economyColumns+`
		FROM user_economies
		ORDER BY coins DESC, experience DESC, user_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	board := make([]types.UserEconomy, 0)
	for rows.Next() {
		e, err := scanEconomy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		board = append(board, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}
	return board, nil
}

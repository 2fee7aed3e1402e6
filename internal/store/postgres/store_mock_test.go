package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tripColumnNames = []string{
	"id", "owner_id", "title", "description", "destination", "from_date", "to_date", "max_people",
	"current_participants", "status", "completed_at", "auto_completed", "created_at", "updated_at",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func testTrip(participants, maxPeople int, status types.TripStatus) *types.Trip {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return &types.Trip{
		ID:                  uuid.NewString(),
		OwnerID:             "owner-1",
		Title:               "Spring in Paris",
		Destination:         "Paris, France",
		FromDate:            now.AddDate(0, 0, 10),
		ToDate:              now.AddDate(0, 0, 15),
		MaxPeople:           maxPeople,
		CurrentParticipants: participants,
		Status:              status,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func tripRows(trips ...*types.Trip) *pgxmock.Rows {
	rows := pgxmock.NewRows(tripColumnNames)
	for _, t := range trips {
		rows.AddRow(t.ID, t.OwnerID, t.Title, t.Description, t.Destination, t.FromDate, t.ToDate,
			t.MaxPeople, t.CurrentParticipants, string(t.Status), t.CompletedAt, t.AutoCompleted,
			t.CreatedAt, t.UpdatedAt)
	}
	return rows
}

func TestTripStore_GetTrip(t *testing.T) {
	ctx := context.Background()
	trip := testTrip(2, 4, types.TripStatusUpcoming)

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery("SELECT .+ FROM trips WHERE id = .+ AND deleted_at IS NULL").
			WithArgs(trip.ID).
			WillReturnRows(tripRows(trip))

		got, err := NewTripStore(mock).GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, trip.ID, got.ID)
		assert.Equal(t, types.TripStatusUpcoming, got.Status)
		assert.Equal(t, 2, got.CurrentParticipants)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery("SELECT .+ FROM trips").
			WithArgs("nope").
			WillReturnError(pgx.ErrNoRows)

		_, err := NewTripStore(mock).GetTrip(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery("SELECT .+ FROM trips").
			WithArgs("not-a-uuid").
			WillReturnError(&pgconn.PgError{Code: pgInvalidTextRepresentation})

		_, err := NewTripStore(mock).GetTrip(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTripStore_CompleteTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("open trip completes", func(t *testing.T) {
		mock := newMockPool(t)
		trip := testTrip(1, 4, types.TripStatusCompleted)
		trip.CompletedAt = &now
		trip.AutoCompleted = true

		mock.ExpectQuery("UPDATE trips SET status = 'completed'").
			WithArgs(trip.ID, now, true).
			WillReturnRows(tripRows(trip))

		got, err := NewTripStore(mock).CompleteTrip(ctx, trip.ID, now, true)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusCompleted, got.Status)
		assert.True(t, got.AutoCompleted)
		require.NotNil(t, got.CompletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already completed", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery("UPDATE trips SET status = 'completed'").
			WithArgs("trip-1", now, true).
			WillReturnError(pgx.ErrNoRows)

		_, err := NewTripStore(mock).CompleteTrip(ctx, "trip-1", now, true)
		assert.ErrorIs(t, err, store.ErrGuardFailed)
	})
}

func TestTripStore_CancelTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	t.Run("owner cancels and memberships are removed", func(t *testing.T) {
		mock := newMockPool(t)
		trip := testTrip(0, 4, types.TripStatusCancelled)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE trips SET status = 'cancelled'").
			WithArgs(trip.ID, trip.OwnerID, now).
			WillReturnRows(tripRows(trip))
		mock.ExpectQuery("DELETE FROM trip_memberships WHERE trip_id").
			WithArgs(trip.ID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "trip_id", "user_id", "joined_at"}).
				AddRow("m-1", trip.ID, "user-a", now).
				AddRow("m-2", trip.ID, "user-b", now))
		mock.ExpectCommit()

		got, err := NewTripStore(mock).CancelTrip(ctx, trip.ID, trip.OwnerID, now)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusCancelled, got.Trip.Status)
		require.Len(t, got.Memberships, 2)
		assert.Equal(t, "user-b", got.Memberships[1].UserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non owner is forbidden", func(t *testing.T) {
		mock := newMockPool(t)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE trips SET status = 'cancelled'").
			WithArgs("trip-1", "intruder", now).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT owner_id, status FROM trips").
			WithArgs("trip-1").
			WillReturnRows(pgxmock.NewRows([]string{"owner_id", "status"}).AddRow("owner-1", "upcoming"))
		mock.ExpectRollback()

		_, err := NewTripStore(mock).CancelTrip(ctx, "trip-1", "intruder", now)
		assert.ErrorIs(t, err, store.ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completed trip cannot be cancelled", func(t *testing.T) {
		mock := newMockPool(t)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE trips SET status = 'cancelled'").
			WithArgs("trip-1", "owner-1", now).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT owner_id, status FROM trips").
			WithArgs("trip-1").
			WillReturnRows(pgxmock.NewRows([]string{"owner_id", "status"}).AddRow("owner-1", "completed"))
		mock.ExpectRollback()

		_, err := NewTripStore(mock).CancelTrip(ctx, "trip-1", "owner-1", now)
		assert.ErrorIs(t, err, store.ErrTripTerminal)
	})

	t.Run("malformed id is not found without a follow-up query", func(t *testing.T) {
		mock := newMockPool(t)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE trips SET status = 'cancelled'").
			WithArgs("not-a-uuid", "owner-1", now).
			WillReturnError(&pgconn.PgError{Code: pgInvalidTextRepresentation})
		mock.ExpectRollback()

		_, err := NewTripStore(mock).CancelTrip(ctx, "not-a-uuid", "owner-1", now)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMembershipStore_AddMember(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("claims a slot and inserts the membership", func(t *testing.T) {
		mock := newMockPool(t)
		trip := testTrip(3, 4, types.TripStatusUpcoming)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE trips SET current_participants = current_participants \\+ 1").
			WithArgs(trip.ID, now).
			WillReturnRows(tripRows(trip))
		mock.ExpectExec("INSERT INTO trip_memberships").
			WithArgs(pgxmock.AnyArg(), trip.ID, "user-a", now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		m, got, err := NewMembershipStore(mock).AddMember(ctx, trip.ID, "user-a", now)
		require.NoError(t, err)
		assert.Equal(t, "user-a", m.UserID)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, 3, got.CurrentParticipants)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate insert is already joined", func(t *testing.T) {
		mock := newMockPool(t)
		trip := testTrip(2, 4, types.TripStatusUpcoming)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE trips SET current_participants").
			WithArgs(trip.ID, now).
			WillReturnRows(tripRows(trip))
		mock.ExpectExec("INSERT INTO trip_memberships").
			WithArgs(pgxmock.AnyArg(), trip.ID, "user-a", now).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
		mock.ExpectRollback()

		_, _, err := NewMembershipStore(mock).AddMember(ctx, trip.ID, "user-a", now)
		assert.ErrorIs(t, err, store.ErrAlreadyJoined)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	classify := []struct {
		name    string
		status  string
		current int
		joined  bool
		want    error
	}{
		{name: "full trip", status: "upcoming", current: 4, want: store.ErrTripFull},
		{name: "member of a full trip", status: "upcoming", current: 4, joined: true, want: store.ErrAlreadyJoined},
		{name: "completed trip", status: "completed", current: 1, want: store.ErrTripTerminal},
	}
	for _, tc := range classify {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMockPool(t)

			mock.ExpectBegin()
			mock.ExpectQuery("UPDATE trips SET current_participants").
				WithArgs("trip-1", now).
				WillReturnError(pgx.ErrNoRows)
			mock.ExpectQuery("SELECT status, current_participants, max_people FROM trips").
				WithArgs("trip-1").
				WillReturnRows(pgxmock.NewRows([]string{"status", "current_participants", "max_people"}).
					AddRow(tc.status, tc.current, 4))
			mock.ExpectQuery("SELECT EXISTS").
				WithArgs("trip-1", "user-a").
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tc.joined))
			mock.ExpectRollback()

			_, _, err := NewMembershipStore(mock).AddMember(ctx, "trip-1", "user-a", now)
			assert.ErrorIs(t, err, tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("missing trip", func(t *testing.T) {
		mock := newMockPool(t)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE trips SET current_participants").
			WithArgs("trip-1", now).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT status, current_participants, max_people FROM trips").
			WithArgs("trip-1").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := NewMembershipStore(mock).AddMember(ctx, "trip-1", "user-a", now)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("malformed trip id", func(t *testing.T) {
		mock := newMockPool(t)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE trips SET current_participants").
			WithArgs("garbage", now).
			WillReturnError(&pgconn.PgError{Code: pgInvalidTextRepresentation})
		mock.ExpectRollback()

		_, _, err := NewMembershipStore(mock).AddMember(ctx, "garbage", "user-a", now)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMembershipStore_RemoveMember(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("decrements the counter", func(t *testing.T) {
		mock := newMockPool(t)
		before := testTrip(2, 4, types.TripStatusUpcoming)
		after := *before
		after.CurrentParticipants = 1

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM trips WHERE id = .+ FOR UPDATE").
			WithArgs(before.ID).
			WillReturnRows(tripRows(before))
		mock.ExpectExec("DELETE FROM trip_memberships").
			WithArgs(before.ID, "user-a").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectQuery("UPDATE trips SET current_participants = GREATEST").
			WithArgs(before.ID, now).
			WillReturnRows(tripRows(&after))
		mock.ExpectCommit()

		got, err := NewMembershipStore(mock).RemoveMember(ctx, before.ID, "user-a", now)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CurrentParticipants)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not a member", func(t *testing.T) {
		mock := newMockPool(t)
		trip := testTrip(2, 4, types.TripStatusUpcoming)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM trips").
			WithArgs(trip.ID).
			WillReturnRows(tripRows(trip))
		mock.ExpectExec("DELETE FROM trip_memberships").
			WithArgs(trip.ID, "stranger").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectRollback()

		_, err := NewMembershipStore(mock).RemoveMember(ctx, trip.ID, "stranger", now)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completed trip keeps its members", func(t *testing.T) {
		mock := newMockPool(t)
		trip := testTrip(2, 4, types.TripStatusCompleted)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM trips").
			WithArgs(trip.ID).
			WillReturnRows(tripRows(trip))
		mock.ExpectExec("DELETE FROM trip_memberships").
			WithArgs(trip.ID, "user-a").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectRollback()

		_, err := NewMembershipStore(mock).RemoveMember(ctx, trip.ID, "user-a", now)
		assert.ErrorIs(t, err, store.ErrTripTerminal)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEconomyStore_UpdateEconomy(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	economyCols := []string{"user_id", "coins", "experience", "level", "title", "trips_hosted",
		"trips_joined", "total_trips", "countries", "updated_at"}

	t.Run("persists the mutation and new achievements", func(t *testing.T) {
		mock := newMockPool(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO user_economies").
			WithArgs("user-a").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery("SELECT .+ FROM user_economies WHERE user_id = .+ FOR UPDATE").
			WithArgs("user-a").
			WillReturnRows(pgxmock.NewRows(economyCols).
				AddRow("user-a", 0, 0, 1, "New Traveler", 0, 0, 0, []string{}, now))
		mock.ExpectQuery("SELECT type, title, bonus, unlocked_at FROM user_achievements").
			WithArgs("user-a").
			WillReturnRows(pgxmock.NewRows([]string{"type", "title", "bonus", "unlocked_at"}))
		mock.ExpectExec("UPDATE user_economies SET coins").
			WithArgs("user-a", 15, 15, 1, "Rookie Explorer", 0, 1, 1, []string{"France"}, now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("INSERT INTO user_achievements").
			WithArgs("user-a", "first_trip", "First Trip", 10, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		got, err := NewEconomyStore(mock).UpdateEconomy(ctx, "user-a", func(e *types.UserEconomy) error {
			e.Coins, e.Experience = 15, 15
			e.TripsJoined, e.TotalTrips = 1, 1
			e.Title = "Rookie Explorer"
			e.Countries = append(e.Countries, "France")
			e.Achievements = append(e.Achievements, types.Achievement{
				Type: types.AchievementFirstTrip, Title: "First Trip", Bonus: 10, UnlockedAt: now,
			})
			e.UpdatedAt = now
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 15, got.Coins)
		assert.Len(t, got.Achievements, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fn error rolls back", func(t *testing.T) {
		mock := newMockPool(t)
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO user_economies").
			WithArgs("user-a").
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectQuery("SELECT .+ FROM user_economies").
			WithArgs("user-a").
			WillReturnRows(pgxmock.NewRows(economyCols).
				AddRow("user-a", 40, 40, 1, "Continental Hopper", 2, 3, 5, []string{"France"}, now))
		mock.ExpectQuery("SELECT type, title, bonus, unlocked_at FROM user_achievements").
			WithArgs("user-a").
			WillReturnRows(pgxmock.NewRows([]string{"type", "title", "bonus", "unlocked_at"}))
		mock.ExpectRollback()

		_, err := NewEconomyStore(mock).UpdateEconomy(ctx, "user-a", func(e *types.UserEconomy) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEconomyStore_GetEconomy_Unknown(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("SELECT .+ FROM user_economies").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewEconomyStore(mock).GetEconomy(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotificationStore_OwnerScopedMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("mark read of someone else's notification", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec("UPDATE notifications SET is_read = true").
			WithArgs("n-1", "user-b").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewNotificationStore(mock).MarkRead(ctx, "n-1", "user-b")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("mark all read reports the count", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec("UPDATE notifications SET is_read = true").
			WithArgs("user-a").
			WillReturnResult(pgxmock.NewResult("UPDATE", 3))

		n, err := NewNotificationStore(mock).MarkAllRead(ctx, "user-a")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("delete", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec("DELETE FROM notifications WHERE id").
			WithArgs("n-1", "user-a").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, NewNotificationStore(mock).Delete(ctx, "n-1", "user-a"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNotificationStore_ListByUser(t *testing.T) {
	mock := newMockPool(t)
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	tripID := "trip-1"

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-a").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT .+ FROM notifications WHERE user_id = .+ AND is_read = false ORDER BY created_at DESC").
		WithArgs("user-a", 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "type", "title", "message", "trip_id",
			"destination", "metadata", "is_read", "created_at", "updated_at"}).
			AddRow("n-1", "user-a", "trip_joined", "Joined", "You joined", &tripID, (*string)(nil),
				[]byte(`{"coins":15}`), false, created, created))

	list, total, err := NewNotificationStore(mock).ListByUser(context.Background(), "user-a",
		types.NotificationFilter{Limit: 20, UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, types.NotificationTripJoined, list[0].Type)
	require.NotNil(t, list[0].TripID)
	assert.Equal(t, tripID, *list[0].TripID)
	assert.Nil(t, list[0].Destination)
	assert.JSONEq(t, `{"coins":15}`, string(list[0].Metadata))
	assert.NoError(t, mock.ExpectationsWereMet())
}

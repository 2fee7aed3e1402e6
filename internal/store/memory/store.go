// Package memory is an in-process implementation of the store interfaces used
// for local development and service tests. Each trip and each economy is
// guarded by its own mutex so read-modify-write sequences on one record are
// serialized while unrelated records proceed in parallel.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NomadCrew/nomadnova-backend/internal/store"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/google/uuid"
)

// keyedMutex hands out one mutex per key. Entries are never evicted.
type keyedMutex struct {
	locks sync.Map
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

type state struct {
	mu            sync.RWMutex
	trips         map[string]*types.Trip
	members       map[string]map[string]types.Membership
	economies     map[string]*types.UserEconomy
	notifications map[string]*types.Notification
	records       keyedMutex
}

// Store implements store.Store in memory.
type Store struct {
	st            *state
	trips         *TripStore
	memberships   *MembershipStore
	economies     *EconomyStore
	notifications *NotificationStore
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	st := &state{
		trips:         make(map[string]*types.Trip),
		members:       make(map[string]map[string]types.Membership),
		economies:     make(map[string]*types.UserEconomy),
		notifications: make(map[string]*types.Notification),
	}
	return &Store{
		st:            st,
		trips:         &TripStore{st: st},
		memberships:   &MembershipStore{st: st},
		economies:     &EconomyStore{st: st},
		notifications: &NotificationStore{st: st},
	}
}

func (s *Store) Trips() store.TripStore                 { return s.trips }
func (s *Store) Memberships() store.MembershipStore     { return s.memberships }
func (s *Store) Economies() store.EconomyStore          { return s.economies }
func (s *Store) Notifications() store.NotificationStore { return s.notifications }
func (s *Store) Ping(context.Context) error             { return nil }

func tripKey(id string) string        { return "trip:" + id }
func economyKey(userID string) string { return "economy:" + userID }

// liveTrip returns the stored pointer; callers hold the trip's record lock.
func (st *state) liveTrip(id string) (*types.Trip, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	t, ok := st.trips[id]
	if !ok || t.DeletedAt != nil {
		return nil, fmt.Errorf("trip %s: %w", id, store.ErrNotFound)
	}
	return t, nil
}

func copyTrip(t *types.Trip) *types.Trip {
	c := *t
	return &c
}

// TripStore is the in-memory store.TripStore.
type TripStore struct {
	st *state
}

func (s *TripStore) CreateTrip(_ context.Context, trip *types.Trip) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if _, exists := s.st.trips[trip.ID]; exists {
		return fmt.Errorf("trip %s already exists", trip.ID)
	}
	s.st.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (s *TripStore) GetTrip(_ context.Context, id string) (*types.Trip, error) {
	t, err := s.st.liveTrip(id)
	if err != nil {
		return nil, err
	}
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	return copyTrip(t), nil
}

func (s *TripStore) ListUserTrips(_ context.Context, userID string) ([]*types.Trip, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	trips := make([]*types.Trip, 0)
	for id, t := range s.st.trips {
		if t.DeletedAt != nil {
			continue
		}
		if _, member := s.st.members[id][userID]; t.OwnerID == userID || member {
			trips = append(trips, copyTrip(t))
		}
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].FromDate.Before(trips[j].FromDate) })
	return trips, nil
}

func (s *TripStore) ListExpiredTrips(_ context.Context, now time.Time, limit int) ([]*types.Trip, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	trips := make([]*types.Trip, 0)
	for _, t := range s.st.trips {
		if t.DeletedAt == nil && !t.Status.IsTerminal() && !t.AutoCompleted && t.ToDate.Before(now) {
			trips = append(trips, copyTrip(t))
		}
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].ToDate.Before(trips[j].ToDate) })
	if limit > 0 && len(trips) > limit {
		trips = trips[:limit]
	}
	return trips, nil
}

func (s *TripStore) CompleteTrip(_ context.Context, id string, now time.Time, auto bool) (*types.Trip, error) {
	unlock := s.st.records.lock(tripKey(id))
	defer unlock()

	t, err := s.st.liveTrip(id)
	if err != nil {
		return nil, fmt.Errorf("complete trip %s: %w", id, store.ErrGuardFailed)
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if t.Status.IsTerminal() || t.AutoCompleted {
		return nil, fmt.Errorf("complete trip %s: %w", id, store.ErrGuardFailed)
	}
	completedAt := now
	t.Status = types.TripStatusCompleted
	t.CompletedAt = &completedAt
	t.AutoCompleted = auto
	t.UpdatedAt = now
	return copyTrip(t), nil
}

func (s *TripStore) CancelTrip(_ context.Context, id, ownerID string, now time.Time) (*types.CancelledTrip, error) {
	unlock := s.st.records.lock(tripKey(id))
	defer unlock()

	t, err := s.st.liveTrip(id)
	if err != nil {
		return nil, err
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if t.OwnerID != ownerID {
		return nil, fmt.Errorf("trip %s: %w", id, store.ErrForbidden)
	}
	if t.Status.IsTerminal() {
		return nil, fmt.Errorf("trip %s: %w", id, store.ErrTripTerminal)
	}

	deletedAt := now
	t.Status = types.TripStatusCancelled
	t.CurrentParticipants = 0
	t.DeletedAt = &deletedAt
	t.UpdatedAt = now

	removed := make([]types.Membership, 0, len(s.st.members[id]))
	for _, m := range s.st.members[id] {
		removed = append(removed, m)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].JoinedAt.Before(removed[j].JoinedAt) })
	delete(s.st.members, id)

	return &types.CancelledTrip{Trip: *t, Memberships: removed}, nil
}

// MembershipStore is the in-memory store.MembershipStore.
type MembershipStore struct {
	st *state
}

func (s *MembershipStore) AddMember(_ context.Context, tripID, userID string, now time.Time) (*types.Membership, *types.Trip, error) {
	unlock := s.st.records.lock(tripKey(tripID))
	defer unlock()

	t, err := s.st.liveTrip(tripID)
	if err != nil {
		return nil, nil, err
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if _, joined := s.st.members[tripID][userID]; joined {
		return nil, nil, fmt.Errorf("user %s on trip %s: %w", userID, tripID, store.ErrAlreadyJoined)
	}
	if t.IsFull() {
		return nil, nil, fmt.Errorf("trip %s: %w", tripID, store.ErrTripFull)
	}
	if t.Status.IsTerminal() {
		return nil, nil, fmt.Errorf("trip %s: %w", tripID, store.ErrTripTerminal)
	}

	m := types.Membership{ID: uuid.NewString(), TripID: tripID, UserID: userID, JoinedAt: now}
	if s.st.members[tripID] == nil {
		s.st.members[tripID] = make(map[string]types.Membership)
	}
	s.st.members[tripID][userID] = m
	t.CurrentParticipants++
	t.UpdatedAt = now
	return &m, copyTrip(t), nil
}

func (s *MembershipStore) RemoveMember(_ context.Context, tripID, userID string, now time.Time) (*types.Trip, error) {
	unlock := s.st.records.lock(tripKey(tripID))
	defer unlock()

	t, err := s.st.liveTrip(tripID)
	if err != nil {
		return nil, err
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if _, joined := s.st.members[tripID][userID]; !joined {
		return nil, fmt.Errorf("membership of %s on trip %s: %w", userID, tripID, store.ErrNotFound)
	}
	if t.Status.IsTerminal() {
		return nil, fmt.Errorf("trip %s: %w", tripID, store.ErrTripTerminal)
	}

	delete(s.st.members[tripID], userID)
	if t.CurrentParticipants > 0 {
		t.CurrentParticipants--
	}
	t.UpdatedAt = now
	return copyTrip(t), nil
}

func (s *MembershipStore) GetMembership(_ context.Context, tripID, userID string) (*types.Membership, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	m, ok := s.st.members[tripID][userID]
	if !ok {
		return nil, fmt.Errorf("membership of %s on trip %s: %w", userID, tripID, store.ErrNotFound)
	}
	return &m, nil
}

func (s *MembershipStore) ListMembers(_ context.Context, tripID string) ([]types.Membership, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	members := make([]types.Membership, 0, len(s.st.members[tripID]))
	for _, m := range s.st.members[tripID] {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })
	return members, nil
}

// EconomyStore is the in-memory store.EconomyStore.
type EconomyStore struct {
	st *state
}

func (s *EconomyStore) GetEconomy(_ context.Context, userID string) (*types.UserEconomy, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	e, ok := s.st.economies[userID]
	if !ok {
		return nil, fmt.Errorf("economy of %s: %w", userID, store.ErrNotFound)
	}
	c := e.Clone()
	return &c, nil
}

func (s *EconomyStore) UpdateEconomy(_ context.Context, userID string, fn store.EconomyUpdateFn) (*types.UserEconomy, error) {
	unlock := s.st.records.lock(economyKey(userID))
	defer unlock()

	s.st.mu.RLock()
	current, ok := s.st.economies[userID]
	var working types.UserEconomy
	if ok {
		working = current.Clone()
	}
	s.st.mu.RUnlock()

	if !ok {
		working = types.UserEconomy{
			UserID:       userID,
			Level:        1,
			Title:        "New Traveler",
			Countries:    []string{},
			Achievements: []types.Achievement{},
		}
	}

	if err := fn(&working); err != nil {
		return nil, err
	}
	if working.UpdatedAt.IsZero() {
		working.UpdatedAt = time.Now().UTC()
	}

	stored := working.Clone()
	s.st.mu.Lock()
	s.st.economies[userID] = &stored
	s.st.mu.Unlock()

	out := working.Clone()
	return &out, nil
}

func (s *EconomyStore) Leaderboard(_ context.Context, limit int) ([]types.UserEconomy, error) {
	s.st.mu.RLock()
	board := make([]types.UserEconomy, 0, len(s.st.economies))
	for _, e := range s.st.economies {
		board = append(board, e.Clone())
	}
	s.st.mu.RUnlock()

	sort.Slice(board, func(i, j int) bool {
		if board[i].Coins != board[j].Coins {
			return board[i].Coins > board[j].Coins
		}
		if board[i].Experience != board[j].Experience {
			return board[i].Experience > board[j].Experience
		}
		return board[i].UserID < board[j].UserID
	})
	if limit > 0 && len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}

// NotificationStore is the in-memory store.NotificationStore.
type NotificationStore struct {
	st *state
}

func (s *NotificationStore) Create(_ context.Context, n *types.Notification) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	c := *n
	s.st.notifications[n.ID] = &c
	return nil
}

func (s *NotificationStore) ListByUser(_ context.Context, userID string, filter types.NotificationFilter) ([]types.Notification, int, error) {
	s.st.mu.RLock()
	matched := make([]types.Notification, 0)
	for _, n := range s.st.notifications {
		if n.UserID != userID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		matched = append(matched, *n)
	}
	s.st.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if filter.Offset >= total {
		return []types.Notification{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *NotificationStore) CountUnread(_ context.Context, userID string) (int, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	count := 0
	for _, n := range s.st.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(_ context.Context, id, userID string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	n, ok := s.st.notifications[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %s: %w", id, store.ErrNotFound)
	}
	n.IsRead = true
	n.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *NotificationStore) MarkAllRead(_ context.Context, userID string) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	var count int64
	now := time.Now().UTC()
	for _, n := range s.st.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (s *NotificationStore) Delete(_ context.Context, id, userID string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	n, ok := s.st.notifications[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %s: %w", id, store.ErrNotFound)
	}
	delete(s.st.notifications, id)
	return nil
}

func (s *NotificationStore) DeleteAll(_ context.Context, userID string) (int64, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	var count int64
	for id, n := range s.st.notifications {
		if n.UserID == userID {
			delete(s.st.notifications, id)
			count++
		}
	}
	return count, nil
}

package types

import "time"

// Membership records that a user joined a trip. (TripID, UserID) is unique.
type Membership struct {
	ID       string    `json:"id"`
	TripID   string    `json:"tripId"`
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// JoinResult is returned by a successful join.
type JoinResult struct {
	Membership Membership `json:"membership"`
	Trip       Trip       `json:"trip"`
}

// LeaveResult is returned by a successful leave.
type LeaveResult struct {
	TripID              string `json:"tripId"`
	CurrentParticipants int    `json:"currentParticipants"`
}

// AbandonResult is returned when an owner abandons a trip.
type AbandonResult struct {
	TripID         string   `json:"tripId"`
	RemovedMembers []string `json:"removedMembers"`
}

// CancelledTrip is what the store hands back after an abandonment: the trip
// as it was and the memberships that were removed with it.
type CancelledTrip struct {
	Trip        Trip
	Memberships []Membership
}

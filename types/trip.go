package types

import "time"

type TripStatus string

const (
	TripStatusUpcoming  TripStatus = "upcoming"
	TripStatusOngoing   TripStatus = "ongoing"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// OpenTripStatuses are the stored statuses that still accept membership changes.
var OpenTripStatuses = []TripStatus{TripStatusUpcoming, TripStatusOngoing}

var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusUpcoming:  {TripStatusOngoing, TripStatusCompleted, TripStatusCancelled},
	TripStatusOngoing:   {TripStatusCompleted, TripStatusCancelled},
	TripStatusCompleted: {},
	TripStatusCancelled: {},
}

// IsValidTransition reports whether the lifecycle allows moving from ts to next.
// upcoming may jump straight to completed because ongoing is never stored by
// the completion sweep.
func (ts TripStatus) IsValidTransition(next TripStatus) bool {
	for _, allowed := range tripTransitions[ts] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further membership mutation is permitted.
func (ts TripStatus) IsTerminal() bool {
	return ts == TripStatusCompleted || ts == TripStatusCancelled
}

func (ts TripStatus) IsValid() bool {
	_, ok := tripTransitions[ts]
	return ok
}

func (ts TripStatus) String() string {
	return string(ts)
}

type Trip struct {
	ID                  string     `json:"id"`
	OwnerID             string     `json:"ownerId"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	Destination         string     `json:"destination"`
	FromDate            time.Time  `json:"fromDate"`
	ToDate              time.Time  `json:"toDate"`
	MaxPeople           int        `json:"maxPeople"`
	CurrentParticipants int        `json:"currentParticipants"`
	Status              TripStatus `json:"status"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	AutoCompleted       bool       `json:"autoCompleted"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	DeletedAt           *time.Time `json:"-"`
}

// DerivedStatus is the read-only lifecycle view at now. Stored terminal states
// win; otherwise a trip whose window contains now reads as ongoing.
func (t *Trip) DerivedStatus(now time.Time) TripStatus {
	if t.Status.IsTerminal() {
		return t.Status
	}
	if !now.Before(t.FromDate) && !now.After(t.ToDate) {
		return TripStatusOngoing
	}
	return TripStatusUpcoming
}

// IsFull reports whether every slot is taken.
func (t *Trip) IsFull() bool {
	return t.CurrentParticipants >= t.MaxPeople
}

// IsExpired reports whether the trip ended before now.
func (t *Trip) IsExpired(now time.Time) bool {
	return t.ToDate.Before(now)
}

// TripCreate is the input for creating a trip.
type TripCreate struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Destination string    `json:"destination" binding:"required"`
	FromDate    time.Time `json:"fromDate" binding:"required"`
	ToDate      time.Time `json:"toDate" binding:"required"`
	MaxPeople   int       `json:"maxPeople" binding:"required"`
}

// TripView is a trip as returned to clients, with the derived status applied.
type TripView struct {
	Trip
	Status TripStatus `json:"status"`
}

// NewTripView returns t with its derived status at now.
func NewTripView(t *Trip, now time.Time) TripView {
	return TripView{Trip: *t, Status: t.DerivedStatus(now)}
}

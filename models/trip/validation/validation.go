package validation

import (
	"strings"
	"time"

	"github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/types"
)

// StartOfTomorrow is the earliest fromDate a new trip may have.
func StartOfTomorrow(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// ValidateNewTrip checks a trip before it is created and reports every
// problem at once.
func ValidateNewTrip(trip *types.TripCreate, now time.Time) error {
	var validationErrors []string

	if strings.TrimSpace(trip.Title) == "" {
		validationErrors = append(validationErrors, "trip title is required")
	}

	if strings.TrimSpace(trip.Destination) == "" {
		validationErrors = append(validationErrors, "trip destination is required")
	}

	if trip.MaxPeople < 1 {
		validationErrors = append(validationErrors, "maxPeople must be at least 1")
	}

	if trip.FromDate.IsZero() || trip.ToDate.IsZero() {
		validationErrors = append(validationErrors, "trip dates are required")
	} else {
		if !trip.FromDate.Before(trip.ToDate) {
			validationErrors = append(validationErrors, "fromDate must be before toDate")
		}
		if trip.FromDate.Before(StartOfTomorrow(now)) {
			validationErrors = append(validationErrors, "fromDate must be tomorrow or later")
		}
	}

	if len(validationErrors) > 0 {
		return errors.ValidationFailed(
			"Invalid trip data",
			strings.Join(validationErrors, "; "),
		)
	}
	return nil
}

// ValidateStatusTransition rejects moves the lifecycle does not allow.
func ValidateStatusTransition(trip *types.Trip, next types.TripStatus) error {
	if !trip.Status.IsValidTransition(next) {
		return errors.NewConflictError(errors.CodeTripTerminal,
			"cannot move trip from "+string(trip.Status)+" to "+string(next))
	}
	return nil
}

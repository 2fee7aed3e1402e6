package store

import "errors"

// Sentinel errors returned by every store implementation. Callers match them
// with errors.Is; implementations wrap them with context.
var (
	// ErrNotFound indicates that a requested record does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden indicates the caller does not own the record.
	ErrForbidden = errors.New("forbidden")

	ErrAlreadyJoined = errors.New("membership already exists")
	ErrTripFull      = errors.New("trip is full")
	ErrTripTerminal  = errors.New("trip is completed or cancelled")

	// ErrGuardFailed means a conditional update matched no row because its
	// guard no longer held, e.g. a trip already completed by another worker.
	ErrGuardFailed = errors.New("conditional update guard failed")
)

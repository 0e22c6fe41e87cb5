package reservation

import "errors"

// Domain errors surfaced to API callers. Concurrency-control signals
// from the storage layer (stale version, conflicting status, duplicate
// hold) never leave this package raw; they are translated into the
// nearest domain error below.
var (
	// ErrSeatUnavailable means the seat is held, sold, or was lost in a
	// race. Recoverable: pick another seat.
	ErrSeatUnavailable = errors.New("seat unavailable")
	// ErrSeatNotFound means the seat does not exist for the event.
	ErrSeatNotFound = errors.New("seat not found")
	// ErrAdmissionRequired means the caller has no live admitted
	// session for the event. Recoverable: enqueue and wait.
	ErrAdmissionRequired = errors.New("admission required")
	// ErrHoldExpired means the hold's deadline passed before confirm,
	// whether or not the sweep already reclaimed the seat.
	ErrHoldExpired = errors.New("hold expired")
	// ErrHoldNotOwned means the holder or fencing token does not match
	// the live hold – a delayed request from a superseded session.
	ErrHoldNotOwned = errors.New("hold not owned")
)

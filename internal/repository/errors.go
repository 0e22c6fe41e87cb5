// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation engine to distinguish between different failure scenarios
// without inspecting driver-specific errors. Concurrency-control
// signals (stale version, conflicting status, duplicate keys) stay in
// this layer and the engine translates them into domain errors.
package repository

import "errors"

// ErrEventNotFound is returned when the requested event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrSeatNotFound is returned when the requested seat does not exist
// within the given event.
var ErrSeatNotFound = errors.New("seat not found")

// ErrHoldNotFound is returned when no live hold exists for a seat.
var ErrHoldNotFound = errors.New("hold not found")

// ErrHoldConflict is returned when inserting a hold collides with an
// existing live hold on the same seat. The unique key on
// seat_holds.seat_id makes the database the final arbiter of the
// single-holder invariant.
var ErrHoldConflict = errors.New("seat already held")

// ErrDuplicateOrder is returned when inserting an order collides with an
// existing order for the same idempotency key or seat. Callers re-read
// by idempotency key to resolve retry races.
var ErrDuplicateOrder = errors.New("duplicate order")

// ErrSeatExists is returned when bulk-loading seats collides with an
// existing (event_id, grade, seat_code) row, typically a re-run of the
// same inventory load.
var ErrSeatExists = errors.New("seat already exists")

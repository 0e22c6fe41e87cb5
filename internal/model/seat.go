package model

import "time"

// Seat statuses as stored in seats.seat_status.  A seat moves
// AVAILABLE -> HELD -> ISSUED, with HELD -> AVAILABLE on release or
// expiry.  ISSUED is terminal; a sold seat never comes back.
const (
	SeatStatusAvailable = "AVAILABLE"
	SeatStatusHeld      = "HELD"
	SeatStatusIssued    = "ISSUED"
)

// Seat grades.  Grades scope seat codes, so VIP "A1" and R "A1" are
// different seats within the same event.
const (
	GradeVIP = "VIP"
	GradeR   = "R"
	GradeS   = "S"
	GradeA   = "A"
)

// Seat describes one sellable seat for an event and is the source of
// truth for its sale state.  Price is fixed once the event is published.
// The Version column backs optimistic locking: every successful status
// transition increments it, and the value doubles as the fencing token
// handed to the holder.
//
// Fields:
//  ID         – primary key identifier.
//  EventID    – event to which this seat belongs.
//  SeatCode   – human label within the grade (e.g. "A1", "B12").
//  Grade      – seat grade (VIP, R, S, A).
//  PriceCents – price in cents, immutable after publication.
//  Status     – sale status (AVAILABLE, HELD, ISSUED).
//  Version    – optimistic locking counter, incremented on every
//               successful status transition.
//  CreatedAt  – timestamp when the record was created.
//  UpdatedAt  – timestamp when the record was last updated.
type Seat struct {
	ID         uint64    // seats.id
	EventID    uint64    // seats.event_id
	SeatCode   string    // seats.seat_code
	Grade      string    // seats.grade
	PriceCents uint32    // seats.price_cents
	Status     string    // seats.seat_status
	Version    uint64    // seats.version
	CreatedAt  time.Time // seats.created_at
	UpdatedAt  time.Time // seats.updated_at
}

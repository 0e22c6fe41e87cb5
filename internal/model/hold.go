package model

import "time"

// Hold represents a temporary exclusive claim on a seat during the
// checkout process.  A hold prevents concurrent buyers from grabbing the
// same seat while its owner is paying.  Holds expire automatically at
// their expires_at timestamp and are reaped by the sweep job.
//
// The unique key on seat_id in the seat_holds table means the database
// itself refuses a second live hold on a seat.  FencingToken is the seat
// version captured when the hold was created; a confirm or release
// carrying a token from a superseded hold fails the ownership check even
// if the seat has since been re-held.
//
// Fields:
//  ID           – primary key identifier.
//  EventID      – event for which the seat is held.
//  SeatID       – seat being held.
//  HolderID     – buyer/session that owns the hold.
//  HoldToken    – opaque token returned to the client for correlation.
//  FencingToken – seat version at hold creation; strictly increases
//                 across a seat's hold history.
//  ExpiresAt    – when the hold expires.
//  CreatedAt    – when the hold was created.
type Hold struct {
	ID           uint64    // seat_holds.id
	EventID      uint64    // seat_holds.event_id
	SeatID       uint64    // seat_holds.seat_id
	HolderID     uint64    // seat_holds.holder_id
	HoldToken    string    // seat_holds.hold_token
	FencingToken uint64    // seat_holds.fencing_token
	ExpiresAt    time.Time // seat_holds.expires_at
	CreatedAt    time.Time // seat_holds.created_at
}

// Expired reports whether the hold's deadline has passed at the given
// instant.  The sweep job and the confirm path both use this so a hold
// is dead the moment its deadline passes, swept or not.
func (h Hold) Expired(now time.Time) bool { return !now.Before(h.ExpiresAt) }

package model

import "time"

// Event statuses as stored in events.status.  Only OPEN events accept
// queue entry and seat holds; everything else is rejected at the gate.
const (
	EventStatusReady  = "READY"  // published but sale not started
	EventStatusOpen   = "OPEN"   // sale in progress
	EventStatusClosed = "CLOSED" // sale ended
)

// Event is the catalog read model for a ticketed event.  Event CRUD is
// owned by an external catalog service; this service only reads status
// and the sale window to gate admission and holds.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the event.
//  Status    – sale status (READY, OPEN, CLOSED).
//  OpensAt   – when the sale window opens.
//  ClosesAt  – when the sale window closes.
//  CreatedAt – creation timestamp.
type Event struct {
	ID        uint64    // events.id
	Name      string    // events.name
	Status    string    // events.status
	OpensAt   time.Time // events.opens_at
	ClosesAt  time.Time // events.closes_at
	CreatedAt time.Time // events.created_at
}

// IsOpen reports whether the event currently accepts admission and holds.
func (e Event) IsOpen() bool { return e.Status == EventStatusOpen }

package model

import "time"

// Admission states reported to a polling client.
const (
	AdmissionWaiting  = "WAITING"  // still in the queue
	AdmissionAdmitted = "ADMITTED" // may attempt seat holds until expiry
	AdmissionExpired  = "EXPIRED"  // session lapsed or event closed; re-enqueue
)

// AdmissionTicket is the client-visible view of a holder's place in the
// per-event admission queue.  Position is assigned from a monotonic
// counter at enqueue time and never changes; promotion is strict FIFO by
// position.  ExpiresAt is only meaningful while State is ADMITTED.
type AdmissionTicket struct {
	EventID   uint64    `json:"event_id"`
	HolderID  uint64    `json:"holder_id"`
	State     string    `json:"state"`
	Position  int64     `json:"position"`
	Ahead     int64     `json:"ahead,omitempty"`     // holders waiting in front; WAITING only
	ExpiresAt time.Time `json:"expires_at,omitzero"` // session deadline; ADMITTED only
}

package admission

import (
	"context"
	"errors"
	"time"

	"github.com/onsale/ticketing/internal/clock"
	"github.com/onsale/ticketing/internal/model"
)

// ErrEventNotOpen is returned when a holder tries to enter the queue
// for an event whose sale window is not open.
var ErrEventNotOpen = errors.New("event not open for sale")

// EventGate answers whether an event currently accepts admission.
// Backed by the catalog read model in production.
type EventGate interface {
	IsOpen(ctx context.Context, eventID uint64) (bool, error)
}

// Queue is the admission queue service. It validates the event gate,
// delegates the shared-state transitions to its Store, and shapes the
// results for the API surface.
type Queue struct {
	store      Store
	gate       EventGate
	clk        clock.Clock
	cap        int
	sessionTTL time.Duration
}

// NewQueue constructs a Queue. cap is the per-event concurrency limit
// for admitted seat-selection sessions; sessionTTL is how long an
// admitted session stays valid.
func NewQueue(store Store, gate EventGate, clk clock.Clock, cap int, sessionTTL time.Duration) *Queue {
	return &Queue{store: store, gate: gate, clk: clk, cap: cap, sessionTTL: sessionTTL}
}

// Enqueue registers the holder in the event's queue and returns their
// ticket. It never blocks and never sheds load: a holder always gets a
// position, admitted immediately when a slot is free. Re-enqueueing is
// idempotent.
func (q *Queue) Enqueue(ctx context.Context, eventID, holderID uint64) (model.AdmissionTicket, error) {
	open, err := q.gate.IsOpen(ctx, eventID)
	if err != nil {
		return model.AdmissionTicket{}, err
	}
	if !open {
		return model.AdmissionTicket{}, ErrEventNotOpen
	}
	entry, err := q.store.Enqueue(ctx, eventID, holderID, q.cap, q.sessionTTL, q.clk.Now())
	if err != nil {
		return model.AdmissionTicket{}, err
	}
	return ticketFrom(eventID, holderID, entry), nil
}

// Status reports the holder's current admission state. A holder the
// queue does not know about, one whose session lapsed, or any holder of
// a no-longer-open event polls as EXPIRED and must re-enqueue.
func (q *Queue) Status(ctx context.Context, eventID, holderID uint64) (model.AdmissionTicket, error) {
	open, err := q.gate.IsOpen(ctx, eventID)
	if err != nil {
		return model.AdmissionTicket{}, err
	}
	if !open {
		return model.AdmissionTicket{EventID: eventID, HolderID: holderID, State: model.AdmissionExpired}, nil
	}
	entry, ok, err := q.store.Status(ctx, eventID, holderID, q.clk.Now())
	if err != nil {
		return model.AdmissionTicket{}, err
	}
	if !ok {
		return model.AdmissionTicket{EventID: eventID, HolderID: holderID, State: model.AdmissionExpired}, nil
	}
	return ticketFrom(eventID, holderID, entry), nil
}

// Release removes the holder from the queue, freeing their admission
// slot if they held one. Safe to call at any time; releasing a holder
// who is already gone is a no-op.
func (q *Queue) Release(ctx context.Context, eventID, holderID uint64) error {
	return q.store.Release(ctx, eventID, holderID)
}

// Consume marks an admitted session as used once the holder succeeds in
// holding a seat. The slot stays occupied until expiry or release so
// the cap keeps bounding concurrent shopping sessions.
func (q *Queue) Consume(ctx context.Context, eventID, holderID uint64) error {
	return q.store.Consume(ctx, eventID, holderID)
}

// IsAdmitted is the reservation engine's gate check: only holders with
// a live, not-yet-consumed admitted session may attempt seat holds. One
// admission buys one hold; a consumed session keeps its slot until
// expiry or release but opens no further attempts.
func (q *Queue) IsAdmitted(ctx context.Context, eventID, holderID uint64) (bool, error) {
	return q.store.IsAdmitted(ctx, eventID, holderID, q.clk.Now())
}

// Promote prunes expired admitted sessions and advances the
// longest-waiting holders into the freed slots, FIFO by queue position.
// Invoked only under the scheduler guard; safe to re-run at any time.
func (q *Queue) Promote(ctx context.Context, eventID uint64) (int, error) {
	return q.store.Promote(ctx, eventID, q.cap, q.sessionTTL, q.clk.Now())
}

func ticketFrom(eventID, holderID uint64, e Entry) model.AdmissionTicket {
	t := model.AdmissionTicket{
		EventID:  eventID,
		HolderID: holderID,
		Position: e.Position,
	}
	switch e.State {
	case stateAdmitted:
		t.State = model.AdmissionAdmitted
		t.ExpiresAt = e.ExpiresAt
	default:
		t.State = model.AdmissionWaiting
		t.Ahead = e.Ahead
	}
	return t
}

// Package admission throttles how many holders may concurrently attempt
// seat selection for an event. Holders enter a per-event FIFO queue,
// receive a monotonic position, and are promoted into a bounded set of
// admitted sessions. Admission slots are held for the whole shopping
// session, not just the queue wait, so the cap bounds seat-selection
// pressure directly.
package admission

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Entry is a holder's current place in the queue as recorded by a Store.
type Entry struct {
	State     string    // WAITING or ADMITTED
	Position  int64     // monotonic position assigned at enqueue
	Ahead     int64     // holders waiting in front (WAITING only)
	ExpiresAt time.Time // session deadline (ADMITTED only)
}

// Store is the shared-state backend for the queue. Every method must be
// atomic with respect to concurrent callers on other instances; the
// production implementation is Redis with Lua scripts, and MemoryStore
// mirrors the same semantics for tests and single-node development.
type Store interface {
	// Enqueue registers the holder, admitting immediately when the
	// number of live admitted sessions is below cap. Calling it again
	// for a holder already queued or admitted returns the existing
	// entry unchanged.
	Enqueue(ctx context.Context, eventID, holderID uint64, cap int, sessionTTL time.Duration, now time.Time) (Entry, error)
	// Status reports the holder's entry. A holder the store does not
	// know, or whose admitted session has expired, yields ok=false.
	Status(ctx context.Context, eventID, holderID uint64, now time.Time) (Entry, bool, error)
	// Release removes the holder from the queue and frees their
	// admission slot if they held one. Unknown holders are a no-op.
	Release(ctx context.Context, eventID, holderID uint64) error
	// Consume marks an admitted holder's session as used (they entered
	// seat selection). The slot stays occupied until expiry or release.
	Consume(ctx context.Context, eventID, holderID uint64) error
	// IsAdmitted reports whether the holder has a live admitted session
	// that has not been consumed yet. One admission buys one hold.
	IsAdmitted(ctx context.Context, eventID, holderID uint64, now time.Time) (bool, error)
	// Promote prunes expired admitted sessions and moves the
	// longest-waiting holders into the freed slots, strictly FIFO by
	// position. Returns how many holders were admitted.
	Promote(ctx context.Context, eventID uint64, cap int, sessionTTL time.Duration, now time.Time) (int, error)
}

// MemoryStore is an in-process Store with the same semantics as the
// Redis implementation. It backs tests and single-node development; it
// is not safe across instances.
type MemoryStore struct {
	mu     sync.Mutex
	events map[uint64]*memEvent
}

type memEvent struct {
	nextPos  int64
	waiting  map[uint64]int64 // holder -> position
	admitted map[uint64]memSession
}

type memSession struct {
	position  int64
	expiresAt time.Time
	consumed  bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[uint64]*memEvent)}
}

func (s *MemoryStore) event(eventID uint64) *memEvent {
	ev, ok := s.events[eventID]
	if !ok {
		ev = &memEvent{waiting: make(map[uint64]int64), admitted: make(map[uint64]memSession)}
		s.events[eventID] = ev
	}
	return ev
}

func (ev *memEvent) liveAdmitted(now time.Time) int {
	n := 0
	for _, sess := range ev.admitted {
		if sess.expiresAt.After(now) {
			n++
		}
	}
	return n
}

func (ev *memEvent) aheadOf(pos int64) int64 {
	var n int64
	for _, p := range ev.waiting {
		if p < pos {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Enqueue(_ context.Context, eventID, holderID uint64, cap int, sessionTTL time.Duration, now time.Time) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.event(eventID)

	if sess, ok := ev.admitted[holderID]; ok {
		if sess.expiresAt.After(now) {
			return Entry{State: stateAdmitted, Position: sess.position, ExpiresAt: sess.expiresAt}, nil
		}
		delete(ev.admitted, holderID)
	}
	if pos, ok := ev.waiting[holderID]; ok {
		return Entry{State: stateWaiting, Position: pos, Ahead: ev.aheadOf(pos)}, nil
	}

	ev.nextPos++
	pos := ev.nextPos
	if ev.liveAdmitted(now) < cap {
		sess := memSession{position: pos, expiresAt: now.Add(sessionTTL)}
		ev.admitted[holderID] = sess
		return Entry{State: stateAdmitted, Position: pos, ExpiresAt: sess.expiresAt}, nil
	}
	ev.waiting[holderID] = pos
	return Entry{State: stateWaiting, Position: pos, Ahead: ev.aheadOf(pos)}, nil
}

func (s *MemoryStore) Status(_ context.Context, eventID, holderID uint64, now time.Time) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.event(eventID)
	if sess, ok := ev.admitted[holderID]; ok && sess.expiresAt.After(now) {
		return Entry{State: stateAdmitted, Position: sess.position, ExpiresAt: sess.expiresAt}, true, nil
	}
	if pos, ok := ev.waiting[holderID]; ok {
		return Entry{State: stateWaiting, Position: pos, Ahead: ev.aheadOf(pos)}, true, nil
	}
	return Entry{}, false, nil
}

func (s *MemoryStore) Release(_ context.Context, eventID, holderID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.event(eventID)
	delete(ev.waiting, holderID)
	delete(ev.admitted, holderID)
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, eventID, holderID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.event(eventID)
	if sess, ok := ev.admitted[holderID]; ok {
		sess.consumed = true
		ev.admitted[holderID] = sess
	}
	return nil
}

func (s *MemoryStore) IsAdmitted(_ context.Context, eventID, holderID uint64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.event(eventID).admitted[holderID]
	return ok && !sess.consumed && sess.expiresAt.After(now), nil
}

func (s *MemoryStore) Promote(_ context.Context, eventID uint64, cap int, sessionTTL time.Duration, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.event(eventID)

	for holder, sess := range ev.admitted {
		if !sess.expiresAt.After(now) {
			delete(ev.admitted, holder)
		}
	}

	free := cap - len(ev.admitted)
	if free <= 0 || len(ev.waiting) == 0 {
		return 0, nil
	}

	type waiter struct {
		holder uint64
		pos    int64
	}
	waiters := make([]waiter, 0, len(ev.waiting))
	for holder, pos := range ev.waiting {
		waiters = append(waiters, waiter{holder, pos})
	}
	sort.Slice(waiters, func(i, j int) bool { return waiters[i].pos < waiters[j].pos })

	promoted := 0
	for _, w := range waiters {
		if promoted >= free {
			break
		}
		delete(ev.waiting, w.holder)
		ev.admitted[w.holder] = memSession{position: w.pos, expiresAt: now.Add(sessionTTL)}
		promoted++
	}
	return promoted, nil
}

package admission

import (
	"context"
	"testing"
	"time"

	"github.com/onsale/ticketing/internal/clock"
	"github.com/onsale/ticketing/internal/model"
)

type fakeGate struct {
	open map[uint64]bool
}

func (f *fakeGate) IsOpen(_ context.Context, eventID uint64) (bool, error) {
	return f.open[eventID], nil
}

func openGate(eventIDs ...uint64) *fakeGate {
	g := &fakeGate{open: make(map[uint64]bool)}
	for _, id := range eventIDs {
		g.open[id] = true
	}
	return g
}

func TestQueue_Enqueue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	ttl := 15 * time.Minute
	ctx := context.Background()

	t.Run("admits below the cap, queues above it", func(t *testing.T) {
		q := NewQueue(NewMemoryStore(), openGate(1), clock.NewFixed(now), 2, ttl)

		for holder := uint64(1); holder <= 2; holder++ {
			ticket, err := q.Enqueue(ctx, 1, holder)
			if err != nil {
				t.Fatalf("enqueue %d: %v", holder, err)
			}
			if ticket.State != model.AdmissionAdmitted {
				t.Fatalf("holder %d: expected ADMITTED, got %s", holder, ticket.State)
			}
			if ticket.ExpiresAt != now.Add(ttl) {
				t.Fatalf("holder %d: expected session deadline %v, got %v", holder, now.Add(ttl), ticket.ExpiresAt)
			}
		}

		ticket, err := q.Enqueue(ctx, 1, 3)
		if err != nil {
			t.Fatalf("enqueue 3: %v", err)
		}
		if ticket.State != model.AdmissionWaiting {
			t.Fatalf("expected third holder WAITING, got %s", ticket.State)
		}
		if ticket.Ahead != 0 {
			t.Fatalf("expected nobody waiting ahead, got %d", ticket.Ahead)
		}

		ticket, err = q.Enqueue(ctx, 1, 4)
		if err != nil {
			t.Fatalf("enqueue 4: %v", err)
		}
		if ticket.Ahead != 1 {
			t.Fatalf("expected one holder ahead, got %d", ticket.Ahead)
		}
	})

	t.Run("re-enqueue is idempotent", func(t *testing.T) {
		q := NewQueue(NewMemoryStore(), openGate(1), clock.NewFixed(now), 1, ttl)

		first, err := q.Enqueue(ctx, 1, 5)
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		again, err := q.Enqueue(ctx, 1, 5)
		if err != nil {
			t.Fatalf("re-enqueue: %v", err)
		}
		if again.State != first.State || again.Position != first.Position {
			t.Fatalf("expected unchanged ticket, got %+v then %+v", first, again)
		}

		if _, err := q.Enqueue(ctx, 1, 6); err != nil {
			t.Fatalf("enqueue waiter: %v", err)
		}
		w1, _ := q.Enqueue(ctx, 1, 6)
		w2, err := q.Enqueue(ctx, 1, 6)
		if err != nil {
			t.Fatalf("re-enqueue waiter: %v", err)
		}
		if w2.Position != w1.Position {
			t.Fatalf("expected stable waiting position, got %d then %d", w1.Position, w2.Position)
		}
	})

	t.Run("closed event rejects entry", func(t *testing.T) {
		q := NewQueue(NewMemoryStore(), openGate(), clock.NewFixed(now), 1, ttl)
		if _, err := q.Enqueue(ctx, 1, 1); err != ErrEventNotOpen {
			t.Fatalf("expected ErrEventNotOpen, got %v", err)
		}
	})
}

func TestQueue_Promote(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	ttl := 15 * time.Minute
	ctx := context.Background()

	t.Run("promotes strictly in queue order", func(t *testing.T) {
		clk := clock.NewFixed(start)
		store := NewMemoryStore()
		q := NewQueue(store, openGate(1), clk, 1, ttl)

		if _, err := q.Enqueue(ctx, 1, 1); err != nil { // admitted
			t.Fatalf("enqueue 1: %v", err)
		}
		for holder := uint64(2); holder <= 4; holder++ { // waiting
			if _, err := q.Enqueue(ctx, 1, holder); err != nil {
				t.Fatalf("enqueue %d: %v", holder, err)
			}
		}

		// Nothing to do while the admitted session is alive.
		n, err := q.Promote(ctx, 1)
		if err != nil {
			t.Fatalf("promote: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected no promotion under a full cap, got %d", n)
		}

		// After the session lapses the oldest waiter takes the slot.
		later := NewQueue(store, openGate(1), clock.NewFixed(start.Add(ttl+time.Second)), 1, ttl)
		n, err = later.Promote(ctx, 1)
		if err != nil {
			t.Fatalf("promote after expiry: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 promotion, got %d", n)
		}

		ticket, err := later.Status(ctx, 1, 2)
		if err != nil {
			t.Fatalf("status 2: %v", err)
		}
		if ticket.State != model.AdmissionAdmitted {
			t.Fatalf("expected holder 2 admitted first, got %s", ticket.State)
		}
		for _, holder := range []uint64{3, 4} {
			ticket, err := later.Status(ctx, 1, holder)
			if err != nil {
				t.Fatalf("status %d: %v", holder, err)
			}
			if ticket.State != model.AdmissionWaiting {
				t.Fatalf("expected holder %d still waiting, got %s", holder, ticket.State)
			}
		}
	})

	t.Run("release frees a slot for the next waiter", func(t *testing.T) {
		store := NewMemoryStore()
		q := NewQueue(store, openGate(1), clock.NewFixed(start), 1, ttl)

		if _, err := q.Enqueue(ctx, 1, 1); err != nil {
			t.Fatalf("enqueue 1: %v", err)
		}
		if _, err := q.Enqueue(ctx, 1, 2); err != nil {
			t.Fatalf("enqueue 2: %v", err)
		}
		if err := q.Release(ctx, 1, 1); err != nil {
			t.Fatalf("release: %v", err)
		}

		n, err := q.Promote(ctx, 1)
		if err != nil {
			t.Fatalf("promote: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected waiter promoted into the freed slot, got %d", n)
		}
		admitted, err := q.IsAdmitted(ctx, 1, 2)
		if err != nil {
			t.Fatalf("is admitted: %v", err)
		}
		if !admitted {
			t.Fatalf("expected holder 2 admitted")
		}
	})

	t.Run("cap never exceeded", func(t *testing.T) {
		const cap = 3
		store := NewMemoryStore()
		q := NewQueue(store, openGate(1), clock.NewFixed(start), cap, ttl)

		for holder := uint64(1); holder <= 10; holder++ {
			if _, err := q.Enqueue(ctx, 1, holder); err != nil {
				t.Fatalf("enqueue %d: %v", holder, err)
			}
		}
		if _, err := q.Promote(ctx, 1); err != nil {
			t.Fatalf("promote: %v", err)
		}

		admitted := 0
		for holder := uint64(1); holder <= 10; holder++ {
			ok, err := q.IsAdmitted(ctx, 1, holder)
			if err != nil {
				t.Fatalf("is admitted %d: %v", holder, err)
			}
			if ok {
				admitted++
			}
		}
		if admitted != cap {
			t.Fatalf("expected exactly %d admitted, got %d", cap, admitted)
		}
	})
}

func TestQueue_Status(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	ttl := 15 * time.Minute
	ctx := context.Background()

	t.Run("unknown holder polls as expired", func(t *testing.T) {
		q := NewQueue(NewMemoryStore(), openGate(1), clock.NewFixed(now), 1, ttl)
		ticket, err := q.Status(ctx, 1, 42)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if ticket.State != model.AdmissionExpired {
			t.Fatalf("expected EXPIRED, got %s", ticket.State)
		}
	})

	t.Run("lapsed session polls as expired", func(t *testing.T) {
		store := NewMemoryStore()
		q := NewQueue(store, openGate(1), clock.NewFixed(now), 1, ttl)
		if _, err := q.Enqueue(ctx, 1, 1); err != nil {
			t.Fatalf("enqueue: %v", err)
		}

		later := NewQueue(store, openGate(1), clock.NewFixed(now.Add(ttl+time.Second)), 1, ttl)
		ticket, err := later.Status(ctx, 1, 1)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if ticket.State != model.AdmissionExpired {
			t.Fatalf("expected EXPIRED after session lapse, got %s", ticket.State)
		}

		admitted, err := later.IsAdmitted(ctx, 1, 1)
		if err != nil {
			t.Fatalf("is admitted: %v", err)
		}
		if admitted {
			t.Fatalf("expected lapsed session rejected at the hold gate")
		}
	})

	t.Run("consumed session buys no further holds", func(t *testing.T) {
		q := NewQueue(NewMemoryStore(), openGate(1), clock.NewFixed(now), 1, ttl)
		if _, err := q.Enqueue(ctx, 1, 1); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if err := q.Consume(ctx, 1, 1); err != nil {
			t.Fatalf("consume: %v", err)
		}

		admitted, err := q.IsAdmitted(ctx, 1, 1)
		if err != nil {
			t.Fatalf("is admitted: %v", err)
		}
		if admitted {
			t.Fatalf("expected consumed session rejected at the hold gate")
		}
		// The slot stays occupied so the cap still counts this shopper.
		ticket, err := q.Status(ctx, 1, 1)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if ticket.State != model.AdmissionAdmitted {
			t.Fatalf("expected session still ADMITTED, got %s", ticket.State)
		}
	})

	t.Run("closing the event expires everyone", func(t *testing.T) {
		gate := openGate(1)
		q := NewQueue(NewMemoryStore(), gate, clock.NewFixed(now), 1, ttl)
		if _, err := q.Enqueue(ctx, 1, 1); err != nil {
			t.Fatalf("enqueue: %v", err)
		}

		gate.open[1] = false
		ticket, err := q.Status(ctx, 1, 1)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if ticket.State != model.AdmissionExpired {
			t.Fatalf("expected EXPIRED once the event closed, got %s", ticket.State)
		}
	})
}

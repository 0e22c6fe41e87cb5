package admission

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb), mr
}

// Both Store implementations must agree on the consumed-flag lifecycle:
// a session that was used and then lapsed must not poison the holder's
// next admission, even when they re-enqueue before any promote tick.
func TestStore_ConsumedFlagLifecycle(t *testing.T) {
	t.Parallel()

	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"redis": func(t *testing.T) Store {
			s, _ := newRedisTestStore(t)
			return s
		},
	}

	for name, mk := range stores {
		mk := mk
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := mk(t)
			t0 := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
			ttl := 15 * time.Minute

			entry, err := store.Enqueue(ctx, 1, 7, 1, ttl, t0)
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			if entry.State != stateAdmitted {
				t.Fatalf("expected immediate admission, got %s", entry.State)
			}
			if err := store.Consume(ctx, 1, 7); err != nil {
				t.Fatalf("consume: %v", err)
			}
			ok, err := store.IsAdmitted(ctx, 1, 7, t0)
			if err != nil {
				t.Fatalf("is admitted: %v", err)
			}
			if ok {
				t.Fatal("consumed session must not open the hold gate")
			}

			// session lapses; the holder comes back before anyone promoted
			t1 := t0.Add(ttl + time.Minute)
			entry, err = store.Enqueue(ctx, 1, 7, 1, ttl, t1)
			if err != nil {
				t.Fatalf("re-enqueue: %v", err)
			}
			if entry.State != stateAdmitted {
				t.Fatalf("expected fresh admission after lapse, got %s", entry.State)
			}
			if !entry.ExpiresAt.Equal(t1.Add(ttl)) {
				t.Fatalf("expected deadline %v, got %v", t1.Add(ttl), entry.ExpiresAt)
			}

			got, found, err := store.Status(ctx, 1, 7, t1)
			if err != nil || !found {
				t.Fatalf("status: found=%v err=%v", found, err)
			}
			if got.State != stateAdmitted {
				t.Fatalf("expected ADMITTED status, got %s", got.State)
			}
			ok, err = store.IsAdmitted(ctx, 1, 7, t1)
			if err != nil {
				t.Fatalf("is admitted: %v", err)
			}
			if !ok {
				t.Fatal("fresh session must open the hold gate again")
			}
		})
	}
}

func TestRedisStore_StatusMissingPosition(t *testing.T) {
	t.Parallel()

	store, mr := newRedisTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	// admitted entry whose position record is gone, as after a partial
	// manual cleanup
	mr.HSet("adm:1:admitted", "7", strconv.FormatInt(now.Add(time.Minute).Unix(), 10))

	entry, found, err := store.Status(ctx, 1, 7, now)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !found || entry.State != stateAdmitted {
		t.Fatalf("expected ADMITTED, got found=%v state=%s", found, entry.State)
	}
	if entry.Position != 0 {
		t.Fatalf("expected zero position for missing record, got %d", entry.Position)
	}
}

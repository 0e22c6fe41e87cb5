package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onsale/ticketing/internal/lock"
)

// fakeLocker hands out at most one live lease per key, like the Redis
// implementation but in-process.
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquires int
	failWith error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (lock.Lease, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.failWith != nil {
		return nil, false, f.failWith
	}
	if f.held[key] {
		return nil, false, nil
	}
	f.held[key] = true
	return &fakeLease{locker: f, key: key}, true, nil
}

type fakeLease struct {
	locker *fakeLocker
	key    string
}

func (l *fakeLease) Release(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	delete(l.locker.held, l.key)
	return nil
}

func TestGuard_fire(t *testing.T) {
	t.Parallel()

	t.Run("runs the job under the lock and releases it", func(t *testing.T) {
		locker := newFakeLocker()
		g := NewGuard(locker, time.Minute)

		ran := 0
		g.fire(context.Background(), "sweep", func(ctx context.Context) error {
			ran++
			locker.mu.Lock()
			held := locker.held["job:sweep"]
			locker.mu.Unlock()
			if !held {
				t.Errorf("expected job to run while holding its lock")
			}
			return nil
		})

		if ran != 1 {
			t.Fatalf("expected 1 run, got %d", ran)
		}
		locker.mu.Lock()
		defer locker.mu.Unlock()
		if locker.held["job:sweep"] {
			t.Fatalf("expected lock released after the run")
		}
	})

	t.Run("skips the tick when another holder has the lock", func(t *testing.T) {
		locker := newFakeLocker()
		if _, ok, _ := locker.Acquire(context.Background(), "job:sweep", time.Minute); !ok {
			t.Fatalf("setup acquire failed")
		}

		g := NewGuard(locker, time.Minute)
		ran := 0
		g.fire(context.Background(), "sweep", func(ctx context.Context) error {
			ran++
			return nil
		})
		if ran != 0 {
			t.Fatalf("expected contended tick skipped, got %d runs", ran)
		}
	})

	t.Run("acquire errors skip the tick", func(t *testing.T) {
		locker := newFakeLocker()
		locker.failWith = errors.New("backend down")

		g := NewGuard(locker, time.Minute)
		ran := 0
		g.fire(context.Background(), "sweep", func(ctx context.Context) error {
			ran++
			return nil
		})
		if ran != 0 {
			t.Fatalf("expected errored tick skipped, got %d runs", ran)
		}
	})

	t.Run("job errors do not leak the lock", func(t *testing.T) {
		locker := newFakeLocker()
		g := NewGuard(locker, time.Minute)

		g.fire(context.Background(), "sweep", func(ctx context.Context) error {
			return errors.New("job failed")
		})
		locker.mu.Lock()
		defer locker.mu.Unlock()
		if locker.held["job:sweep"] {
			t.Fatalf("expected lock released after a failed run")
		}
	})
}

func TestGuard_RunExclusive(t *testing.T) {
	t.Parallel()

	t.Run("many instances, one job execution at a time", func(t *testing.T) {
		const instances = 4
		locker := newFakeLocker()

		var mu sync.Mutex
		running, maxRunning, total := 0, 0, 0
		job := func(ctx context.Context) error {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			running--
			total++
			mu.Unlock()
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		for i := 0; i < instances; i++ {
			g := NewGuard(locker, time.Minute)
			wg.Add(1)
			go func() {
				defer wg.Done()
				g.RunExclusive(ctx, "promote", time.Millisecond, job)
			}()
		}

		time.Sleep(50 * time.Millisecond)
		cancel()
		wg.Wait()

		mu.Lock()
		defer mu.Unlock()
		if total == 0 {
			t.Fatalf("expected the job to run at least once")
		}
		if maxRunning != 1 {
			t.Fatalf("expected at most one concurrent execution, got %d", maxRunning)
		}
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		g := NewGuard(newFakeLocker(), time.Minute)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan struct{})
		go func() {
			g.RunExclusive(ctx, "sweep", time.Millisecond, func(ctx context.Context) error { return nil })
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("expected RunExclusive to return after cancel")
		}
	})
}

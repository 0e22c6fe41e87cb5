// Package scheduler runs periodic maintenance jobs so that each job
// fires on at most one service instance per tick. Exclusivity comes
// from a cluster-wide lease: before a firing, the instance tries to
// take the job's lock; losing it means another instance is running the
// job and this tick is simply skipped. Jobs therefore get at-least-once
// execution across the cluster and must be idempotent – both the hold
// sweep and the queue promotion are.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/onsale/ticketing/internal/lock"
)

// Guard wraps job functions in cluster-exclusive scheduling.
type Guard struct {
	locker lock.Locker
	lease  time.Duration
}

// NewGuard constructs a Guard. lease is the lock duration per firing
// and should exceed the expected job runtime; a crashed holder's lease
// simply lapses and the next tick on any instance retries.
func NewGuard(locker lock.Locker, lease time.Duration) *Guard {
	return &Guard{locker: locker, lease: lease}
}

// RunExclusive fires fn every interval while ctx lives, skipping any
// tick whose lock another instance holds. It blocks; run it in its own
// goroutine. Job errors are logged, never fatal.
func (g *Guard) RunExclusive(ctx context.Context, jobName string, interval time.Duration, fn func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.fire(ctx, jobName, fn)
		}
	}
}

func (g *Guard) fire(ctx context.Context, jobName string, fn func(ctx context.Context) error) {
	lease, ok, err := g.locker.Acquire(ctx, "job:"+jobName, g.lease)
	if err != nil {
		log.Printf("scheduler: %s: acquire lock: %v", jobName, err)
		return
	}
	if !ok {
		// Another instance holds the tick. Expected steady state under
		// multi-instance deployment, not worth logging.
		return
	}
	defer func() {
		if err := lease.Release(ctx); err != nil {
			log.Printf("scheduler: %s: release lock: %v", jobName, err)
		}
	}()

	if err := fn(ctx); err != nil {
		log.Printf("scheduler: %s: %v", jobName, err)
	}
}

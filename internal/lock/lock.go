// Package lock provides a cluster-wide lease lock keyed by a string.
// A lease is not a mutex: it auto-expires after its TTL, so a crashed
// holder never wedges the cluster. Release is guarded by an owner token
// so a holder whose lease already lapsed cannot delete somebody else's
// lock.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker acquires leases. The Redis implementation below is the one
// used in production; tests substitute in-process fakes.
type Locker interface {
	// Acquire attempts to take the lease for key. It returns
	// (lease, true, nil) on success and (nil, false, nil) when another
	// owner currently holds the key – contention is an expected
	// outcome, not an error.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error)
}

// Lease is a held lock. Release is safe to call after the lease has
// expired; it simply does nothing.
type Lease interface {
	Release(ctx context.Context) error
}

// releaseScript deletes the key only while we still own it. Without the
// ownership check a slow job could release the lease a faster instance
// already re-acquired.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker implements Locker on a shared Redis instance using
// SET NX PX for acquisition and a compare-and-delete script for release.
type RedisLocker struct {
	rdb *redis.Client
}

// NewRedisLocker returns a Locker backed by the provided Redis client.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

// Acquire sets the key to a fresh owner token if and only if it is
// currently unset, with the TTL as the lease duration.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	owner := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{rdb: l.rdb, key: key, owner: owner}, true, nil
}

type redisLease struct {
	rdb   *redis.Client
	key   string
	owner string
}

func (l *redisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.owner).Err()
}

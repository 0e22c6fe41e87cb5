package admission

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a shared Redis instance so every
// service instance sees the same queue. Layout per event:
//
//	adm:{event}:pos      counter assigning monotonic queue positions
//	adm:{event}:waiting  ZSET of waiting holders, score = position
//	adm:{event}:admitted HASH holder -> unix expiry of the session
//	adm:{event}:posn     HASH holder -> assigned position
//	adm:{event}:consumed SET of holders who entered seat selection
//
// Multi-step transitions run as Lua scripts so they are atomic with
// respect to concurrent callers on other instances.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a Store backed by the provided Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

const (
	stateWaiting  = "WAITING"
	stateAdmitted = "ADMITTED"
)

func keys(eventID uint64) (waiting, admitted, posn, consumed, counter string) {
	p := fmt.Sprintf("adm:%d", eventID)
	return p + ":waiting", p + ":admitted", p + ":posn", p + ":consumed", p + ":pos"
}

// enqueueScript registers a holder. Re-enqueueing an already queued or
// admitted holder returns the existing entry, so retries cannot burn
// queue positions. Counting live admitted sessions tolerates expired
// leftovers: they only defer admission until the next promote, never
// break the cap.
//
// KEYS: waiting zset, admitted hash, posn hash, counter, consumed set
// ARGV: holder, now (unix), cap, session ttl (seconds)
// Returns {state, position, rank-or-expiry}.
var enqueueScript = redis.NewScript(`
    local holder = ARGV[1]
    local now = tonumber(ARGV[2])
    local cap = tonumber(ARGV[3])
    local ttl = tonumber(ARGV[4])

    local exp = redis.call('HGET', KEYS[2], holder)
    if exp then
        if tonumber(exp) > now then
            return { 'ADMITTED', redis.call('HGET', KEYS[3], holder), exp }
        end
        redis.call('HDEL', KEYS[2], holder)
        redis.call('SREM', KEYS[5], holder)
    end

    local score = redis.call('ZSCORE', KEYS[1], holder)
    if score then
        return { 'WAITING', score, redis.call('ZRANK', KEYS[1], holder) }
    end

    local pos = redis.call('INCR', KEYS[4])
    redis.call('HSET', KEYS[3], holder, pos)

    local live = 0
    local all = redis.call('HGETALL', KEYS[2])
    for i = 2, #all, 2 do
        if tonumber(all[i]) > now then live = live + 1 end
    end

    if live < cap then
        local deadline = now + ttl
        redis.call('SREM', KEYS[5], holder)
        redis.call('HSET', KEYS[2], holder, deadline)
        return { 'ADMITTED', pos, deadline }
    end

    redis.call('ZADD', KEYS[1], pos, holder)
    return { 'WAITING', pos, redis.call('ZRANK', KEYS[1], holder) }
`)

// promoteScript prunes expired admitted sessions and pops the
// longest-waiting holders into the freed slots, FIFO by position score.
//
// KEYS: waiting zset, admitted hash, posn hash, consumed set
// ARGV: now (unix), cap, session ttl (seconds)
// Returns the number of holders admitted.
var promoteScript = redis.NewScript(`
    local now = tonumber(ARGV[1])
    local cap = tonumber(ARGV[2])
    local ttl = tonumber(ARGV[3])

    local all = redis.call('HGETALL', KEYS[2])
    for i = 1, #all, 2 do
        if tonumber(all[i+1]) <= now then
            redis.call('HDEL', KEYS[2], all[i])
            redis.call('HDEL', KEYS[3], all[i])
            redis.call('SREM', KEYS[4], all[i])
        end
    end

    local free = cap - redis.call('HLEN', KEYS[2])
    local promoted = 0
    while free > 0 do
        local z = redis.call('ZPOPMIN', KEYS[1])
        if #z == 0 then break end
        redis.call('HSET', KEYS[2], z[1], now + ttl)
        promoted = promoted + 1
        free = free - 1
    end
    return promoted
`)

func holderField(holderID uint64) string { return strconv.FormatUint(holderID, 10) }

func (s *RedisStore) Enqueue(ctx context.Context, eventID, holderID uint64, cap int, sessionTTL time.Duration, now time.Time) (Entry, error) {
	waiting, admitted, posn, consumed, counter := keys(eventID)
	vals, err := enqueueScript.Run(ctx, s.rdb,
		[]string{waiting, admitted, posn, counter, consumed},
		holderField(holderID), now.Unix(), cap, int64(sessionTTL/time.Second),
	).Slice()
	if err != nil {
		return Entry{}, err
	}
	return parseEntry(vals)
}

// parseEntry decodes the {state, position, rank-or-expiry} tuple that
// enqueueScript returns.
func parseEntry(vals []interface{}) (Entry, error) {
	if len(vals) != 3 {
		return Entry{}, fmt.Errorf("admission: unexpected script result: %#v", vals)
	}
	state := fmt.Sprint(vals[0])
	pos, err := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("admission: bad position in script result: %w", err)
	}
	third, err := strconv.ParseInt(fmt.Sprint(vals[2]), 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("admission: bad tail in script result: %w", err)
	}
	e := Entry{State: state, Position: pos}
	if state == stateAdmitted {
		e.ExpiresAt = time.Unix(third, 0).UTC()
	} else {
		e.Ahead = third
	}
	return e, nil
}

func (s *RedisStore) Status(ctx context.Context, eventID, holderID uint64, now time.Time) (Entry, bool, error) {
	waiting, admitted, posn, _, _ := keys(eventID)
	holder := holderField(holderID)

	expStr, err := s.rdb.HGet(ctx, admitted, holder).Result()
	if err != nil && err != redis.Nil {
		return Entry{}, false, err
	}
	if err == nil {
		exp, convErr := strconv.ParseInt(expStr, 10, 64)
		if convErr != nil {
			return Entry{}, false, fmt.Errorf("admission: bad expiry for holder %s: %w", holder, convErr)
		}
		if exp > now.Unix() {
			pos, posErr := s.rdb.HGet(ctx, posn, holder).Int64()
			if posErr != nil && posErr != redis.Nil {
				return Entry{}, false, posErr
			}
			return Entry{State: stateAdmitted, Position: pos, ExpiresAt: time.Unix(exp, 0).UTC()}, true, nil
		}
		// session lapsed but not yet pruned; fall through in case the
		// holder re-enqueued into the waiting pool
	}

	score, err := s.rdb.ZScore(ctx, waiting, holder).Result()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	rank, err := s.rdb.ZRank(ctx, waiting, holder).Result()
	if err != nil && err != redis.Nil {
		return Entry{}, false, err
	}
	return Entry{State: stateWaiting, Position: int64(score), Ahead: rank}, true, nil
}

func (s *RedisStore) Release(ctx context.Context, eventID, holderID uint64) error {
	waiting, admitted, posn, consumed, _ := keys(eventID)
	holder := holderField(holderID)
	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, waiting, holder)
	pipe.HDel(ctx, admitted, holder)
	pipe.HDel(ctx, posn, holder)
	pipe.SRem(ctx, consumed, holder)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Consume(ctx context.Context, eventID, holderID uint64) error {
	_, _, _, consumed, _ := keys(eventID)
	return s.rdb.SAdd(ctx, consumed, holderField(holderID)).Err()
}

func (s *RedisStore) IsAdmitted(ctx context.Context, eventID, holderID uint64, now time.Time) (bool, error) {
	_, admitted, _, consumed, _ := keys(eventID)
	holder := holderField(holderID)

	expStr, err := s.rdb.HGet(ctx, admitted, holder).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return false, fmt.Errorf("admission: bad expiry: %w", err)
	}
	if exp <= now.Unix() {
		return false, nil
	}
	// A consumed session keeps its slot but buys no further holds.
	used, err := s.rdb.SIsMember(ctx, consumed, holder).Result()
	if err != nil {
		return false, err
	}
	return !used, nil
}

func (s *RedisStore) Promote(ctx context.Context, eventID uint64, cap int, sessionTTL time.Duration, now time.Time) (int, error) {
	waiting, admitted, posn, consumed, _ := keys(eventID)
	n, err := promoteScript.Run(ctx, s.rdb,
		[]string{waiting, admitted, posn, consumed},
		now.Unix(), cap, int64(sessionTTL/time.Second),
	).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}

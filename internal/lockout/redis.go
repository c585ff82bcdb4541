package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/redis/go-redis/v9"
)

// recordFailureScript adds a failure to a sorted set scored by time unless
// a lock is active. KEYS[1] failures, KEYS[2] lock, KEYS[3] member sequence.
// ARGV: now ms, window start ms, window ms, threshold, lock duration ms.
// Returns {locked, remaining ms, failures}.
var recordFailureScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[2])
if ttl > 0 then
	return {1, ttl, redis.call('ZCARD', KEYS[1])}
end
local threshold = tonumber(ARGV[4])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[1] .. ':' .. seq)
redis.call('ZREMRANGEBYRANK', KEYS[1], 0, -(threshold + 1))
local n = redis.call('ZCARD', KEYS[1])
if n >= threshold then
	redis.call('SET', KEYS[2], '1', 'PX', ARGV[5])
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
	redis.call('PEXPIRE', KEYS[3], ARGV[5])
	return {1, tonumber(ARGV[5]), n}
end
redis.call('PEXPIRE', KEYS[1], ARGV[3])
redis.call('PEXPIRE', KEYS[3], ARGV[3])
return {0, 0, n}
`)

// lockStateScript counts failures still inside the window; a locked
// identifier reports its frozen count. ARGV: window start ms.
var lockStateScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[2])
if ttl > 0 then
	return {1, ttl, redis.call('ZCARD', KEYS[1])}
end
return {0, 0, redis.call('ZCOUNT', KEYS[1], '(' .. ARGV[1], '+inf')}
`)

// RedisStore keeps lockout state in Redis so that several API instances
// share it. All keys of an identifier carry the same hash tag, so each
// script touches a single cluster slot.
type RedisStore struct {
	client redis.UniversalClient
	policy Policy
	prefix string
	now    func() time.Time
}

// RedisOption configures a RedisStore
type RedisOption func(*RedisStore)

// WithRedisClock replaces time.Now as the source of failure timestamps
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		s.now = now
	}
}

// NewRedisStore creates a Redis-backed Store
func NewRedisStore(client redis.UniversalClient, policy Policy, prefix string, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		policy: policy,
		prefix: prefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) keys(identifier string) []string {
	base := s.prefix + "{" + identifier + "}"
	return []string{base + ":failures", base + ":lock", base + ":seq"}
}

// GetLockState reports whether identifier is locked
func (s *RedisStore) GetLockState(ctx context.Context, identifier string) (models.LockState, error) {
	res, err := lockStateScript.Run(ctx, s.client, s.keys(identifier),
		s.now().Add(-s.policy.Window).UnixMilli(),
	).Int64Slice()
	if err != nil {
		return models.LockState{}, fmt.Errorf("failed to read lock state: %w", err)
	}
	return parseLockState(res)
}

// RecordFailure counts a failure and locks identifier once Threshold
// failures fall inside the rolling window
func (s *RedisStore) RecordFailure(ctx context.Context, identifier string) (models.LockState, error) {
	now := s.now()
	res, err := recordFailureScript.Run(ctx, s.client, s.keys(identifier),
		now.UnixMilli(),
		now.Add(-s.policy.Window).UnixMilli(),
		s.policy.Window.Milliseconds(),
		s.policy.Threshold,
		s.policy.Duration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return models.LockState{}, fmt.Errorf("failed to record login failure: %w", err)
	}
	return parseLockState(res)
}

// Clear forgets identifier. Clearing an unknown identifier is a no-op.
func (s *RedisStore) Clear(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, s.keys(identifier)...).Err(); err != nil {
		return fmt.Errorf("failed to clear lockout: %w", err)
	}
	return nil
}

func parseLockState(res []int64) (models.LockState, error) {
	if len(res) != 3 {
		return models.LockState{}, fmt.Errorf("unexpected lockout script reply: %v", res)
	}
	return models.LockState{
		Locked:    res[0] == 1,
		Remaining: time.Duration(res[1]) * time.Millisecond,
		Failures:  int(res[2]),
	}, nil
}

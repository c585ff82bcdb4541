package lockout

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/cespare/xxhash/v2"
)

const defaultShardCount = 64

// entry holds the times of the most recent failures, oldest first, capped
// at the policy threshold
type entry struct {
	failures    []time.Time
	lockedUntil time.Time
}

func (e *entry) locked(now time.Time) bool {
	return !e.lockedUntil.IsZero() && now.Before(e.lockedUntil)
}

// prune drops failures that fell out of the rolling window
func (e *entry) prune(now time.Time, window time.Duration) {
	i := 0
	for i < len(e.failures) && now.Sub(e.failures[i]) >= window {
		i++
	}
	e.failures = e.failures[i:]
}

// expired reports whether the entry no longer carries any state
func (e *entry) expired(now time.Time, window time.Duration) bool {
	if !e.lockedUntil.IsZero() {
		return !now.Before(e.lockedUntil)
	}
	return len(e.failures) == 0 || now.Sub(e.failures[len(e.failures)-1]) >= window
}

func (e *entry) state(now time.Time) models.LockState {
	s := models.LockState{Failures: len(e.failures)}
	if e.locked(now) {
		s.Locked = true
		s.Remaining = e.lockedUntil.Sub(now)
	}
	return s
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// MemoryStore keeps lockout state in process memory. Identifiers are
// spread over independently locked shards.
type MemoryStore struct {
	policy Policy
	shards []*shard
	now    func() time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// WithShards sets the shard count
func WithShards(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shards = newShards(n)
		}
	}
}

// NewMemoryStore creates an in-memory Store
func NewMemoryStore(policy Policy, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		policy: policy,
		shards: newShards(defaultShardCount),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return shards
}

func (s *MemoryStore) shardFor(identifier string) *shard {
	return s.shards[xxhash.Sum64String(identifier)%uint64(len(s.shards))]
}

// live returns the entry for identifier, dropping it if it has expired.
// Failures of an unlocked entry are pruned to the window; a locked entry
// keeps its count frozen until the lock lapses. Caller must hold sh.mu.
func (s *MemoryStore) live(sh *shard, identifier string, now time.Time) *entry {
	e, ok := sh.entries[identifier]
	if !ok {
		return nil
	}
	if e.expired(now, s.policy.Window) {
		delete(sh.entries, identifier)
		return nil
	}
	if !e.locked(now) {
		e.prune(now, s.policy.Window)
	}
	return e
}

// GetLockState reports whether identifier is locked. It never fails.
func (s *MemoryStore) GetLockState(_ context.Context, identifier string) (models.LockState, error) {
	sh := s.shardFor(identifier)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := s.live(sh, identifier, now)
	if e == nil {
		return models.LockState{}, nil
	}
	return e.state(now), nil
}

// RecordFailure counts a failure and locks identifier once Threshold
// failures fall inside the rolling window
func (s *MemoryStore) RecordFailure(_ context.Context, identifier string) (models.LockState, error) {
	sh := s.shardFor(identifier)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := s.live(sh, identifier, now)
	if e == nil {
		e = &entry{}
		sh.entries[identifier] = e
	}

	// an active lock is neither extended nor shortened
	if e.locked(now) {
		return e.state(now), nil
	}

	e.failures = append(e.failures, now)
	if n := len(e.failures) - s.policy.Threshold; n > 0 {
		e.failures = e.failures[n:]
	}
	if len(e.failures) >= s.policy.Threshold {
		e.lockedUntil = now.Add(s.policy.Duration)
	}

	return e.state(now), nil
}

// Clear forgets identifier. Clearing an unknown identifier is a no-op.
func (s *MemoryStore) Clear(_ context.Context, identifier string) error {
	sh := s.shardFor(identifier)

	sh.mu.Lock()
	delete(sh.entries, identifier)
	sh.mu.Unlock()

	return nil
}

// Sweep evicts every expired entry and returns how many were removed
func (s *MemoryStore) Sweep(_ context.Context) (int64, error) {
	now := s.now()
	var removed int64

	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, e := range sh.entries {
			if e.expired(now, s.policy.Window) {
				delete(sh.entries, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}

	return removed, nil
}

// Len returns the number of tracked identifiers, expired or not
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

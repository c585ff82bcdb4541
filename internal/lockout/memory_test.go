package lockout_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/lockout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock safe for concurrent reads
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testPolicy() lockout.Policy {
	return lockout.Policy{
		Threshold: 5,
		Window:    10 * time.Minute,
		Duration:  30 * time.Minute,
	}
}

func TestMemoryStore_UnknownIdentifierIsUnlocked(t *testing.T) {
	store := lockout.NewMemoryStore(testPolicy())

	state, err := store.GetLockState(context.Background(), "nobody")

	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Zero(t, state.Remaining)
	assert.Zero(t, state.Failures)
}

func TestMemoryStore_LocksAtThreshold(t *testing.T) {
	clock := newFakeClock()
	store := lockout.NewMemoryStore(testPolicy(), lockout.WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		state, err := store.RecordFailure(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, state.Locked)
		clock.Advance(20 * time.Second)
	}

	state, err := store.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, state.Locked)
	assert.Equal(t, 30*time.Minute, state.Remaining)

	state, err = store.GetLockState(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, state.Locked)
	assert.Equal(t, 30, state.RemainingMinutes())
	assert.Equal(t, 5, state.Failures)
}

func TestMemoryStore_FailuresWhileLockedDoNotMoveExpiry(t *testing.T) {
	clock := newFakeClock()
	store := lockout.NewMemoryStore(testPolicy(), lockout.WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = store.RecordFailure(ctx, "alice")
	}

	clock.Advance(10 * time.Minute)
	state, err := store.RecordFailure(ctx, "alice")
	require.NoError(t, err)

	assert.True(t, state.Locked)
	assert.Equal(t, 20*time.Minute, state.Remaining)
	assert.Equal(t, 5, state.Failures)
}

func TestMemoryStore_LockExpires(t *testing.T) {
	clock := newFakeClock()
	store := lockout.NewMemoryStore(testPolicy(), lockout.WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = store.RecordFailure(ctx, "alice")
	}

	clock.Advance(30 * time.Minute)

	state, err := store.GetLockState(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Zero(t, state.Failures)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_WindowLapseResetsCounter(t *testing.T) {
	clock := newFakeClock()
	store := lockout.NewMemoryStore(testPolicy(), lockout.WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = store.RecordFailure(ctx, "dave")
	}

	clock.Advance(11 * time.Minute)

	state, err := store.RecordFailure(ctx, "dave")
	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Equal(t, 1, state.Failures)
}

// failures straddling the point where a fixed window would reset still lock
func TestMemoryStore_RollingWindowLocksAcrossBoundary(t *testing.T) {
	clock := newFakeClock()
	store := lockout.NewMemoryStore(testPolicy(), lockout.WithClock(clock.Now))
	ctx := context.Background()

	_, _ = store.RecordFailure(ctx, "alice")
	clock.Advance(9 * time.Minute)

	for i := 0; i < 3; i++ {
		state, err := store.RecordFailure(ctx, "alice")
		require.NoError(t, err)
		require.False(t, state.Locked)
		clock.Advance(20 * time.Second)
	}

	// t=10m: the first failure has aged out, three recent ones remain
	state, err := store.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Equal(t, 4, state.Failures)

	clock.Advance(20 * time.Second)
	state, err = store.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, state.Locked)
	assert.Equal(t, 30*time.Minute, state.Remaining)
}

func TestMemoryStore_SpreadOutFailuresNeverLock(t *testing.T) {
	clock := newFakeClock()
	store := lockout.NewMemoryStore(testPolicy(), lockout.WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		state, err := store.RecordFailure(ctx, "bob")
		require.NoError(t, err)
		require.False(t, state.Locked, "failure %d", i+1)
		assert.LessOrEqual(t, state.Failures, 4)
		clock.Advance(2*time.Minute + 30*time.Second)
	}
}

func TestMemoryStore_ClearIsIdempotent(t *testing.T) {
	store := lockout.NewMemoryStore(testPolicy())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = store.RecordFailure(ctx, "alice")
	}

	require.NoError(t, store.Clear(ctx, "alice"))
	require.NoError(t, store.Clear(ctx, "alice"))

	state, err := store.GetLockState(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Zero(t, state.Failures)
}

func TestMemoryStore_IdentifiersAreIndependent(t *testing.T) {
	store := lockout.NewMemoryStore(testPolicy())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = store.RecordFailure(ctx, "alice")
	}

	state, err := store.GetLockState(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Zero(t, state.Failures)
}

func TestMemoryStore_ConcurrentFailuresAreNotLost(t *testing.T) {
	policy := testPolicy()
	policy.Threshold = 1000
	store := lockout.NewMemoryStore(policy, lockout.WithShards(4))
	ctx := context.Background()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, _ = store.RecordFailure(ctx, "carol")
			}
		}()
	}
	wg.Wait()

	state, err := store.GetLockState(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, state.Failures)
}

func TestMemoryStore_ClearRacingFailuresStaysConsistent(t *testing.T) {
	store := lockout.NewMemoryStore(testPolicy())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.RecordFailure(ctx, "erin")
		}()
		go func() {
			defer wg.Done()
			_ = store.Clear(ctx, "erin")
		}()
	}
	wg.Wait()

	require.NoError(t, store.Clear(ctx, "erin"))
	state, err := store.GetLockState(ctx, "erin")
	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Zero(t, state.Failures)
}

func TestMemoryStore_SweepRemovesExpiredEntries(t *testing.T) {
	clock := newFakeClock()
	store := lockout.NewMemoryStore(testPolicy(), lockout.WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _ = store.RecordFailure(ctx, fmt.Sprintf("user-%d", i))
	}
	for i := 0; i < 5; i++ {
		_, _ = store.RecordFailure(ctx, "locked-user")
	}
	require.Equal(t, 11, store.Len())

	clock.Advance(15 * time.Minute)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), removed)
	assert.Equal(t, 1, store.Len())
}

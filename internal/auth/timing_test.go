package auth_test

import (
	"testing"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_Wait_OnFailure(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50, RandomDelayMs: 20})
	startTime := time.Now()

	timing.Wait(false)

	elapsed := time.Since(startTime)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestTimingDelay_Wait_OnSuccess_NoDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 200, RandomDelayMs: 50})
	startTime := time.Now()

	timing.Wait(true)

	assert.Less(t, time.Since(startTime), 50*time.Millisecond)
}

func TestTimingDelay_Wait_OnSuccess_WithDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50, DelayOnSuccess: true})
	startTime := time.Now()

	timing.Wait(true)

	assert.GreaterOrEqual(t, time.Since(startTime), 50*time.Millisecond)
}

func TestTimingDelay_WaitFrom_CountsElapsedWork(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 100})
	startTime := time.Now()

	time.Sleep(50 * time.Millisecond)
	timing.WaitFrom(startTime, false)

	elapsed := time.Since(startTime)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 250*time.Millisecond)
}

func TestTimingDelay_WaitFrom_NoWaitIfAlreadyExceeded(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 20})
	startTime := time.Now().Add(-time.Second)

	before := time.Now()
	timing.WaitFrom(startTime, false)

	assert.Less(t, time.Since(before), 20*time.Millisecond)
}

func TestTimingDelay_ZeroConfig_IsNoop(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{})
	before := time.Now()

	timing.Wait(false)

	assert.Less(t, time.Since(before), 20*time.Millisecond)
}

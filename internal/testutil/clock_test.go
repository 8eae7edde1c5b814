package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMillisClock_StartsAtStart(t *testing.T) {
	clock := NewMillisClock(1000, 10)
	assert.Equal(t, int64(1000), clock.Current())
}

func TestMillisClock_AdvancesByStep(t *testing.T) {
	clock := NewMillisClock(1000, 10)

	assert.Equal(t, int64(1010), clock.NowMillis())
	assert.Equal(t, int64(1020), clock.NowMillis())
	assert.Equal(t, int64(1020), clock.Current())
}

func TestMillisClock_NonPositiveStepIsOne(t *testing.T) {
	clock := NewMillisClock(0, 0)
	assert.Equal(t, int64(1), clock.NowMillis())
	assert.Equal(t, int64(2), clock.NowMillis())
}

func TestMillisClock_SetAndReset(t *testing.T) {
	clock := NewMillisClock(100, 1)
	clock.NowMillis()

	clock.Set(5000)
	assert.Equal(t, int64(5001), clock.NowMillis())

	clock.Reset()
	assert.Equal(t, int64(100), clock.Current())
	assert.Equal(t, int64(101), clock.NowMillis())
}

func TestMillisClock_ThreadSafe(t *testing.T) {
	clock := NewMillisClock(0, 1)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				v := clock.NowMillis()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), clock.Current())
}

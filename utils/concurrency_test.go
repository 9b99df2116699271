package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDSetNoDuplicates(t *testing.T) {
	s := NewIDSet()

	assert.True(t, s.Add("123"), "first Add should return true")
	assert.False(t, s.Add("123"), "second Add of same ID should return false")
	assert.True(t, s.Contains("123"))
	assert.False(t, s.Contains("456"))
	assert.Equal(t, 1, s.Size())
}

func TestIDSetConcurrency(t *testing.T) {
	s := NewIDSet()
	var added int64

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("same") {
				atomic.AddInt64(&added, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), added)
}

func TestPageLimiterSpacing(t *testing.T) {
	interval := 50 * time.Millisecond
	lim := NewPageLimiter(interval)
	ctx := context.Background()

	var stamps []time.Time
	for i := 0; i < 3; i++ {
		require.NoError(t, lim.Wait(ctx))
		stamps = append(stamps, time.Now())
	}

	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		// allow a little scheduler slack below the nominal interval
		assert.GreaterOrEqual(t, gap, interval-10*time.Millisecond, "gap between wait %d and %d", i-1, i)
	}
}

func TestPageLimiterDisabled(t *testing.T) {
	lim := NewPageLimiter(0)
	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, lim.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

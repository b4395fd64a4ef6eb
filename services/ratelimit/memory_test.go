package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	now := time.Date(2021, 1, 10, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.nowFunc = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("login:10.0.0.1"), "hit %d", i+1)
	}
	assert.False(t, l.Allow("login:10.0.0.1"))
	assert.True(t, l.Allow("login:10.0.0.2"), "keys are counted separately")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, l.Allow("login:10.0.0.1"), "new window")
}

func TestMemoryLimiter_Disabled(t *testing.T) {
	l := NewMemoryLimiter(0, time.Minute)
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("k"))
	}
	assert.True(t, NewMemoryLimiter(1, time.Minute).Allow(""), "empty keys are never limited")
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	l := NewMemoryLimiter(50, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("submit") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

package data

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestDedupCache_ReserveAndExpire(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := newDedupCache(5*time.Minute, clock.Now)

	assert.False(t, c.Seen("a"))
	assert.True(t, c.Reserve("a"))
	assert.True(t, c.Seen("a"))
	assert.False(t, c.Reserve("a"))

	clock.Advance(5 * time.Minute)
	assert.False(t, c.Seen("a"), "entry expires at its TTL")
	assert.True(t, c.Reserve("a"))

	c.Release("a")
	assert.False(t, c.Seen("a"))
}

func TestDedupCache_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := newDedupCache(time.Minute, clock.Now)

	c.Reserve("old")
	clock.Advance(30 * time.Second)
	c.Reserve("new")
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Seen("new"))
}

func TestDedupCache_ConcurrentReserve(t *testing.T) {
	c := newDedupCache(time.Minute, time.Now)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Reserve("same") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

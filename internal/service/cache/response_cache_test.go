package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	applogger "PillarCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache() (*ResponseCache, *manualClock) {
	clk := &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewResponseCache(NewTTLCache(WithNow(clk.Now)), applogger.Nop()), clk
}

func TestGetOrFetchHitWithinTTL(t *testing.T) {
	c, clk := newTestCache()
	var calls int32
	fetch := func(context.Context) (map[string]float64, error) {
		n := atomic.AddInt32(&calls, 1)
		return map[string]float64{"rsi": 61.5, "call": float64(n)}, nil
	}

	first, err := GetOrFetch(context.Background(), c, "binance:klines", time.Minute, fetch)
	require.NoError(t, err)
	clk.Advance(59 * time.Second)
	second, err := GetOrFetch(context.Background(), c, "binance:klines", time.Minute, fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetOrFetchRefetchesAfterExpiry(t *testing.T) {
	c, clk := newTestCache()
	var calls int32
	fetch := func(context.Context) (map[string]float64, error) {
		n := atomic.AddInt32(&calls, 1)
		return map[string]float64{"call": float64(n)}, nil
	}

	_, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	got, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
	require.NoError(t, err)

	assert.Equal(t, 2.0, got["call"])
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache()
	boom := errors.New("provider down")
	var calls int32
	fetch := func(context.Context) (map[string]float64, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return map[string]float64{"ok": 1}, nil
	}

	_, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
	require.ErrorIs(t, err, boom)

	got, err := GetOrFetch(context.Background(), c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got["ok"])
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGetOrFetchDeduplicatesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache()
	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (map[string]float64, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return map[string]float64{"v": 42}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]map[string]float64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrFetch(context.Background(), c, "same", time.Minute, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, 42.0, r["v"])
	}
}

func TestObserverSeesHitsAndMisses(t *testing.T) {
	c, _ := newTestCache()
	var hits, misses int
	c.SetObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})
	fetch := func(context.Context) (int, error) { return 7, nil }

	for i := 0; i < 3; i++ {
		_, err := GetOrFetch(context.Background(), c, "n", time.Minute, fetch)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
}

func TestGetOrFetchZeroTTLDisablesCaching(t *testing.T) {
	c, clk := newTestCache()
	var calls int32
	fetch := func(context.Context) (map[string]float64, error) {
		n := atomic.AddInt32(&calls, 1)
		return map[string]float64{"call": float64(n)}, nil
	}

	_, err := GetOrFetch(context.Background(), c, "k", 0, fetch)
	require.NoError(t, err)
	clk.Advance(24 * time.Hour)
	got, err := GetOrFetch(context.Background(), c, "k", 0, fetch)
	require.NoError(t, err)

	assert.Equal(t, 2.0, got["call"])
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	_, ok, err := c.store.GetBytes(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok, "nothing stored when caching is disabled")
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	clk := &manualClock{now: time.Unix(0, 0)}
	c := NewTTLCache(WithNow(clk.Now))
	require.NoError(t, c.SetBytes(context.Background(), "k", []byte("v"), 0))
	clk.Advance(24 * time.Hour)
	b, ok, err := c.GetBytes(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)
}

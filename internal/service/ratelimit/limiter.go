package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow is the rolling admission window.
	DefaultWindow = 60 * time.Second
	// DefaultQuota applies to providers without an explicit quota.
	DefaultQuota = 100

	epsilon = 10 * time.Millisecond
)

// Clock abstracts time so tests can drive the limiter with a simulated clock.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// WaitObserver is told how long a caller waited for a slot.
type WaitObserver func(provider string, waited time.Duration)

// Option configures Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithWindow overrides the 60s window.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithQuota sets the per-window quota of one provider.
func WithQuota(provider string, quota int) Option {
	return func(l *Limiter) {
		if quota > 0 {
			l.quotas[provider] = quota
		}
	}
}

// WithDefaultQuota sets the quota for unconfigured providers.
func WithDefaultQuota(quota int) Option {
	return func(l *Limiter) {
		if quota > 0 {
			l.defaultQuota = quota
		}
	}
}

// WithWaitObserver registers a callback invoked after every blocking acquire.
func WithWaitObserver(fn WaitObserver) Option {
	return func(l *Limiter) { l.observe = fn }
}

// Limiter is a sliding-window admission controller keyed by provider.
// Each provider keeps the ordered timestamps of its admitted calls.
type Limiter struct {
	mu           sync.Mutex
	m            map[string][]time.Time
	quotas       map[string]int
	defaultQuota int
	window       time.Duration
	clock        Clock
	observe      WaitObserver
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		m:            make(map[string][]time.Time),
		quotas:       make(map[string]int),
		defaultQuota: DefaultQuota,
		window:       DefaultWindow,
		clock:        realClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until provider has a free slot in the window or ctx is done.
func (l *Limiter) Acquire(ctx context.Context, provider string) error {
	start := l.clock.Now()
	waited := false
	for {
		wait, ok := l.TryAcquire(provider)
		if ok {
			if waited && l.observe != nil {
				l.observe(provider, l.clock.Now().Sub(start))
			}
			return nil
		}
		waited = true
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(wait):
		}
	}
}

// TryAcquire admits a call if possible. Otherwise it returns how long the
// caller should wait before the oldest call leaves the window.
func (l *Limiter) TryAcquire(provider string) (time.Duration, bool) {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	calls := evict(l.m[provider], now.Add(-l.window))
	if len(calls) >= l.quota(provider) {
		l.m[provider] = calls
		return l.window - now.Sub(calls[0]) + epsilon, false
	}
	l.m[provider] = append(calls, now)
	return 0, true
}

// InWindow returns the number of calls admitted within the current window.
func (l *Limiter) InWindow(provider string) int {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	calls := evict(l.m[provider], now.Add(-l.window))
	l.m[provider] = calls
	return len(calls)
}

func (l *Limiter) quota(provider string) int {
	if q, ok := l.quotas[provider]; ok {
		return q
	}
	return l.defaultQuota
}

// evict drops timestamps at or before cutoff. calls is sorted ascending.
func evict(calls []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return calls
	}
	return append(calls[:0], calls[i:]...)
}

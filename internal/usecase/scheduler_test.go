package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	applogger "PillarCast/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler("test", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, true, applogger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestSchedulerNeverOverlaps(t *testing.T) {
	var active, maxActive atomic.Int32
	s := NewScheduler("slow", 5*time.Millisecond, func(ctx context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		active.Add(-1)
		return errors.New("logged, not fatal")
	}, false, applogger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Equal(t, int32(0), active.Load(), "Start waits for the run in progress")
}

func TestTickSkipsWhileRunning(t *testing.T) {
	s := NewScheduler("x", time.Hour, func(context.Context) error { return nil }, false, applogger.Nop())
	s.running.Lock()
	assert.False(t, s.tick(context.Background()))
	s.running.Unlock()
	assert.True(t, s.tick(context.Background()))
}

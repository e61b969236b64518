package usecase

import (
	"context"
	"sync"
	"time"

	applogger "PillarCast/pkg/logger"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Scheduler runs a job on a fixed interval. Ticks arriving while the job
// is still running are skipped, so runs never overlap.
type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
	runNow   bool
	running  sync.Mutex
	inflight sync.WaitGroup
	l        *applogger.Logger
}

func NewScheduler(name string, interval time.Duration, job Job, runImmediately bool, l *applogger.Logger) *Scheduler {
	return &Scheduler{name: name, interval: interval, job: job, runNow: runImmediately, l: l}
}

// Start blocks until ctx is cancelled and any run in progress has returned.
func (s *Scheduler) Start(ctx context.Context) {
	defer s.inflight.Wait()
	if s.runNow {
		s.tick(ctx)
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.inflight.Add(1)
			go func() {
				defer s.inflight.Done()
				s.tick(ctx)
			}()
		}
	}
}

// tick runs the job unless a previous run is still in progress.
func (s *Scheduler) tick(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.l.Warn("previous run still in progress, skipping tick", applogger.String("job", s.name))
		return false
	}
	defer s.running.Unlock()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.l.Error("scheduled job failed", applogger.String("job", s.name), applogger.Error(err))
		return true
	}
	s.l.Debug("scheduled job done", applogger.String("job", s.name), applogger.Duration("took", time.Since(start)))
	return true
}

// Package scheduler runs jobs at fixed wall-clock times or intervals in a
// configured location, with a reentrancy guard so a slow run is never
// stacked on top of itself.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cofure/cofure/pkg/logger"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Job is scheduled work. The context is the scheduler's run context.
type Job func(ctx context.Context)

// Scheduler fires registered jobs in its location's wall-clock time.
type Scheduler struct {
	loc   *time.Location
	clock Clock
	log   logger.Logger
	wg    sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// New creates a scheduler firing in loc's wall-clock time.
func New(loc *time.Location, log logger.Logger, options ...Option) *Scheduler {
	s := &Scheduler{
		loc:   loc,
		clock: systemClock{},
		log:   log,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// Daily fires job once a day at hour:minute in the scheduler's location.
// If a previous run is still in progress when the time arrives, the run is
// skipped and logged, then the next day's occurrence is awaited.
func (s *Scheduler) Daily(ctx context.Context, name string, hour, minute int, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var busy atomic.Bool
		for {
			now := s.clock.Now().In(s.loc)
			next := s.NextDaily(now, hour, minute)

			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(next.Sub(now)):
			}

			s.fire(ctx, name, &busy, job)
		}
	}()
}

// Every fires job at a fixed interval. Runs outside [startHour, endHour)
// in the scheduler's location are skipped silently; overlapping runs are
// skipped and logged like Daily.
func (s *Scheduler) Every(ctx context.Context, name string, interval time.Duration, startHour, endHour int, job Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var busy atomic.Bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(interval):
			}

			hour := s.clock.Now().In(s.loc).Hour()
			if hour < startHour || hour >= endHour {
				continue
			}

			s.fire(ctx, name, &busy, job)
		}
	}()
}

// Wait blocks until all scheduling loops have observed context cancellation
// and every in-flight job run has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// NextDaily returns the first instant at hour:minute in the scheduler's
// location strictly after now.
func (s *Scheduler) NextDaily(now time.Time, hour, minute int) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// fire launches job asynchronously unless the previous run for this slot is
// still active, in which case the occurrence is skipped.
func (s *Scheduler) fire(ctx context.Context, name string, busy *atomic.Bool, job Job) {
	if !busy.CompareAndSwap(false, true) {
		s.log.WithField("job", name).Warn("previous run still in progress, skipping")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer busy.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("job", name).Errorf("job panicked: %v", r)
			}
		}()

		s.log.WithField("job", name).Debug("job started")
		job(ctx)
	}()
}

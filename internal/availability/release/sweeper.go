package release

import (
	"context"
	"time"
	"tourbook/pkg/clock"
	"tourbook/pkg/config"
	"tourbook/pkg/daterange"
	"tourbook/pkg/model"
)

// Releaser frees days held by a booking. The reservation coordinator
// satisfies it.
type Releaser interface {
	Release(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error
}

type Sweeper struct {
	queue    Queue
	releaser Releaser
	clock    clock.Clock
	cfg      *config.Config
}

func NewSweeper(queue Queue, releaser Releaser, clk clock.Clock, cfg *config.Config) *Sweeper {
	return &Sweeper{
		queue:    queue,
		releaser: releaser,
		clock:    clk,
		cfg:      cfg,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReleaseSweepInterval)
	defer ticker.Stop()

	s.cfg.Log.Info("Release sweeper started", "interval", s.cfg.ReleaseSweepInterval)
	for {
		select {
		case <-ctx.Done():
			s.cfg.Log.Info("Release sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.cfg.Log.Error("Release sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce attempts every due task once and reports how many succeeded.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	tasks, err := s.queue.Due(ctx, now, s.cfg.ReleaseBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			return released, ctx.Err()
		}
		if s.attempt(ctx, task, now) {
			released++
		}
	}
	return released, nil
}

func (s *Sweeper) attempt(ctx context.Context, task *model.ReleaseTask, now time.Time) bool {
	err := s.releaser.Release(ctx, task.ResourceKey, task.Dates, task.BookingRef)
	if err == nil {
		if delErr := s.queue.Delete(ctx, task.ID); delErr != nil {
			s.cfg.Log.Warn("Release succeeded but task could not be removed", "task_id", task.ID, "error", delErr)
		}
		s.cfg.Log.Info("Compensating release completed",
			"task_id", task.ID,
			"resource_key", task.ResourceKey,
			"booking_ref", task.BookingRef,
			"attempts", task.Attempts+1,
		)
		return true
	}

	attempts := task.Attempts + 1
	next := now.Add(s.Backoff(attempts))
	if rErr := s.queue.Reschedule(ctx, task.ID, attempts, err.Error(), next); rErr != nil {
		s.cfg.Log.Error("Failed to reschedule release task", "task_id", task.ID, "error", rErr)
	}
	s.cfg.Log.Warn("Compensating release failed, will retry",
		"task_id", task.ID,
		"resource_key", task.ResourceKey,
		"booking_ref", task.BookingRef,
		"dates", daterange.FormatAll(task.Dates),
		"attempts", attempts,
		"next_attempt_at", next,
		"error", err,
	)
	return false
}

// Backoff doubles the sweep interval per failed attempt, capped at
// ReleaseMaxBackoff.
func (s *Sweeper) Backoff(attempts int) time.Duration {
	d := s.cfg.ReleaseSweepInterval
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= s.cfg.ReleaseMaxBackoff {
			return s.cfg.ReleaseMaxBackoff
		}
	}
	return min(d, s.cfg.ReleaseMaxBackoff)
}

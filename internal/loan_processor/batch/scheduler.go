package batch

import (
	"context"
	"log/slog"
	"time"
)

// Rollover promotes queued threshold allocations into the new month
type Rollover interface {
	MonthlyRollover(ctx context.Context) (int, error)
}

// Scheduler fires the delinquency sweep once per day at a fixed hour, and
// triggers the threshold rollover on the first day of each month.
type Scheduler struct {
	runner   *DelinquencyRunner
	rollover Rollover
	hour     int
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewScheduler(runner *DelinquencyRunner, rollover Rollover, hour int, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		rollover: rollover,
		hour:     hour,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Start blocks until the context is canceled, running the sweep on schedule
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting batch scheduler", "run_hour", s.hour, "interval", s.interval.String())

	for {
		next := s.nextRun()
		wait := next.Sub(s.now())
		s.logger.Info("Next delinquency sweep scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Batch scheduler stopping due to context cancellation.")
			return
		case <-timer.C:
		}

		s.runOnce(ctx)
	}
}

// RunNow triggers one sweep immediately, outside the schedule
func (s *Scheduler) RunNow(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	now := s.now()

	// Rollover runs before the sweep so the new month's capacity is
	// settled before any disbursement-facing reads.
	if now.Day() == 1 && s.rollover != nil {
		promoted, err := s.rollover.MonthlyRollover(ctx)
		if err != nil {
			s.logger.Error("Monthly threshold rollover failed", "error", err)
		} else {
			s.logger.Info("Monthly threshold rollover complete", "promoted", promoted)
		}
	}

	if _, err := s.runner.Run(ctx, now); err != nil {
		s.logger.Error("Delinquency sweep failed", "error", err)
	}
}

// nextRun computes the next occurrence of the configured hour
func (s *Scheduler) nextRun() time.Time {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(s.interval)
	}
	return next
}

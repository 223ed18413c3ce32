package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nhle/laundry-notifications/internal/logging"
)

const (
	jobTimeout  = 2 * time.Minute
	stopTimeout = 5 * time.Second
)

// Job is a unit of scheduled work that reports how many items it touched.
type Job func(ctx context.Context) (int, error)

// Scheduler runs jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{cron: cron.New(), logger: logger}
}

// Add schedules job under name. An empty schedule disables the job.
func (s *Scheduler) Add(name, schedule string, job Job) error {
	if schedule == "" {
		s.logger.Debug("job disabled", "job", name)
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := job(ctx)
		if err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		if n > 0 {
			s.logger.Info("scheduled job done", "job", name, "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling %s (%q): %w", name, schedule, err)
	}
	s.logger.Info("job scheduled", "job", name, "cron", schedule)
	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(stopTimeout):
		s.logger.Warn("scheduled jobs still running after stop")
	}
	s.logger.Info("scheduler stopped")
	return nil
}

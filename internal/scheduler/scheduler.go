package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/kamomai/notebot/internal/logger"
)

// Job is one scheduled run. Errors are logged and do not stop the schedule.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron   gocron.Scheduler
	logger *logger.Logger
	// ctx is set by Run before the first tick.
	ctx context.Context
}

// New schedules job on a five-field cron expression. Runs never overlap; a
// tick that fires while the previous run is still going is skipped.
func New(expr string, name string, job Job, log *logger.Logger) (*Scheduler, error) {
	return newScheduler(gocron.CronJob(expr, false), name, job, log)
}

func newScheduler(definition gocron.JobDefinition, name string, job Job, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	s := &Scheduler{cron: cron, logger: log.With("job", name), ctx: context.Background()}

	_, err = cron.NewJob(
		definition,
		gocron.NewTask(s.runJob, job),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("scheduler started")
	<-ctx.Done()
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runJob(job Job) {
	started := time.Now()
	if err := job(s.ctx); err != nil {
		s.logger.Error("scheduled job failed", "error", err, "elapsed", time.Since(started).String())
		return
	}
	s.logger.Info("scheduled job finished", "elapsed", time.Since(started).String())
}

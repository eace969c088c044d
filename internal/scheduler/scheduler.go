package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"eventplanner-backend/pkg/logger"
)

// Job is one periodic unit of work. It returns the number of emails it
// dispatched, for metrics.
type Job func(ctx context.Context) (int, error)

// Dispatched records the emails sent by a named job
type Dispatched func(job string, count int)

// Scheduler runs the periodic jobs. Failures are isolated per job: a
// panicking or failing run is logged and the schedule continues.
type Scheduler struct {
	cron       *cron.Cron
	dispatched Dispatched
	jobTimeout time.Duration
}

// New creates an empty scheduler
func New(dispatched Dispatched) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		dispatched: dispatched,
		jobTimeout: 5 * time.Minute,
	}
}

// Add registers a job under a cron spec
func (s *Scheduler) Add(spec, name string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, job)
	})
	return err
}

func (s *Scheduler) run(name string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Scheduled job panicked",
				zap.String("job", name),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	count, err := job(ctx)
	if err != nil {
		logger.Error("Scheduled job failed",
			zap.String("job", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	if s.dispatched != nil && count > 0 {
		s.dispatched(name, count)
	}
	logger.Info("Scheduled job finished",
		zap.String("job", name),
		zap.Int("emails", count),
		zap.Duration("duration", time.Since(start)))
}

// Start launches the schedule
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

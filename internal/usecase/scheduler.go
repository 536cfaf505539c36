package usecase

import (
	"context"
	"time"

	"github.com/cf-vnkr/autoblog/internal/ports"
)

// Scheduler wires the cron driver to the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
}

// NewScheduler returns a helper to start/stop the recurring job.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline}
}

// Start registers the pipeline with the driver. Run outcomes surface through
// the pipeline's own logging; the scheduled path has no interactive caller.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_, _ = s.pipeline.Run(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

// Package scheduler drives the pipeline on a cron cadence.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cf-vnkr/autoblog/internal/ports"
)

// CronScheduler runs the registered job on a standard 5-field cron spec.
type CronScheduler struct {
	cron    *cron.Cron
	spec    string
	entryID cron.EntryID
	logger  *slog.Logger
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for the given spec and timezone.
func NewCronScheduler(spec string, loc *time.Location, logger *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		spec:   spec,
		logger: logger,
	}
}

// Start registers the job and begins the cron loop.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	id, err := c.cron.AddFunc(c.spec, func() {
		job(time.Now())
	})
	if err != nil {
		return fmt.Errorf("register cron job %q: %w", c.spec, err)
	}
	c.entryID = id
	c.cron.Start()

	if c.logger != nil {
		c.logger.Info("scheduler started", "spec", c.spec, "next_run", c.NextRun())
	}
	return nil
}

// Stop halts the cron loop, waiting for a running job up to ctx's deadline.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	return nil
}

// NextRun reports the next scheduled fire time.
func (c *CronScheduler) NextRun() time.Time {
	return c.cron.Entry(c.entryID).Next
}

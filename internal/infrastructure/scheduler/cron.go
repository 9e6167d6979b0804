package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"NewsCollector/internal/ports"
)

// CronScheduler drives recurring jobs from standard cron expressions.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating specs in the given location.
func NewCronScheduler(location *time.Location) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{
		cron: cron.New(cron.WithLocation(location)),
	}
}

// Schedule registers a job under a cron spec.
func (c *CronScheduler) Schedule(spec string, job func(time.Time)) error {
	_, err := c.cron.AddFunc(spec, func() {
		job(time.Now())
	})
	return err
}

// Start begins firing registered jobs.
func (c *CronScheduler) Start() {
	c.cron.Start()
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

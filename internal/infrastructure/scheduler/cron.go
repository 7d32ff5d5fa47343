package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/itmedclk/HealthNews/internal/ports"
)

// CronScheduler drives recurring pipeline runs from a cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	cron     *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for the given cron expression
// evaluated in the given timezone.
func NewCronScheduler(spec string, location *time.Location) *CronScheduler {
	return &CronScheduler{spec: spec, location: location}
}

// Start registers the job and begins the cron loop.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || c.spec == "" {
		return nil
	}
	if c.cron != nil {
		return nil
	}

	location := c.location
	if location == nil {
		location = time.Local
	}

	runner := cron.New(cron.WithLocation(location))
	if _, err := runner.AddFunc(c.spec, func() { job(time.Now().In(location)) }); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}
	runner.Start()
	c.cron = runner
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}
	stopped := c.cron.Stop()
	c.cron = nil

	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

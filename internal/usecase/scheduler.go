package usecase

import (
	"context"
	"time"

	"ProviderDirectory/internal/ports"
)

// Scheduler wires the cron-like driver with the build pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	after    func(context.Context)
}

// NewScheduler returns a helper to start/stop recurring builds. The
// optional after hook runs once per completed build (cache flushing).
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, after func(context.Context)) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, after: after}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_, _ = s.pipeline.BuildDirectory(ctx, trigger)
		if s.after != nil {
			s.after(ctx)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

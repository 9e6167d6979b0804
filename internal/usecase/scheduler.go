package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

const (
	articleRetention = 30 * 24 * time.Hour
	runLogRetention  = 7 * 24 * time.Hour
)

// SweepPlan carries the cron cadences and source lists for recurring sweeps.
type SweepPlan struct {
	PrimarySpec string
	CustomSpec  string
	CleanupSpec string
	Primary     []domain.Source
	Custom      []domain.Source
}

// Scheduler wires the cron driver to acquisition sweeps and retention
// cleanup. Sweeps never block each other: the driver fires them and the
// acquisition component's own limits take over.
type Scheduler struct {
	driver    ports.Scheduler
	acq       *Acquisition
	retention ports.Retention
	plan      SweepPlan
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop the recurring jobs.
func NewScheduler(driver ports.Scheduler, acq *Acquisition, retention ports.Retention, plan SweepPlan, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, acq: acq, retention: retention, plan: plan, logger: logger}
}

// Start registers the sweep jobs with the driver and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.acq == nil {
		return nil
	}

	if s.plan.PrimarySpec != "" && len(s.plan.Primary) > 0 {
		err := s.driver.Schedule(s.plan.PrimarySpec, func(time.Time) {
			s.sweep(ctx, "primary", s.plan.Primary)
		})
		if err != nil {
			return err
		}
	}

	if s.plan.CustomSpec != "" && len(s.plan.Custom) > 0 {
		err := s.driver.Schedule(s.plan.CustomSpec, func(time.Time) {
			s.sweep(ctx, "custom", s.plan.Custom)
		})
		if err != nil {
			return err
		}
	}

	if s.plan.CleanupSpec != "" && s.retention != nil {
		err := s.driver.Schedule(s.plan.CleanupSpec, func(t time.Time) {
			s.cleanup(ctx, t)
		})
		if err != nil {
			return err
		}
	}

	s.driver.Start()
	return nil
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) sweep(ctx context.Context, name string, sources []domain.Source) {
	if ctx.Err() != nil {
		return
	}
	summary := s.acq.Run(ctx, sources)
	if s.logger != nil {
		s.logger.Info("sweep finished", "sweep", name,
			"due", summary.SourcesDue, "skipped", summary.SourcesSkipped,
			"failed", summary.SourcesFailed,
			"found", summary.ItemsFound, "saved", summary.ItemsSaved)
	}
}

func (s *Scheduler) cleanup(ctx context.Context, now time.Time) {
	articles, runs, err := s.retention.Cleanup(ctx, now.Add(-articleRetention), now.Add(-runLogRetention))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("cleanup failed", "error", err)
		}
		return
	}
	if s.logger != nil {
		s.logger.Info("cleanup finished", "articles_deleted", articles, "runs_deleted", runs)
	}
}

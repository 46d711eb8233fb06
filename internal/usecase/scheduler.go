package usecase

import (
	"context"
	"log/slog"
	"time"

	"NotebookSync/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	profile  string
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs for profile.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, profile string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, profile: profile, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Debug("scheduled run triggered", "at", trigger)
		if _, err := s.pipeline.Run(ctx, s.profile); err != nil {
			s.logger.Error("scheduled run failed", "profile", s.profile, "error", err)
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

package usecase

import (
	"context"
	"time"

	"DailyDigest/internal/ports"
)

// Scheduler wires the ticker driver to periodic feed ingestion.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	feeds    []string
}

// NewScheduler returns a helper to start/stop recurring feed polling.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, feeds []string) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, feeds: feeds}
}

// Start registers the polling job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil || len(s.feeds) == 0 {
		return nil
	}

	job := func(trigger time.Time) {
		s.PollFeeds(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// PollFeeds ingests every configured feed once; failures are logged per feed.
func (s *Scheduler) PollFeeds(ctx context.Context, trigger time.Time) {
	for _, feed := range s.feeds {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.pipeline.IngestFeed(ctx, feed); err != nil {
			s.pipeline.logger.Warn("scheduled feed poll failed", "feed", feed, "trigger", trigger, "error", err)
		}
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

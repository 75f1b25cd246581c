package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Fetcher is the pipeline the scheduler triggers.
type Fetcher interface {
	FetchAndSave(ctx context.Context) (bool, error)
}

const (
	// runTimeout bounds one scheduled pipeline run.
	runTimeout      = 2 * time.Minute
	defaultInterval = 15 * time.Minute
)

// Scheduler periodically runs the weather fetch pipeline.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	interval  time.Duration
}

// New creates a new Scheduler.
func New(interval time.Duration, fetcher Fetcher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		fetcher:   fetcher,
		interval:  interval,
	}
}

// Start schedules the periodic job, runs it once immediately and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = defaultInterval
	}

	_, err := s.scheduler.Every(interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	slog.Debug("scheduler: running weather fetch job")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	fromNetwork, err := s.fetcher.FetchAndSave(ctx)
	if err != nil {
		slog.Warn("scheduler: weather fetch did not complete", "error", err)
		return
	}
	slog.Debug("scheduler: completed weather fetch job", "real", fromNetwork)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

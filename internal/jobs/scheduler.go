package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type CleanupEnqueuer interface {
	EnqueueCleanup(ctx context.Context) error
}

// Scheduler periodically asks the worker to purge stale staged uploads.
type Scheduler struct {
	cron     *cron.Cron
	queue    CleanupEnqueuer
	schedule string
	log      zerolog.Logger
}

func NewScheduler(queue CleanupEnqueuer, schedule string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		queue:    queue,
		schedule: schedule,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.enqueueCleanup); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron and waits for a running enqueue to finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) enqueueCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.queue.EnqueueCleanup(ctx); err != nil {
		s.log.Error().Err(err).Msg("enqueue cleanup failed")
		return
	}
	s.log.Debug().Msg("cleanup enqueued")
}

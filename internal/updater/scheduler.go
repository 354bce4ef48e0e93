package updater

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler runs update cycles on a fixed interval, one cycle to completion
// before the next is considered. A bad cycle is only logged; the scheduler
// waits for the next interval rather than exiting.
type Scheduler struct {
	updater  *PlayerUpdater
	interval time.Duration
	logger   zerolog.Logger
}

func NewScheduler(u *PlayerUpdater, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		updater:  u,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run executes an initial cycle immediately, then one per interval until
// ctx is cancelled. Cancellation is honored between players and between
// cycles, never mid-request.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	s.logger.Info().Msg("running initial update")
	s.updater.UpdateAllPlayers(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.logger.Info().Msg("starting scheduled update")
			stats := s.updater.UpdateAllPlayers(ctx)
			if stats.SuccessRate() == 0 && stats.TotalProcessed > 0 {
				s.logger.Error().Msg("update cycle produced no successful updates")
			}
			s.logger.Info().Dur("next_in", s.interval).Msg("waiting for next update")
		}
	}
}

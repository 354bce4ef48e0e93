package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/naheedroomy/valorantsl-new/internal/config"
	"github.com/naheedroomy/valorantsl-new/internal/constants"
	"github.com/naheedroomy/valorantsl-new/internal/domain"
	"github.com/naheedroomy/valorantsl-new/internal/riot"
	"github.com/naheedroomy/valorantsl-new/internal/storage"
)

// RankFetcher is the slice of the upstream client the updater needs.
type RankFetcher interface {
	FetchRankSnapshot(ctx context.Context, puuid string) (*riot.Snapshot, error)
	FetchLastMatchDate(ctx context.Context, puuid string) (string, error)
}

// PlayerRegistry is the slice of the player store the updater needs.
type PlayerRegistry interface {
	ListPlayerSummaries(ctx context.Context) ([]domain.PlayerSummary, error)
	GetPlayer(ctx context.Context, puuid string) (*domain.PlayerRecord, error)
	UpdatePlayer(ctx context.Context, puuid string, update storage.PlayerUpdate) error
}

// PlayerUpdater walks every tracked player, refreshes their record from
// upstream, and accumulates run statistics. Players are processed strictly
// sequentially with an inter-request delay to stay inside the upstream
// rate budget.
type PlayerUpdater struct {
	fetcher  RankFetcher
	registry PlayerRegistry
	delay    time.Duration
	logger   zerolog.Logger
}

func NewPlayerUpdater(fetcher RankFetcher, registry PlayerRegistry, cfg *config.Config, logger zerolog.Logger) *PlayerUpdater {
	return &PlayerUpdater{
		fetcher:  fetcher,
		registry: registry,
		delay:    cfg.RequestDelay,
		logger:   logger.With().Str("component", "updater").Logger(),
	}
}

// UpdateAllPlayers runs one full update cycle. It never returns an error:
// per-player failures become counts, and a registry listing failure yields
// stats with zero successes for the scheduler to report.
func (u *PlayerUpdater) UpdateAllPlayers(ctx context.Context) domain.RunStats {
	stats := domain.RunStats{StartTime: time.Now()}

	u.logger.Info().Msg("starting full player update cycle")

	summaries, err := u.registry.ListPlayerSummaries(ctx)
	if err != nil {
		u.logger.Error().Err(err).Msg("failed to list tracked players, aborting cycle")
		stats.EndTime = time.Now()
		return stats
	}
	if len(summaries) == 0 {
		u.logger.Warn().Msg("no players found in database")
		stats.EndTime = time.Now()
		return stats
	}

	u.logger.Info().Int("players", len(summaries)).Msg("found players to update")
	stats.TotalProcessed = len(summaries)

	for i, player := range summaries {
		if ctx.Err() != nil {
			u.logger.Warn().Int("processed", i).Msg("update cycle cancelled")
			break
		}

		if player.Puuid == "" {
			u.logger.Warn().Str("player", player.DisplayName()).Msg("player has no puuid, skipping")
			stats.Skipped++
		} else if err := u.updatePlayer(ctx, player); err != nil {
			stats.Failed++
		} else {
			stats.Successful++
		}

		if (i+1)%constants.ProgressLogInterval == 0 {
			progress := float64(i+1) / float64(len(summaries)) * 100
			u.logger.Info().
				Int("processed", i+1).
				Int("total", len(summaries)).
				Str("progress", fmt.Sprintf("%.1f%%", progress)).
				Int("success", stats.Successful).
				Int("failed", stats.Failed).
				Msg("update progress")
		}

		// Inter-request delay, skipped after the last player.
		if i < len(summaries)-1 {
			if !sleepContext(ctx, u.delay) {
				u.logger.Warn().Int("processed", i+1).Msg("update cycle cancelled")
				break
			}
		}
	}

	stats.EndTime = time.Now()
	u.LogSummary(stats)
	return stats
}

// UpdateSinglePlayer refreshes one player outside a full cycle.
func (u *PlayerUpdater) UpdateSinglePlayer(ctx context.Context, puuid string) error {
	return u.updatePlayer(ctx, domain.PlayerSummary{Puuid: puuid})
}

func (u *PlayerUpdater) updatePlayer(ctx context.Context, player domain.PlayerSummary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("player %s: %v", player.Puuid, r)
			u.logger.Error().Str("puuid", player.Puuid).Interface("panic", r).Msg("unexpected error updating player")
		}
	}()

	display := player.DisplayName()
	if existing, lookupErr := u.registry.GetPlayer(ctx, player.Puuid); lookupErr == nil {
		display = domain.PlayerSummary{Puuid: existing.Puuid, Name: existing.Name, Tag: existing.Tag}.DisplayName()
	}

	u.logger.Info().Str("player", display).Str("puuid", player.Puuid).Msg("updating player")

	snapshot, err := u.fetcher.FetchRankSnapshot(ctx, player.Puuid)
	if err != nil {
		if errors.Is(err, riot.ErrNotFound) {
			u.logger.Warn().Str("player", display).Msg("no upstream data for player")
		} else {
			u.logger.Error().Err(err).Str("player", display).Msg("failed to fetch player data")
		}
		return err
	}

	// Companion call, non-fatal: an unknown last-played date is fine.
	lastPlayed, err := u.fetcher.FetchLastMatchDate(ctx, player.Puuid)
	if err != nil {
		u.logger.Warn().Err(err).Str("player", display).Msg("failed to fetch last match date")
		lastPlayed = ""
	}

	update := storage.PlayerUpdate{
		Name:            snapshot.Name,
		Tag:             snapshot.Tag,
		RankDetails:     snapshot.Rank,
		PeakRank:        snapshot.Peak,
		SeasonalRanks:   snapshot.Seasonal,
		LastPlayedMatch: lastPlayed,
	}
	if err := u.registry.UpdatePlayer(ctx, player.Puuid, update); err != nil {
		u.logger.Error().Err(err).Str("player", display).Msg("database update failed")
		return err
	}

	u.logger.Info().
		Str("player", display).
		Str("rank", snapshot.Rank.TierName).
		Int("elo", snapshot.Rank.Elo).
		Msg("player updated")
	return nil
}

// LogSummary reports the outcome of one cycle.
func (u *PlayerUpdater) LogSummary(stats domain.RunStats) {
	u.logger.Info().
		Int("total", stats.TotalProcessed).
		Int("success", stats.Successful).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Str("success_rate", fmt.Sprintf("%.1f%%", stats.SuccessRate())).
		Dur("duration", stats.Duration()).
		Msg("update cycle completed")
}

// sleepContext waits d, returning false if ctx is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

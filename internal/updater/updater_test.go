package updater

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/naheedroomy/valorantsl-new/internal/config"
	"github.com/naheedroomy/valorantsl-new/internal/domain"
	"github.com/naheedroomy/valorantsl-new/internal/riot"
	"github.com/naheedroomy/valorantsl-new/internal/storage"
)

type fakeFetcher struct {
	snapshots  map[string]*riot.Snapshot
	errs       map[string]error
	lastMatch  map[string]string
	fetchCalls []string
}

func (f *fakeFetcher) FetchRankSnapshot(_ context.Context, puuid string) (*riot.Snapshot, error) {
	f.fetchCalls = append(f.fetchCalls, puuid)
	if err, ok := f.errs[puuid]; ok {
		return nil, err
	}
	if snap, ok := f.snapshots[puuid]; ok {
		return snap, nil
	}
	return nil, riot.ErrNotFound
}

func (f *fakeFetcher) FetchLastMatchDate(_ context.Context, puuid string) (string, error) {
	return f.lastMatch[puuid], nil
}

type fakeRegistry struct {
	summaries []domain.PlayerSummary
	listErr   error
	records   map[string]*domain.PlayerRecord
}

func (r *fakeRegistry) ListPlayerSummaries(context.Context) ([]domain.PlayerSummary, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.summaries, nil
}

func (r *fakeRegistry) GetPlayer(_ context.Context, puuid string) (*domain.PlayerRecord, error) {
	if rec, ok := r.records[puuid]; ok {
		return rec, nil
	}
	return nil, storage.ErrPlayerNotFound
}

func (r *fakeRegistry) UpdatePlayer(_ context.Context, puuid string, update storage.PlayerUpdate) error {
	rec, ok := r.records[puuid]
	if !ok {
		return storage.ErrPlayerNotFound
	}
	rec.Name = update.Name
	rec.Tag = update.Tag
	rec.RankDetails = update.RankDetails
	rec.PeakRank = update.PeakRank
	rec.SeasonalRanks = update.SeasonalRanks
	rec.LastPlayedMatch = update.LastPlayedMatch
	rec.UpdatedAt = time.Now()
	return nil
}

func snapshotFor(name string, elo int) *riot.Snapshot {
	return &riot.Snapshot{
		Name: name,
		Tag:  "SL",
		Rank: domain.RankSnapshot{TierID: 18, TierName: "Platinum 3", Elo: elo, RankingInTier: elo % 100},
		Peak: domain.PeakRank{TierID: 21, TierName: "Diamond 3", SeasonShort: "e5a2"},
	}
}

func newTestUpdater(fetcher *fakeFetcher, registry *fakeRegistry, delay time.Duration) *PlayerUpdater {
	return NewPlayerUpdater(fetcher, registry, &config.Config{RequestDelay: delay}, zerolog.Nop())
}

func registryOf(puuids ...string) *fakeRegistry {
	reg := &fakeRegistry{records: map[string]*domain.PlayerRecord{}}
	for _, puuid := range puuids {
		reg.summaries = append(reg.summaries, domain.PlayerSummary{Puuid: puuid})
		reg.records[puuid] = &domain.PlayerRecord{Puuid: puuid}
	}
	return reg
}

func TestUpdateAllPlayersPartialFailure(t *testing.T) {
	registry := registryOf("A", "B", "C")
	fetcher := &fakeFetcher{
		snapshots: map[string]*riot.Snapshot{
			"A": snapshotFor("PlayerA", 1600),
			"C": snapshotFor("PlayerC", 1700),
		},
		errs: map[string]error{"B": riot.ErrNotFound},
	}

	stats := newTestUpdater(fetcher, registry, 0).UpdateAllPlayers(context.Background())

	require.Equal(t, 3, stats.TotalProcessed)
	require.Equal(t, 2, stats.Successful)
	require.Equal(t, 1, stats.Failed)
	require.InDelta(t, 66.7, stats.SuccessRate(), 0.1)

	// B's failure must not stop C from being processed.
	require.Equal(t, []string{"A", "B", "C"}, fetcher.fetchCalls)
	require.Equal(t, "PlayerC", registry.records["C"].Name)
}

func TestUpdatePreservesPlayerID(t *testing.T) {
	registry := registryOf("A")
	registry.records["A"].Name = "OldName"
	fetcher := &fakeFetcher{snapshots: map[string]*riot.Snapshot{"A": snapshotFor("NewName", 1500)}}

	stats := newTestUpdater(fetcher, registry, 0).UpdateAllPlayers(context.Background())

	require.Equal(t, 1, stats.Successful)
	require.Equal(t, "A", registry.records["A"].Puuid)
	require.Equal(t, "NewName", registry.records["A"].Name)
}

func TestUpdateIdempotent(t *testing.T) {
	registry := registryOf("A")
	fetcher := &fakeFetcher{
		snapshots: map[string]*riot.Snapshot{"A": snapshotFor("PlayerA", 1600)},
		lastMatch: map[string]string{"A": "2026-08-20T18:30:00Z"},
	}
	u := newTestUpdater(fetcher, registry, 0)

	u.UpdateAllPlayers(context.Background())
	first := *registry.records["A"]
	u.UpdateAllPlayers(context.Background())
	second := *registry.records["A"]

	first.UpdatedAt = time.Time{}
	second.UpdatedAt = time.Time{}
	require.Equal(t, first, second)
	require.Equal(t, "2026-08-20T18:30:00Z", second.LastPlayedMatch)
}

func TestUpdateSkipsPlayersWithoutPuuid(t *testing.T) {
	registry := registryOf("A")
	registry.summaries = append(registry.summaries, domain.PlayerSummary{Name: "Ghost", Tag: "0000"})
	fetcher := &fakeFetcher{snapshots: map[string]*riot.Snapshot{"A": snapshotFor("PlayerA", 1600)}}

	stats := newTestUpdater(fetcher, registry, 0).UpdateAllPlayers(context.Background())

	require.Equal(t, 2, stats.TotalProcessed)
	require.Equal(t, 1, stats.Successful)
	require.Equal(t, 1, stats.Skipped)
	require.Zero(t, stats.Failed)
	require.Equal(t, []string{"A"}, fetcher.fetchCalls)
}

func TestUpdateAbortsWhenListingFails(t *testing.T) {
	registry := &fakeRegistry{listErr: errors.New("connection refused")}
	fetcher := &fakeFetcher{}

	stats := newTestUpdater(fetcher, registry, 0).UpdateAllPlayers(context.Background())

	require.Zero(t, stats.TotalProcessed)
	require.Zero(t, stats.Successful)
	require.Zero(t, stats.SuccessRate())
	require.Empty(t, fetcher.fetchCalls)
}

func TestUpdateDelayBetweenPlayersOnly(t *testing.T) {
	registry := registryOf("A", "B", "C", "D", "E")
	fetcher := &fakeFetcher{snapshots: map[string]*riot.Snapshot{}}
	for _, p := range []string{"A", "B", "C", "D", "E"} {
		fetcher.snapshots[p] = snapshotFor("Player"+p, 1600)
	}

	const delay = 20 * time.Millisecond
	start := time.Now()
	stats := newTestUpdater(fetcher, registry, delay).UpdateAllPlayers(context.Background())
	elapsed := time.Since(start)

	require.Equal(t, 5, stats.Successful)
	// 4 inter-player delays, no trailing delay after the last player.
	require.GreaterOrEqual(t, elapsed, 4*delay)
	require.Less(t, elapsed, 5*delay+delay/2)
}

func TestUpdateCountsPanicAsFailure(t *testing.T) {
	registry := registryOf("A", "B")
	fetcher := &fakeFetcher{
		snapshots: map[string]*riot.Snapshot{"B": snapshotFor("PlayerB", 1500)},
		errs:      map[string]error{"A": nil},
	}
	// A nil error entry makes the fake return a nil snapshot with nil error,
	// which panics inside the updater when dereferenced.

	stats := newTestUpdater(fetcher, registry, 0).UpdateAllPlayers(context.Background())

	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 1, stats.Successful)
}

func TestUpdateStopsOnCancellation(t *testing.T) {
	registry := registryOf("A", "B", "C")
	fetcher := &fakeFetcher{snapshots: map[string]*riot.Snapshot{"A": snapshotFor("PlayerA", 1600)}}

	ctx, cancel := context.WithCancel(context.Background())
	u := NewPlayerUpdater(&cancellingFetcher{inner: fetcher, cancel: cancel}, registry,
		&config.Config{RequestDelay: time.Millisecond}, zerolog.Nop())

	stats := u.UpdateAllPlayers(ctx)

	require.Equal(t, 1, len(fetcher.fetchCalls), "cancellation is honored between players")
	require.Equal(t, 3, stats.TotalProcessed)
}

type cancellingFetcher struct {
	inner  *fakeFetcher
	cancel context.CancelFunc
}

func (c *cancellingFetcher) FetchRankSnapshot(ctx context.Context, puuid string) (*riot.Snapshot, error) {
	defer c.cancel()
	return c.inner.FetchRankSnapshot(ctx, puuid)
}

func (c *cancellingFetcher) FetchLastMatchDate(ctx context.Context, puuid string) (string, error) {
	return c.inner.FetchLastMatchDate(ctx, puuid)
}

func TestUpdateSinglePlayer(t *testing.T) {
	registry := registryOf("A")
	fetcher := &fakeFetcher{snapshots: map[string]*riot.Snapshot{"A": snapshotFor("PlayerA", 1600)}}
	u := newTestUpdater(fetcher, registry, 0)

	require.NoError(t, u.UpdateSinglePlayer(context.Background(), "A"))
	require.Equal(t, "PlayerA", registry.records["A"].Name)

	err := u.UpdateSinglePlayer(context.Background(), "unknown")
	require.ErrorIs(t, err, riot.ErrNotFound)
}

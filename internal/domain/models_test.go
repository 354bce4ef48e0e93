package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestRankSnapshotDecodeBothShapes(t *testing.T) {
	flat := bson.M{
		"currenttier":             21,
		"currenttierpatched":      "Diamond 3",
		"elo":                     1850,
		"ranking_in_tier":         50,
		"mmr_change_to_last_game": 18,
	}
	wrapped := bson.M{
		"status": 200,
		"data":   flat,
	}

	var fromFlat, fromWrapped RankSnapshot

	raw, err := bson.Marshal(flat)
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(raw, &fromFlat))

	raw, err = bson.Marshal(wrapped)
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(raw, &fromWrapped))

	require.Equal(t, fromFlat, fromWrapped)
	require.Equal(t, "Diamond 3", fromFlat.TierName)
	require.Equal(t, 1850, fromFlat.Elo)
	require.Equal(t, 50, fromFlat.RankingInTier)
}

func TestRankSnapshotDecodeMissingFields(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"elo": 900})
	require.NoError(t, err)

	var snap RankSnapshot
	require.NoError(t, bson.Unmarshal(raw, &snap))
	require.Equal(t, 900, snap.Elo)
	require.Zero(t, snap.TierID)
	require.Empty(t, snap.TierName)
}

func TestPlayerRecordRoundTrip(t *testing.T) {
	rec := PlayerRecord{
		Puuid: "abc-123",
		Name:  "TenZ",
		Tag:   "SEN",
		RankDetails: RankSnapshot{
			TierID:        24,
			TierName:      "Immortal 3",
			Elo:           2100,
			RankingInTier: 12,
		},
		PeakRank:  PeakRank{TierID: 27, TierName: "Radiant", SeasonShort: "e7a2", Rating: 450},
		UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := bson.Marshal(rec)
	require.NoError(t, err)

	var got PlayerRecord
	require.NoError(t, bson.Unmarshal(raw, &got))
	require.Equal(t, rec.Puuid, got.Puuid)
	require.Equal(t, rec.RankDetails, got.RankDetails)
	require.Equal(t, rec.PeakRank, got.PeakRank)
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "TenZ#SEN", PlayerSummary{Puuid: "x", Name: "TenZ", Tag: "SEN"}.DisplayName())
	require.Equal(t, "12345678", PlayerSummary{Puuid: "123456789abc"}.DisplayName())
}

func TestSuccessRate(t *testing.T) {
	require.Zero(t, RunStats{}.SuccessRate())
	require.InDelta(t, 66.7, RunStats{TotalProcessed: 3, Successful: 2, Failed: 1}.SuccessRate(), 0.1)
}

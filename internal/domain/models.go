package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// RankSnapshot is the canonical form of a player's current competitive
// standing. A zero value is the valid "Unrated" state, not an error.
type RankSnapshot struct {
	TierID        int    `bson:"currenttier" json:"currenttier"`
	TierName      string `bson:"currenttierpatched" json:"currenttierpatched"`
	Elo           int    `bson:"elo" json:"elo"`
	RankingInTier int    `bson:"ranking_in_tier" json:"ranking_in_tier"`
	LastMMRChange int    `bson:"mmr_change_to_last_game" json:"mmr_change_to_last_game"`
}

// UnmarshalBSON accepts both historical stored shapes of rank_details: the
// flat document and the legacy wrapper {status, data: {...}}. Both decode
// into the same canonical snapshot.
func (rs *RankSnapshot) UnmarshalBSON(data []byte) error {
	var probe struct {
		Data bson.Raw `bson:"data"`
	}
	if err := bson.Unmarshal(data, &probe); err != nil {
		return err
	}
	if len(probe.Data) > 0 {
		data = probe.Data
	}

	type flat RankSnapshot
	var f flat
	if err := bson.Unmarshal(data, &f); err != nil {
		return err
	}
	*rs = RankSnapshot(f)
	return nil
}

type PeakRank struct {
	TierID      int    `bson:"tier" json:"tier"`
	TierName    string `bson:"tier_name" json:"tier_name"`
	SeasonShort string `bson:"season_short" json:"season_short"`
	Rating      int    `bson:"rr" json:"rr"`
}

type SeasonalRank struct {
	SeasonID    string `bson:"season_id" json:"season_id"`
	SeasonShort string `bson:"season_short" json:"season_short"`
	EndTierID   int    `bson:"end_tier" json:"end_tier"`
	EndTierName string `bson:"end_tier_name" json:"end_tier_name"`
	Wins        int    `bson:"wins" json:"wins"`
	Games       int    `bson:"games" json:"games"`
	EndRR       int    `bson:"end_rr" json:"end_rr"`
}

// PlayerRecord is the full stored document for a tracked player. Puuid is
// assigned upstream and never changes after registration; every other field
// is overwritten by a successful update.
type PlayerRecord struct {
	Puuid           string         `bson:"puuid" json:"puuid"`
	Name            string         `bson:"name" json:"name"`
	Tag             string         `bson:"tag" json:"tag"`
	RankDetails     RankSnapshot   `bson:"rank_details" json:"rank_details"`
	PeakRank        PeakRank       `bson:"peak_rank" json:"peak_rank"`
	SeasonalRanks   []SeasonalRank `bson:"seasonal_ranks" json:"seasonal_ranks"`
	LastPlayedMatch string         `bson:"last_played_match,omitempty" json:"last_played_match,omitempty"`
	UpdatedAt       time.Time      `bson:"updated_at" json:"updated_at"`
}

// PlayerSummary is the minimal view guaranteed present on every document.
// It backs registry listings and stands in for records that fail full
// decoding.
type PlayerSummary struct {
	Puuid string `bson:"puuid" json:"puuid"`
	Name  string `bson:"name" json:"name"`
	Tag   string `bson:"tag" json:"tag"`
}

// DisplayName returns "Name#Tag", or a puuid prefix when the identity is
// not known yet.
func (s PlayerSummary) DisplayName() string {
	if s.Name == "" {
		if len(s.Puuid) > 8 {
			return s.Puuid[:8]
		}
		return s.Puuid
	}
	return fmt.Sprintf("%s#%s", s.Name, s.Tag)
}

// RunStats accumulates the outcome of one update cycle.
type RunStats struct {
	TotalProcessed int       `json:"total_processed"`
	Successful     int       `json:"successful_updates"`
	Failed         int       `json:"failed_updates"`
	Skipped        int       `json:"skipped_updates"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

func (s RunStats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// SuccessRate is the percentage of processed players updated successfully,
// 0 when nothing was processed.
func (s RunStats) SuccessRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.TotalProcessed) * 100
}

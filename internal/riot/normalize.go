package riot

import (
	"sort"

	"github.com/naheedroomy/valorantsl-new/internal/domain"
)

// Snapshot is the canonical result of one MMR fetch: identity plus the
// normalized rank data, independent of which upstream shape produced it.
type Snapshot struct {
	Name     string
	Tag      string
	Rank     domain.RankSnapshot
	Peak     domain.PeakRank
	Seasonal []domain.SeasonalRank
}

const (
	unratedTierName = "Unrated"
	unknownValue    = "Unknown"
)

// mmrResponse covers both MMR schemas the API has served over time: the
// current one nests everything under data.current/peak/seasonal, the legacy
// one keeps flat currenttierpatched/highest_rank/by_season fields. Unknown
// fields on either side simply stay zero.
type mmrResponse struct {
	Status int     `json:"status"`
	Data   mmrData `json:"data"`
}

type mmrData struct {
	Account struct {
		Name string `json:"name"`
		Tag  string `json:"tag"`
	} `json:"account"`

	Current *struct {
		Tier       tierRef `json:"tier"`
		RR         int     `json:"rr"`
		Elo        int     `json:"elo"`
		LastChange int     `json:"last_change"`
	} `json:"current"`
	Peak *struct {
		Tier   tierRef   `json:"tier"`
		Season seasonRef `json:"season"`
		RR     int       `json:"rr"`
	} `json:"peak"`
	Seasonal []struct {
		Season  seasonRef `json:"season"`
		Wins    int       `json:"wins"`
		Games   int       `json:"games"`
		EndTier tierRef   `json:"end_tier"`
		EndRR   int       `json:"end_rr"`
	} `json:"seasonal"`

	Name                string `json:"name"`
	Tag                 string `json:"tag"`
	CurrentTier         int    `json:"currenttier"`
	CurrentTierPatched  string `json:"currenttierpatched"`
	RankingInTier       int    `json:"ranking_in_tier"`
	MMRChangeToLastGame int    `json:"mmr_change_to_last_game"`
	Elo                 int    `json:"elo"`
	HighestRank         *struct {
		Tier        int    `json:"tier"`
		PatchedTier string `json:"patched_tier"`
		SeasonShort string `json:"season_short"`
		Converted   int    `json:"converted"`
	} `json:"highest_rank"`
	BySeason map[string]struct {
		Wins             int    `json:"wins"`
		NumberOfGames    int    `json:"number_of_games"`
		FinalRank        int    `json:"final_rank"`
		FinalRankPatched string `json:"final_rank_patched"`
	} `json:"by_season"`
}

type tierRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type seasonRef struct {
	ID    string `json:"id"`
	Short string `json:"short"`
}

type matchesResponse struct {
	Status int `json:"status"`
	Data   []struct {
		Metadata struct {
			StartedAt string `json:"started_at"`
			GameStart int64  `json:"game_start"`
		} `json:"metadata"`
	} `json:"data"`
}

// normalizeMMR branches once on which schema is present and emits the
// canonical snapshot. Missing optional fields become zero/"Unknown"/
// "Unrated"; nothing here ever fails.
func normalizeMMR(resp *mmrResponse) *Snapshot {
	data := &resp.Data
	if data.Current != nil {
		return normalizeNested(data)
	}
	return normalizeFlat(data)
}

func normalizeNested(data *mmrData) *Snapshot {
	snap := &Snapshot{
		Name: data.Account.Name,
		Tag:  data.Account.Tag,
		Rank: domain.RankSnapshot{
			TierID:        data.Current.Tier.ID,
			TierName:      orDefault(data.Current.Tier.Name, unratedTierName),
			Elo:           data.Current.Elo,
			RankingInTier: data.Current.RR,
			LastMMRChange: data.Current.LastChange,
		},
	}

	if data.Peak != nil {
		snap.Peak = domain.PeakRank{
			TierID:      data.Peak.Tier.ID,
			TierName:    orDefault(data.Peak.Tier.Name, unknownValue),
			SeasonShort: orDefault(data.Peak.Season.Short, unknownValue),
			Rating:      data.Peak.RR,
		}
	} else {
		snap.Peak = unknownPeak()
	}

	for _, season := range data.Seasonal {
		snap.Seasonal = append(snap.Seasonal, domain.SeasonalRank{
			SeasonID:    season.Season.ID,
			SeasonShort: orDefault(season.Season.Short, unknownValue),
			EndTierID:   season.EndTier.ID,
			EndTierName: orDefault(season.EndTier.Name, unknownValue),
			Wins:        season.Wins,
			Games:       season.Games,
			EndRR:       season.EndRR,
		})
	}
	sortSeasonal(snap.Seasonal)

	return snap
}

func normalizeFlat(data *mmrData) *Snapshot {
	snap := &Snapshot{
		Name: data.Name,
		Tag:  data.Tag,
		Rank: domain.RankSnapshot{
			TierID:        data.CurrentTier,
			TierName:      orDefault(data.CurrentTierPatched, unratedTierName),
			Elo:           data.Elo,
			RankingInTier: data.RankingInTier,
			LastMMRChange: data.MMRChangeToLastGame,
		},
	}

	if data.HighestRank != nil {
		snap.Peak = domain.PeakRank{
			TierID:      data.HighestRank.Tier,
			TierName:    orDefault(data.HighestRank.PatchedTier, unknownValue),
			SeasonShort: orDefault(data.HighestRank.SeasonShort, unknownValue),
			Rating:      data.HighestRank.Converted,
		}
	} else {
		snap.Peak = unknownPeak()
	}

	for seasonID, season := range data.BySeason {
		snap.Seasonal = append(snap.Seasonal, domain.SeasonalRank{
			SeasonID:    seasonID,
			SeasonShort: seasonID,
			EndTierID:   season.FinalRank,
			EndTierName: orDefault(season.FinalRankPatched, unknownValue),
			Wins:        season.Wins,
			Games:       season.NumberOfGames,
		})
	}
	sortSeasonal(snap.Seasonal)

	return snap
}

// sortSeasonal orders seasons by season short, most recent first.
func sortSeasonal(seasons []domain.SeasonalRank) {
	sort.Slice(seasons, func(i, j int) bool {
		return seasons[i].SeasonShort > seasons[j].SeasonShort
	})
}

func unknownPeak() domain.PeakRank {
	return domain.PeakRank{TierName: unknownValue, SeasonShort: unknownValue}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

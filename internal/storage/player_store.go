package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/naheedroomy/valorantsl-new/internal/config"
	"github.com/naheedroomy/valorantsl-new/internal/constants"
	"github.com/naheedroomy/valorantsl-new/internal/domain"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerExists   = errors.New("player already registered")
)

// PlayerStore is the document store for tracked players, keyed by puuid.
type PlayerStore struct {
	collection *mongo.Collection
	logger     zerolog.Logger
}

func NewPlayerStore(client *Client, cfg *config.Config, logger zerolog.Logger) *PlayerStore {
	return &PlayerStore{
		collection: client.Collection(cfg.MongoCollection),
		logger:     logger.With().Str("component", "player_store").Logger(),
	}
}

// PlayerUpdate carries the mutable fields written by a successful refresh.
// The merge never touches puuid or fields outside this set.
type PlayerUpdate struct {
	Name            string
	Tag             string
	RankDetails     domain.RankSnapshot
	PeakRank        domain.PeakRank
	SeasonalRanks   []domain.SeasonalRank
	LastPlayedMatch string
}

// ListPlayerSummaries returns the identity projection of every tracked
// player in one pass.
func (s *PlayerStore) ListPlayerSummaries(ctx context.Context) ([]domain.PlayerSummary, error) {
	opts := options.Find().SetProjection(bson.M{"puuid": 1, "name": 1, "tag": 1, "_id": 0})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []domain.PlayerSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("decoding player summaries: %w", err)
	}

	s.logger.Debug().Int("count", len(summaries)).Msg("listed tracked players")
	return summaries, nil
}

func (s *PlayerStore) GetPlayer(ctx context.Context, puuid string) (*domain.PlayerRecord, error) {
	var record domain.PlayerRecord
	err := s.collection.FindOne(ctx, bson.M{"puuid": puuid}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up player %s: %w", puuid, err)
	}
	return &record, nil
}

// UpdatePlayer merges the refreshed fields into the stored document. It
// never creates a document: a registration must already exist.
func (s *PlayerStore) UpdatePlayer(ctx context.Context, puuid string, update PlayerUpdate) error {
	set := bson.M{
		"name":              update.Name,
		"tag":               update.Tag,
		"rank_details":      update.RankDetails,
		"peak_rank":         update.PeakRank,
		"seasonal_ranks":    update.SeasonalRanks,
		"last_played_match": update.LastPlayedMatch,
		"updated_at":        time.Now().UTC(),
	}

	res, err := s.collection.UpdateOne(ctx, bson.M{"puuid": puuid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("updating player %s: %w", puuid, err)
	}
	if res.MatchedCount == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (s *PlayerStore) RegisterPlayer(ctx context.Context, record *domain.PlayerRecord) error {
	record.UpdatedAt = time.Now().UTC()
	_, err := s.collection.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return ErrPlayerExists
	}
	if err != nil {
		return fmt.Errorf("registering player %s: %w", record.Puuid, err)
	}
	return nil
}

// TopPlayers returns the leaderboard sorted by rating descending, sort
// delegated to the store. Documents that fail full decoding degrade to
// their identity fields instead of failing the listing.
func (s *PlayerStore) TopPlayers(ctx context.Context, limit int) ([]domain.PlayerRecord, error) {
	if limit <= 0 {
		limit = constants.DefaultLeaderboardLimit
	}
	if limit > constants.MaxLeaderboardLimit {
		limit = constants.MaxLeaderboardLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rank_details.elo", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var records []domain.PlayerRecord
	for cursor.Next(ctx) {
		var record domain.PlayerRecord
		if err := cursor.Decode(&record); err != nil {
			var summary domain.PlayerSummary
			if sumErr := cursor.Decode(&summary); sumErr != nil {
				s.logger.Warn().Err(err).Msg("skipping undecodable leaderboard document")
				continue
			}
			s.logger.Warn().Err(err).Str("puuid", summary.Puuid).Msg("document failed full decode, using minimal record")
			record = domain.PlayerRecord{Puuid: summary.Puuid, Name: summary.Name, Tag: summary.Tag}
		}
		records = append(records, record)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating leaderboard: %w", err)
	}
	return records, nil
}

type StoreStats struct {
	TotalPlayers    int64 `json:"total_players"`
	RecentlyUpdated int64 `json:"recently_updated"`
}

func (s *PlayerStore) Stats(ctx context.Context) (StoreStats, error) {
	total, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return StoreStats{}, fmt.Errorf("counting players: %w", err)
	}

	since := time.Now().UTC().Add(-constants.RecentUpdateWindow)
	recent, err := s.collection.CountDocuments(ctx, bson.M{"updated_at": bson.M{"$gte": since}})
	if err != nil {
		return StoreStats{}, fmt.Errorf("counting recent updates: %w", err)
	}

	return StoreStats{TotalPlayers: total, RecentlyUpdated: recent}, nil
}

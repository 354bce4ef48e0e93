package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/naheedroomy/valorantsl-new/internal/constants"
	"github.com/naheedroomy/valorantsl-new/internal/domain"
	"github.com/naheedroomy/valorantsl-new/internal/riot"
	"github.com/naheedroomy/valorantsl-new/internal/storage"
)

// LeaderboardStore is the slice of the player store the API serves from.
type LeaderboardStore interface {
	TopPlayers(ctx context.Context, limit int) ([]domain.PlayerRecord, error)
	GetPlayer(ctx context.Context, puuid string) (*domain.PlayerRecord, error)
	RegisterPlayer(ctx context.Context, record *domain.PlayerRecord) error
	Stats(ctx context.Context) (storage.StoreStats, error)
}

// SnapshotFetcher resolves a new registrant's identity and rank upstream.
type SnapshotFetcher interface {
	FetchRankSnapshot(ctx context.Context, puuid string) (*riot.Snapshot, error)
	FetchLastMatchDate(ctx context.Context, puuid string) (string, error)
	RateLimit() riot.RateLimitInfo
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the read/write JSON API over the leaderboard collection.
type Server struct {
	store   LeaderboardStore
	fetcher SnapshotFetcher
	db      Pinger
	logger  zerolog.Logger
}

func New(store *storage.PlayerStore, db *storage.Client, riotClient *riot.Client, logger zerolog.Logger) *Server {
	return newServer(store, riotClient, db, logger)
}

func newServer(store LeaderboardStore, fetcher SnapshotFetcher, db Pinger, logger zerolog.Logger) *Server {
	return &Server{
		store:   store,
		fetcher: fetcher,
		db:      db,
		logger:  logger.With().Str("component", "server").Logger(),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/v1/players/{puuid}", s.handleGetPlayer)
	mux.HandleFunc("POST /api/v1/register", s.handleRegister)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	return mux
}

type leaderboardResponse struct {
	Entries []domain.PlayerRecord `json:"entries"`
	Total   int                   `json:"total"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	limit := constants.DefaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.store.TopPlayers(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch leaderboard")
		s.writeError(w, http.StatusInternalServerError, "failed to fetch leaderboard")
		return
	}
	if entries == nil {
		entries = []domain.PlayerRecord{}
	}

	s.writeJSON(w, http.StatusOK, leaderboardResponse{Entries: entries, Total: len(entries)})
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	puuid := r.PathValue("puuid")
	record, err := s.store.GetPlayer(ctx, puuid)
	if errors.Is(err, storage.ErrPlayerNotFound) {
		s.writeError(w, http.StatusNotFound, "player not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("puuid", puuid).Msg("failed to fetch player")
		s.writeError(w, http.StatusInternalServerError, "failed to fetch player")
		return
	}

	s.writeJSON(w, http.StatusOK, record)
}

type registerRequest struct {
	Puuid string `json:"puuid"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Puuid == "" {
		s.writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty puuid")
		return
	}

	var (
		snapshot   *riot.Snapshot
		lastPlayed string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot, err = s.fetcher.FetchRankSnapshot(gctx, req.Puuid)
		return err
	})
	g.Go(func() error {
		date, err := s.fetcher.FetchLastMatchDate(gctx, req.Puuid)
		if err != nil {
			// Non-fatal, same as during scheduled updates.
			s.logger.Warn().Err(err).Str("puuid", req.Puuid).Msg("failed to fetch last match date")
			return nil
		}
		lastPlayed = date
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, riot.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no upstream data for this puuid")
			return
		}
		s.logger.Error().Err(err).Str("puuid", req.Puuid).Msg("failed to resolve registrant upstream")
		s.writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}

	record := &domain.PlayerRecord{
		Puuid:           req.Puuid,
		Name:            snapshot.Name,
		Tag:             snapshot.Tag,
		RankDetails:     snapshot.Rank,
		PeakRank:        snapshot.Peak,
		SeasonalRanks:   snapshot.Seasonal,
		LastPlayedMatch: lastPlayed,
	}
	if err := s.store.RegisterPlayer(ctx, record); err != nil {
		if errors.Is(err, storage.ErrPlayerExists) {
			s.writeError(w, http.StatusConflict, "player already registered")
			return
		}
		s.logger.Error().Err(err).Str("puuid", req.Puuid).Msg("failed to register player")
		s.writeError(w, http.StatusInternalServerError, "failed to register player")
		return
	}

	s.logger.Info().Str("puuid", req.Puuid).Str("name", record.Name).Msg("player registered")
	s.writeJSON(w, http.StatusCreated, record)
}

type healthResponse struct {
	Database  string             `json:"database"`
	Players   storage.StoreStats `json:"players"`
	RateLimit riot.RateLimitInfo `json:"upstream_rate_limit"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	resp := healthResponse{Database: "healthy", RateLimit: s.fetcher.RateLimit()}
	status := http.StatusOK

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("database health check failed")
		resp.Database = "unhealthy"
		status = http.StatusServiceUnavailable
	} else if stats, err := s.store.Stats(ctx); err == nil {
		resp.Players = stats
	}

	s.writeJSON(w, status, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	RiotAPIBaseURL string
	RiotAPIKey     string
	RiotRegion     string
	RiotPlatform   string

	UpdateInterval time.Duration
	RequestDelay   time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	ServerPort string
	LogLevel   string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		RiotAPIBaseURL:  getEnv("RIOT_API_BASE_URL", "https://api.henrikdev.xyz"),
		RiotAPIKey:      getEnv("RIOT_API_KEY", ""),
		RiotRegion:      getEnv("RIOT_REGION", "ap"),
		RiotPlatform:    getEnv("RIOT_PLATFORM", "pc"),
		UpdateInterval:  time.Duration(getEnvInt("UPDATE_INTERVAL_MINUTES", 30)) * time.Minute,
		RequestDelay:    getEnvSeconds("RATE_LIMIT_DELAY_SECONDS", 2.5),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		RetryDelay:      getEnvSeconds("RETRY_DELAY_SECONDS", 2),
		MongoURI:        getEnv("MONGODB_URI", ""),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "live"),
		MongoCollection: getEnv("MONGODB_COLLECTION", "user_leaderboard_complete"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", cfg.MaxRetries)
	}

	logger.Info().
		Str("base_url", cfg.RiotAPIBaseURL).
		Str("region", cfg.RiotRegion).
		Str("platform", cfg.RiotPlatform).
		Str("database", cfg.MongoDatabase).
		Str("collection", cfg.MongoCollection).
		Dur("update_interval", cfg.UpdateInterval).
		Dur("request_delay", cfg.RequestDelay).
		Int("max_retries", cfg.MaxRetries).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback float64) time.Duration {
	secs := fallback
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			secs = f
		}
	}
	return time.Duration(secs * float64(time.Second))
}

var Module = fx.Provide(Load)

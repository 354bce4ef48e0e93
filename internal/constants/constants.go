package constants

import "time"

const (
	ExternalAPITimeout = 30 * time.Second
	DatabaseTimeout    = 5 * time.Second
	ConnectTimeout     = 10 * time.Second
	RequestTimeout     = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
)

const (
	// ProgressLogInterval is how many players the updater processes between
	// progress log lines.
	ProgressLogInterval = 10
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 200
)

const (
	// RecentUpdateWindow bounds the "recently updated" count reported by the
	// health endpoint.
	RecentUpdateWindow = time.Hour
)

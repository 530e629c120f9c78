package constants

import "time"

// cache lifetimes per data class
const (
	RosterCacheTTL        = 5 * time.Minute
	ProfileCacheTTL       = 10 * time.Minute
	MatchStatsCacheTTL    = 3 * time.Minute
	RatingHistoryCacheTTL = 2 * time.Minute
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	RatingHistoryLimit    = 50
	RecentDeltaLimit      = 10
	MomentumMatchLimit    = 200
	DefaultStoreRateMax   = 10
	DefaultStoreRateBurst = 5
)

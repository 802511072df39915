package database

import "time"

// Time interval constants for TimescaleDB operations
const (
	// Hypertable chunk intervals
	ChunkInterval1Day  = 1 * 24 * time.Hour
	ChunkInterval7Days = 7 * 24 * time.Hour

	// Compression: rows older than this become columnar and immutable
	CompressAfter = 7 * 24 * time.Hour

	// Continuous aggregate refresh cadence
	RefreshIntervalDaily  = 1 * time.Hour
	RefreshIntervalWeekly = 6 * time.Hour

	// Continuous aggregate refresh windows
	StartOffsetDaily  = 3 * 24 * time.Hour
	EndOffsetDaily    = 1 * time.Hour
	StartOffsetWeekly = 21 * 24 * time.Hour
	EndOffsetWeekly   = 1 * 24 * time.Hour

	// Data retention horizons per entity
	RetentionPlayerStats = 2 * 365 * 24 * time.Hour
	RetentionGameStates  = 365 * 24 * time.Hour
	RetentionPredictions = 6 * 30 * 24 * time.Hour
	RetentionOwnership   = 365 * 24 * time.Hour
	RetentionInjuries    = 6 * 30 * 24 * time.Hour
	RetentionWeather     = 365 * 24 * time.Hour

	// Aggregate views outlive their raw rows
	RetentionAggregates = 5 * 365 * 24 * time.Hour
)

// Granularity routing thresholds for aggregate-mode queries. Windows at or
// under DailyWindowMax hit the daily view, windows over WeeklyWindowMin hit
// the weekly view, everything in between reads raw hypertables.
const (
	DailyWindowMax  = 24 * time.Hour
	WeeklyWindowMin = 7 * 24 * time.Hour
)

// Package types defines the closed set of time-series entity kinds and the
// request/result shapes shared by the write path, query path, and cache layer.
package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EntityType identifies one of the six time-series entity kinds. The set is
// closed: every switch over it in the write and query paths is exhaustive.
type EntityType int

const (
	EntityPlayerStat EntityType = iota
	EntityGameState
	EntityPrediction
	EntityOwnership
	EntityInjuryReport
	EntityWeather
)

// Entities lists every entity kind, in a fixed order.
func Entities() []EntityType {
	return []EntityType{
		EntityPlayerStat,
		EntityGameState,
		EntityPrediction,
		EntityOwnership,
		EntityInjuryReport,
		EntityWeather,
	}
}

// String returns the stable name used in cache keys and logs.
func (e EntityType) String() string {
	switch e {
	case EntityPlayerStat:
		return "player_stat"
	case EntityGameState:
		return "game_state"
	case EntityPrediction:
		return "prediction"
	case EntityOwnership:
		return "ownership"
	case EntityInjuryReport:
		return "injury_report"
	case EntityWeather:
		return "weather"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// TableName returns the hypertable backing this entity kind.
func (e EntityType) TableName() string {
	switch e {
	case EntityPlayerStat:
		return "player_stats"
	case EntityGameState:
		return "game_states"
	case EntityPrediction:
		return "predictions"
	case EntityOwnership:
		return "ownership_snapshots"
	case EntityInjuryReport:
		return "injury_reports"
	case EntityWeather:
		return "weather_observations"
	default:
		return ""
	}
}

// TimeColumn returns the partitioning column for this entity kind.
func (e EntityType) TimeColumn() string {
	return "timestamp"
}

// Valid reports whether e is one of the six known kinds.
func (e EntityType) Valid() bool {
	return e >= EntityPlayerStat && e <= EntityWeather
}

// ParseEntityType maps a stable name back to its EntityType.
func ParseEntityType(s string) (EntityType, error) {
	for _, e := range Entities() {
		if e.String() == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown entity type: %q", s)
}

// Point is implemented by each of the six entity models. It exposes the
// pieces the write path needs without reflection: the entity kind, the event
// time, the natural key (excluding timestamp), and row-level validation.
type Point interface {
	Entity() EntityType
	At() time.Time
	// NaturalKey uniquely identifies the conceptual entity instance within
	// one timestamp (e.g. player+game). Used for in-batch deduplication.
	NaturalKey() string
	Validate() error
}

// QueryMode selects between raw hypertable reads and pre-aggregated views.
type QueryMode string

const (
	ModeRaw       QueryMode = "raw"
	ModeAggregate QueryMode = "aggregate"
)

// Filters narrows a range query. Zero values mean "not set".
type Filters struct {
	PlayerID string
	GameID   string
	Team     string
	Position string
	Platform string
	ModelID  string
	Season   int
	Week     int

	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// Fields returns the set filter fields as name→value pairs. Names are sorted
// by the caller when building cache keys so equivalent queries always hash
// identically regardless of how the request was assembled.
func (f Filters) Fields() map[string]string {
	fields := make(map[string]string)
	if f.PlayerID != "" {
		fields["player_id"] = f.PlayerID
	}
	if f.GameID != "" {
		fields["game_id"] = f.GameID
	}
	if f.Team != "" {
		fields["team"] = f.Team
	}
	if f.Position != "" {
		fields["position"] = f.Position
	}
	if f.Platform != "" {
		fields["platform"] = f.Platform
	}
	if f.ModelID != "" {
		fields["model_id"] = f.ModelID
	}
	if f.Season != 0 {
		fields["season"] = fmt.Sprintf("%d", f.Season)
	}
	if f.Week != 0 {
		fields["week"] = fmt.Sprintf("%d", f.Week)
	}
	if !f.StartTime.IsZero() {
		fields["start"] = f.StartTime.UTC().Format(time.RFC3339)
	}
	if !f.EndTime.IsZero() {
		fields["end"] = f.EndTime.UTC().Format(time.RFC3339)
	}
	if f.Limit > 0 {
		fields["limit"] = fmt.Sprintf("%d", f.Limit)
	}
	return fields
}

// Window returns the query time span, or zero if either bound is unset.
func (f Filters) Window() time.Duration {
	if f.StartTime.IsZero() || f.EndTime.IsZero() {
		return 0
	}
	return f.EndTime.Sub(f.StartTime)
}

// CanonicalKey renders the sorted field pairs as "k=v|k=v|...".
func (f Filters) CanonicalKey() string {
	fields := f.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(fields[name])
	}
	return b.String()
}

// QueryRequest describes one range/filter query.
type QueryRequest struct {
	Entity  EntityType
	Filters Filters
	Mode    QueryMode

	// CacheStrategy overrides the configured default when set:
	// "never", "always", or "smart".
	CacheStrategy string

	// Priority is advisory metadata from the caller; the storage layer
	// records it but does not schedule on it.
	Priority string
}

// InsertRequest describes one homogeneous batch write.
type InsertRequest struct {
	Entity EntityType
	Points []Point

	// Source and Confidence are batch-level defaults. A point with an empty
	// data source or a zero confidence inherits them: zero means "unset", so
	// a point cannot carry an explicit confidence of exactly 0 past these
	// defaults. Callers meaning "no confidence at all" should leave the
	// batch default at 0 as well.
	Source     string
	Confidence float64

	// Deduplicate collapses points sharing a natural key within the batch,
	// keeping the last occurrence. Independent of the database's own
	// conflict resolution.
	Deduplicate bool
}

// InsertResult reports per-batch write counts. Row-level validation failures
// land in Errors; they never abort the batch.
type InsertResult struct {
	Inserted     int `json:"inserted"`
	Deduplicated int `json:"deduplicated"`
	Errors       int `json:"errors"`
}

// AggregateSummary holds derived metrics over a player's aggregated window.
type AggregateSummary struct {
	Avg              float64 `json:"avg"`
	Total            float64 `json:"total"`
	ConsistencyScore float64 `json:"consistency_score"`
	RecentTrend      float64 `json:"recent_trend"`
	Count            int64   `json:"count"`
}

// CostMetrics reports the current state of the spend ledger.
type CostMetrics struct {
	DailyCost         float64  `json:"daily_cost"`
	MonthlyProjection float64  `json:"monthly_projection"`
	QueryCount        int64    `json:"query_count"`
	StorageEstimate   int64    `json:"storage_estimate_bytes"`
	Recommendations   []string `json:"recommendations"`
}

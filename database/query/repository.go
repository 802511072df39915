// Package query implements the read path: filtered range scans over the
// entity hypertables, granularity routing into the continuous aggregate
// views, and derived per-player summary metrics.
package query

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"gridiron-datastore/database"
	models "gridiron-datastore/database/models_pkg"
	"gridiron-datastore/database/types"
)

const defaultQueryLimit = 1000

// View names for the continuous aggregates over player_stats.
const (
	ViewPlayerStatsDaily  = "player_stats_daily"
	ViewPlayerStatsWeekly = "player_stats_weekly"
)

// Repository handles range/filter reads for all six entity kinds.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new read-path repository
func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db.DB()}
}

// Query runs one range/filter read and returns the result rows together with
// the row count (the count drives query cost accounting). Raw reads return
// the entity's concrete model slice ordered newest first; aggregate-mode
// reads that route to a view return []models.PlayerStatAggregate in bucket
// order.
func (r *Repository) Query(ctx context.Context, req types.QueryRequest) (interface{}, int, error) {
	if !req.Entity.Valid() {
		return nil, 0, fmt.Errorf("query: invalid entity type %d", int(req.Entity))
	}

	if req.Mode == types.ModeAggregate && req.Entity == types.EntityPlayerStat {
		if view := RouteView(req.Filters.Window()); view != "" {
			rows, err := r.queryView(ctx, view, req.Filters)
			if err != nil {
				return nil, 0, err
			}
			return rows, len(rows), nil
		}
	}

	return r.queryRaw(ctx, req)
}

// RouteView picks the continuous aggregate for an aggregate-mode window.
// Short windows resolve from the daily view, long windows from the weekly
// view, and anything in between returns "" to fall back to the raw
// hypertable. Pure function, no I/O.
func RouteView(window time.Duration) string {
	switch {
	case window <= 0:
		return ""
	case window <= database.DailyWindowMax:
		return ViewPlayerStatsDaily
	case window > database.WeeklyWindowMin:
		return ViewPlayerStatsWeekly
	default:
		return ""
	}
}

func (r *Repository) queryView(ctx context.Context, view string, f types.Filters) ([]models.PlayerStatAggregate, error) {
	tx := r.db.WithContext(ctx).Table(view)
	if f.PlayerID != "" {
		tx = tx.Where("player_id = ?", f.PlayerID)
	}
	if f.Team != "" {
		tx = tx.Where("team = ?", f.Team)
	}
	if f.Position != "" {
		tx = tx.Where("position = ?", f.Position)
	}
	if !f.StartTime.IsZero() {
		tx = tx.Where("bucket >= ?", f.StartTime)
	}
	if !f.EndTime.IsZero() {
		tx = tx.Where("bucket <= ?", f.EndTime)
	}
	tx = tx.Order("bucket ASC").Limit(effectiveLimit(f.Limit))

	var rows []models.PlayerStatAggregate
	if err := tx.Find(&rows).Error; err != nil {
		return nil, database.ClassifyQueryError("query_"+view, err)
	}
	return rows, nil
}

// queryRaw reads the entity's hypertable directly, newest rows first. The
// switch is exhaustive over the closed entity set.
func (r *Repository) queryRaw(ctx context.Context, req types.QueryRequest) (interface{}, int, error) {
	tx := r.applyFilters(r.db.WithContext(ctx), req.Entity, req.Filters).
		Order("timestamp DESC").
		Limit(effectiveLimit(req.Filters.Limit))

	switch req.Entity {
	case types.EntityPlayerStat:
		var rows []models.PlayerStat
		if err := tx.Find(&rows).Error; err != nil {
			return nil, 0, database.ClassifyQueryError("query_player_stats", err)
		}
		return rows, len(rows), nil
	case types.EntityGameState:
		var rows []models.GameState
		if err := tx.Find(&rows).Error; err != nil {
			return nil, 0, database.ClassifyQueryError("query_game_states", err)
		}
		return rows, len(rows), nil
	case types.EntityPrediction:
		var rows []models.Prediction
		if err := tx.Find(&rows).Error; err != nil {
			return nil, 0, database.ClassifyQueryError("query_predictions", err)
		}
		return rows, len(rows), nil
	case types.EntityOwnership:
		var rows []models.OwnershipSnapshot
		if err := tx.Find(&rows).Error; err != nil {
			return nil, 0, database.ClassifyQueryError("query_ownership", err)
		}
		return rows, len(rows), nil
	case types.EntityInjuryReport:
		var rows []models.InjuryReport
		if err := tx.Find(&rows).Error; err != nil {
			return nil, 0, database.ClassifyQueryError("query_injury_reports", err)
		}
		return rows, len(rows), nil
	case types.EntityWeather:
		var rows []models.WeatherObservation
		if err := tx.Find(&rows).Error; err != nil {
			return nil, 0, database.ClassifyQueryError("query_weather", err)
		}
		return rows, len(rows), nil
	default:
		return nil, 0, fmt.Errorf("query: unhandled entity type %s", req.Entity)
	}
}

// applyFilters narrows the scan to the fields each entity actually indexes.
// Unset fields (zero values) add no conditions.
func (r *Repository) applyFilters(tx *gorm.DB, entity types.EntityType, f types.Filters) *gorm.DB {
	tx = tx.Table(entity.TableName())

	switch entity {
	case types.EntityPlayerStat:
		if f.PlayerID != "" {
			tx = tx.Where("player_id = ?", f.PlayerID)
		}
		if f.GameID != "" {
			tx = tx.Where("game_id = ?", f.GameID)
		}
		if f.Team != "" {
			tx = tx.Where("team = ?", f.Team)
		}
		if f.Position != "" {
			tx = tx.Where("position = ?", f.Position)
		}
		if f.Season != 0 {
			tx = tx.Where("season = ?", f.Season)
		}
		if f.Week != 0 {
			tx = tx.Where("week = ?", f.Week)
		}
	case types.EntityGameState:
		if f.GameID != "" {
			tx = tx.Where("game_id = ?", f.GameID)
		}
		if f.Team != "" {
			tx = tx.Where("home_team = ? OR away_team = ?", f.Team, f.Team)
		}
	case types.EntityPrediction:
		if f.PlayerID != "" {
			tx = tx.Where("player_id = ?", f.PlayerID)
		}
		if f.GameID != "" {
			tx = tx.Where("game_id = ?", f.GameID)
		}
		if f.ModelID != "" {
			tx = tx.Where("model_id = ?", f.ModelID)
		}
	case types.EntityOwnership:
		if f.PlayerID != "" {
			tx = tx.Where("player_id = ?", f.PlayerID)
		}
		if f.Platform != "" {
			tx = tx.Where("platform = ?", f.Platform)
		}
	case types.EntityInjuryReport:
		if f.PlayerID != "" {
			tx = tx.Where("player_id = ?", f.PlayerID)
		}
		if f.Team != "" {
			tx = tx.Where("team = ?", f.Team)
		}
	case types.EntityWeather:
		if f.GameID != "" {
			tx = tx.Where("game_id = ?", f.GameID)
		}
	}

	if !f.StartTime.IsZero() {
		tx = tx.Where("timestamp >= ?", f.StartTime)
	}
	if !f.EndTime.IsZero() {
		tx = tx.Where("timestamp <= ?", f.EndTime)
	}
	return tx
}

// Aggregates reads a player's weekly buckets over [start, end], oldest first.
func (r *Repository) Aggregates(ctx context.Context, playerID string, start, end time.Time) ([]models.PlayerStatAggregate, error) {
	var rows []models.PlayerStatAggregate
	err := r.db.WithContext(ctx).
		Table(ViewPlayerStatsWeekly).
		Where("player_id = ?", playerID).
		Where("bucket >= ? AND bucket <= ?", start, end).
		Order("bucket ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.ClassifyQueryError("query_aggregates", err)
	}
	return rows, nil
}

// Summarize derives the per-player summary metrics from weekly buckets.
// Pure function, no I/O:
//   - Avg is the game-weighted mean of the bucket averages
//   - Total reconstructs the summed fantasy points
//   - ConsistencyScore is max(0, 100 - (stddev/mean)*100) over per-bucket
//     averages, 100 when there is no variance to measure
//   - RecentTrend is (latest - mean)/mean rounded to 2 decimals
func Summarize(rows []models.PlayerStatAggregate) types.AggregateSummary {
	if len(rows) == 0 {
		return types.AggregateSummary{}
	}

	var total float64
	var count int64
	for _, row := range rows {
		n := row.GameCount
		if n < 1 {
			n = 1
		}
		total += row.AvgFantasyPoints * float64(n)
		count += n
	}
	mean := total / float64(count)

	summary := types.AggregateSummary{
		Avg:   round2(mean),
		Total: round2(total),
		Count: count,
	}

	if mean != 0 {
		stddev := sampleStddev(rows)
		score := 100 - (stddev/mean)*100
		if score < 0 {
			score = 0
		}
		summary.ConsistencyScore = round2(score)

		latest := rows[len(rows)-1].AvgFantasyPoints
		summary.RecentTrend = round2((latest - mean) / mean)
	}
	return summary
}

// sampleStddev computes the sample standard deviation of the per-bucket
// average fantasy points. A single bucket has no spread.
func sampleStddev(rows []models.PlayerStatAggregate) float64 {
	if len(rows) < 2 {
		return 0
	}
	var sum float64
	for _, row := range rows {
		sum += row.AvgFantasyPoints
	}
	mean := sum / float64(len(rows))

	var ss float64
	for _, row := range rows {
		d := row.AvgFantasyPoints - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(rows)-1))
}

// StorageEstimate sums hypertable_size over every entity hypertable. Returns
// bytes; a zero with no error means TimescaleDB had nothing to report yet.
func (r *Repository) StorageEstimate(ctx context.Context) (int64, error) {
	var total int64
	for _, entity := range types.Entities() {
		var size *int64
		err := r.db.WithContext(ctx).
			Raw("SELECT hypertable_size(?)", entity.TableName()).
			Scan(&size).Error
		if err != nil {
			return 0, database.ClassifyQueryError("storage_estimate", err)
		}
		if size != nil {
			total += *size
		}
	}
	return total, nil
}

func effectiveLimit(limit int) int {
	if limit <= 0 || limit > defaultQueryLimit {
		return defaultQueryLimit
	}
	return limit
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

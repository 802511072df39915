// Package schema owns the TimescaleDB layout: hypertables for the six entity
// kinds, compression and retention policies, and the continuous aggregate
// views. GORM AutoMigrate fights hypertables with attached views, so every
// object is managed with explicit DDL.
package schema

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"gridiron-datastore/config"
	"gridiron-datastore/database"
	"gridiron-datastore/database/types"
)

// Manager performs idempotent schema initialization. Safe to run on every
// process start; any failure is fatal for startup and identifies the DDL step.
type Manager struct {
	db  *gorm.DB
	cfg config.StorageConfig
}

// NewManager creates a new schema manager
func NewManager(db *database.Database, cfg config.StorageConfig) *Manager {
	return &Manager{db: db.DB(), cfg: cfg}
}

// Initialize creates the extension, hypertables, indexes, lifecycle policies,
// and continuous aggregates. Every statement is re-appliable: tables and
// views use IF NOT EXISTS, policies use if_not_exists => TRUE.
func (m *Manager) Initialize() error {
	log.Println("🔄 Starting database schema initialization...")

	if err := m.step("create_extension", "CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE"); err != nil {
		return err
	}

	if err := m.createTables(); err != nil {
		return err
	}
	if err := m.createHypertables(); err != nil {
		return err
	}
	if err := m.createIndexes(); err != nil {
		return err
	}
	if m.cfg.CompressionEnabled {
		if err := m.applyCompressionPolicies(); err != nil {
			return err
		}
	} else {
		log.Println("ℹ️  Compression policies disabled by configuration")
	}
	if err := m.applyRetentionPolicies(); err != nil {
		return err
	}
	if err := m.createContinuousAggregates(); err != nil {
		return err
	}

	log.Println("✅ Database schema initialization completed successfully")
	return nil
}

func (m *Manager) step(name, sql string) error {
	if err := m.db.Exec(sql).Error; err != nil {
		log.Printf("❌ Schema step %s failed: %v", name, err)
		return &database.SchemaInitError{Step: name, Err: err}
	}
	return nil
}

func (m *Manager) createTables() error {
	if err := m.step("create_player_stats", `
		CREATE TABLE IF NOT EXISTS player_stats (
			timestamp TIMESTAMPTZ NOT NULL,
			player_id VARCHAR(40) NOT NULL,
			game_id VARCHAR(40) NOT NULL,
			team VARCHAR(5),
			opponent VARCHAR(5),
			position VARCHAR(5),
			week INTEGER,
			season INTEGER,
			fantasy_points DECIMAL(8,2) NOT NULL,
			pass_yards DECIMAL(8,2),
			pass_tds INTEGER,
			interceptions INTEGER,
			rush_yards DECIMAL(8,2),
			rush_tds INTEGER,
			receptions INTEGER,
			rec_yards DECIMAL(8,2),
			rec_tds INTEGER,
			fumbles INTEGER,
			snap_count INTEGER,
			target_share DECIMAL(5,4),
			air_yards DECIMAL(8,2),
			temperature_f DECIMAL(5,2),
			wind_mph DECIMAL(5,2),
			data_source VARCHAR(40) NOT NULL,
			confidence DECIMAL(4,3) NOT NULL,
			PRIMARY KEY (timestamp, player_id, game_id)
		)
	`); err != nil {
		return err
	}

	if err := m.step("create_game_states", `
		CREATE TABLE IF NOT EXISTS game_states (
			timestamp TIMESTAMPTZ NOT NULL,
			game_id VARCHAR(40) NOT NULL,
			home_team VARCHAR(5) NOT NULL,
			away_team VARCHAR(5) NOT NULL,
			home_score INTEGER,
			away_score INTEGER,
			quarter INTEGER,
			clock VARCHAR(8),
			possession VARCHAR(5),
			down INTEGER,
			distance INTEGER,
			yard_line INTEGER,
			game_script DECIMAL(6,3),
			win_probability DECIMAL(5,4),
			data_source VARCHAR(40) NOT NULL,
			confidence DECIMAL(4,3) NOT NULL,
			PRIMARY KEY (timestamp, game_id)
		)
	`); err != nil {
		return err
	}

	if err := m.step("create_predictions", `
		CREATE TABLE IF NOT EXISTS predictions (
			prediction_id VARCHAR(64) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			model_id VARCHAR(40) NOT NULL,
			model_version VARCHAR(20),
			player_id VARCHAR(40),
			game_id VARCHAR(40),
			prediction_type VARCHAR(30) NOT NULL,
			predicted_value DECIMAL(10,3) NOT NULL,
			features JSONB,
			actual_value DECIMAL(10,3),
			is_validated BOOLEAN DEFAULT FALSE,
			accuracy DECIMAL(5,4),
			data_source VARCHAR(40) NOT NULL,
			confidence DECIMAL(4,3) NOT NULL,
			PRIMARY KEY (prediction_id, timestamp)
		)
	`); err != nil {
		return err
	}

	if err := m.step("create_ownership_snapshots", `
		CREATE TABLE IF NOT EXISTS ownership_snapshots (
			timestamp TIMESTAMPTZ NOT NULL,
			player_id VARCHAR(40) NOT NULL,
			platform VARCHAR(20) NOT NULL,
			slate_id VARCHAR(40),
			ownership_pct DECIMAL(5,2) NOT NULL,
			projected_ownership DECIMAL(5,2),
			salary INTEGER,
			data_source VARCHAR(40) NOT NULL,
			confidence DECIMAL(4,3) NOT NULL,
			PRIMARY KEY (timestamp, player_id, platform)
		)
	`); err != nil {
		return err
	}

	if err := m.step("create_injury_reports", `
		CREATE TABLE IF NOT EXISTS injury_reports (
			timestamp TIMESTAMPTZ NOT NULL,
			player_id VARCHAR(40) NOT NULL,
			team VARCHAR(5),
			status VARCHAR(20) NOT NULL,
			body_part VARCHAR(30),
			practice_status VARCHAR(20),
			expected_return TIMESTAMPTZ,
			notes TEXT,
			data_source VARCHAR(40) NOT NULL,
			confidence DECIMAL(4,3) NOT NULL,
			PRIMARY KEY (timestamp, player_id)
		)
	`); err != nil {
		return err
	}

	if err := m.step("create_weather_observations", `
		CREATE TABLE IF NOT EXISTS weather_observations (
			timestamp TIMESTAMPTZ NOT NULL,
			game_id VARCHAR(40) NOT NULL,
			stadium VARCHAR(60),
			temperature_f DECIMAL(5,2) NOT NULL,
			wind_mph DECIMAL(5,2),
			precipitation_pct DECIMAL(5,2),
			humidity_pct DECIMAL(5,2),
			is_dome BOOLEAN DEFAULT FALSE,
			data_source VARCHAR(40) NOT NULL,
			confidence DECIMAL(4,3) NOT NULL,
			PRIMARY KEY (timestamp, game_id)
		)
	`); err != nil {
		return err
	}

	return nil
}

// chunkIntervals maps each hypertable to its chunk width. Game states and
// the narrow snapshot tables arrive at high frequency, so they chunk daily.
var chunkIntervals = map[types.EntityType]time.Duration{
	types.EntityPlayerStat:   database.ChunkInterval7Days,
	types.EntityGameState:    database.ChunkInterval1Day,
	types.EntityPrediction:   database.ChunkInterval7Days,
	types.EntityOwnership:    database.ChunkInterval1Day,
	types.EntityInjuryReport: database.ChunkInterval7Days,
	types.EntityWeather:      database.ChunkInterval1Day,
}

func (m *Manager) createHypertables() error {
	for _, entity := range types.Entities() {
		sql := fmt.Sprintf(`
			SELECT create_hypertable('%s', '%s',
				chunk_time_interval => INTERVAL '%s',
				if_not_exists => TRUE
			)
		`, entity.TableName(), entity.TimeColumn(), intervalLiteral(chunkIntervals[entity]))
		if err := m.step("hypertable_"+entity.TableName(), sql); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) createIndexes() error {
	indexes := map[string]string{
		"idx_player_stats_player": `
			CREATE INDEX IF NOT EXISTS idx_player_stats_player
			ON player_stats (player_id, timestamp DESC)`,
		"idx_player_stats_season_week": `
			CREATE INDEX IF NOT EXISTS idx_player_stats_season_week
			ON player_stats (season, week, player_id)`,
		"idx_game_states_game": `
			CREATE INDEX IF NOT EXISTS idx_game_states_game
			ON game_states (game_id, timestamp DESC)`,
		"idx_predictions_model": `
			CREATE INDEX IF NOT EXISTS idx_predictions_model
			ON predictions (model_id, timestamp DESC)`,
		"idx_predictions_player": `
			CREATE INDEX IF NOT EXISTS idx_predictions_player
			ON predictions (player_id, timestamp DESC)
			WHERE player_id IS NOT NULL`,
		"idx_ownership_player": `
			CREATE INDEX IF NOT EXISTS idx_ownership_player
			ON ownership_snapshots (player_id, platform, timestamp DESC)`,
		"idx_injury_player": `
			CREATE INDEX IF NOT EXISTS idx_injury_player
			ON injury_reports (player_id, timestamp DESC)`,
		"idx_weather_game": `
			CREATE INDEX IF NOT EXISTS idx_weather_game
			ON weather_observations (game_id, timestamp DESC)`,
	}
	for name, sql := range indexes {
		if err := m.step(name, sql); err != nil {
			return err
		}
	}
	return nil
}

// compressionSegments maps each hypertable to its compress_segmentby column
// list: the entity's natural key minus the timestamp, so columnar chunks
// stay queryable by key.
var compressionSegments = map[types.EntityType]string{
	types.EntityPlayerStat:   "player_id,game_id",
	types.EntityGameState:    "game_id",
	types.EntityPrediction:   "model_id",
	types.EntityOwnership:    "player_id,platform",
	types.EntityInjuryReport: "player_id",
	types.EntityWeather:      "game_id",
}

func (m *Manager) applyCompressionPolicies() error {
	for _, entity := range types.Entities() {
		table := entity.TableName()
		alter := fmt.Sprintf(`
			ALTER TABLE %s SET (
				timescaledb.compress,
				timescaledb.compress_segmentby = '%s',
				timescaledb.compress_orderby = 'timestamp DESC'
			)
		`, table, compressionSegments[entity])
		if err := m.step("compress_settings_"+table, alter); err != nil {
			return err
		}

		policy := fmt.Sprintf(`
			SELECT add_compression_policy('%s', INTERVAL '%s', if_not_exists => TRUE)
		`, table, intervalLiteral(database.CompressAfter))
		if err := m.step("compress_policy_"+table, policy); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) applyRetentionPolicies() error {
	for _, entity := range types.Entities() {
		table := entity.TableName()
		sql := fmt.Sprintf(`
			SELECT add_retention_policy('%s', INTERVAL '%s', if_not_exists => TRUE)
		`, table, intervalLiteral(m.retentionFor(entity)))
		if err := m.step("retention_"+table, sql); err != nil {
			return err
		}
	}
	return nil
}

// retentionFor resolves an entity's horizon, applying any configured override.
func (m *Manager) retentionFor(entity types.EntityType) time.Duration {
	defaults := map[types.EntityType]time.Duration{
		types.EntityPlayerStat:   database.RetentionPlayerStats,
		types.EntityGameState:    database.RetentionGameStates,
		types.EntityPrediction:   database.RetentionPredictions,
		types.EntityOwnership:    database.RetentionOwnership,
		types.EntityInjuryReport: database.RetentionInjuries,
		types.EntityWeather:      database.RetentionWeather,
	}
	overrides := map[types.EntityType]int{
		types.EntityPlayerStat:   m.cfg.RetentionPlayerStatsDays,
		types.EntityGameState:    m.cfg.RetentionGameStatesDays,
		types.EntityPrediction:   m.cfg.RetentionPredictionsDays,
		types.EntityOwnership:    m.cfg.RetentionOwnershipDays,
		types.EntityInjuryReport: m.cfg.RetentionInjuriesDays,
		types.EntityWeather:      m.cfg.RetentionWeatherDays,
	}
	if days := overrides[entity]; days > 0 {
		return time.Duration(days) * 24 * time.Hour
	}
	return defaults[entity]
}

func (m *Manager) createContinuousAggregates() error {
	if err := m.step("cagg_player_stats_daily", `
		CREATE MATERIALIZED VIEW IF NOT EXISTS player_stats_daily
		WITH (timescaledb.continuous) AS
		SELECT
			time_bucket('1 day', timestamp) AS bucket,
			player_id,
			MAX(team) AS team,
			MAX(position) AS position,
			AVG(fantasy_points) AS avg_fantasy_points,
			MAX(fantasy_points) AS max_fantasy_points,
			MIN(fantasy_points) AS min_fantasy_points,
			STDDEV(fantasy_points) AS stddev_fantasy_points,
			SUM(snap_count) AS total_snaps,
			COUNT(*) AS game_count
		FROM player_stats
		GROUP BY bucket, player_id
	`); err != nil {
		return err
	}

	if err := m.step("cagg_policy_daily", fmt.Sprintf(`
		SELECT add_continuous_aggregate_policy('player_stats_daily',
			start_offset => INTERVAL '%s',
			end_offset => INTERVAL '%s',
			schedule_interval => INTERVAL '%s',
			if_not_exists => TRUE
		)
	`, intervalLiteral(database.StartOffsetDaily), intervalLiteral(database.EndOffsetDaily), intervalLiteral(database.RefreshIntervalDaily))); err != nil {
		return err
	}

	if err := m.step("cagg_player_stats_weekly", `
		CREATE MATERIALIZED VIEW IF NOT EXISTS player_stats_weekly
		WITH (timescaledb.continuous) AS
		SELECT
			time_bucket('7 days', timestamp) AS bucket,
			player_id,
			MAX(team) AS team,
			MAX(position) AS position,
			AVG(fantasy_points) AS avg_fantasy_points,
			MAX(fantasy_points) AS max_fantasy_points,
			MIN(fantasy_points) AS min_fantasy_points,
			STDDEV(fantasy_points) AS stddev_fantasy_points,
			SUM(snap_count) AS total_snaps,
			COUNT(*) AS game_count
		FROM player_stats
		GROUP BY bucket, player_id
	`); err != nil {
		return err
	}

	if err := m.step("cagg_policy_weekly", fmt.Sprintf(`
		SELECT add_continuous_aggregate_policy('player_stats_weekly',
			start_offset => INTERVAL '%s',
			end_offset => INTERVAL '%s',
			schedule_interval => INTERVAL '%s',
			if_not_exists => TRUE
		)
	`, intervalLiteral(database.StartOffsetWeekly), intervalLiteral(database.EndOffsetWeekly), intervalLiteral(database.RefreshIntervalWeekly))); err != nil {
		return err
	}

	// Aggregate views outlive their raw rows
	for _, view := range []string{"player_stats_daily", "player_stats_weekly"} {
		sql := fmt.Sprintf(`
			SELECT add_retention_policy('%s', INTERVAL '%s', if_not_exists => TRUE)
		`, view, intervalLiteral(database.RetentionAggregates))
		if err := m.step("retention_"+view, sql); err != nil {
			return err
		}
	}

	return nil
}

// intervalLiteral renders a duration as a Postgres INTERVAL body, preferring
// whole days and falling back to hours.
func intervalLiteral(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	}
	return fmt.Sprintf("%d hours", int(d/time.Hour))
}

// Package models defines the six time-series entity kinds stored by
// gridiron-datastore, plus the row shapes of the continuous aggregate views.
// Models live in their own package to avoid circular import dependencies
// between the schema, ingest, and query packages.
package models

import (
	"fmt"
	"math"
	"time"

	"gridiron-datastore/database/types"
)

// PlayerStat represents one player's stat line at a point in time.
// Stored in a hypertable keyed (timestamp, player_id, game_id); during a live
// game the same natural key is rewritten repeatedly as the box score evolves.
//
// Key Fields:
//   - Timestamp: observation time (partitioning column)
//   - PlayerID/GameID: natural key alongside the timestamp
//   - FantasyPoints: the headline measure, aggregated by the daily/weekly views
//   - SnapCount/TargetShare/AirYards: advanced usage metrics
//   - DataSource/Confidence: provenance; conflicts merge on max confidence
//
// TimescaleDB Optimization:
//   - 7-day chunks, compressed after 7 days, retained 2 years
//   - Feeds the player_stats_daily and player_stats_weekly continuous aggregates
type PlayerStat struct {
	Timestamp time.Time `gorm:"primaryKey;not null" json:"timestamp"`
	PlayerID  string    `gorm:"size:40;primaryKey;not null" json:"player_id"`
	GameID    string    `gorm:"size:40;primaryKey;not null" json:"game_id"`

	Team     string `gorm:"size:5;index" json:"team"`
	Opponent string `gorm:"size:5" json:"opponent"`
	Position string `gorm:"size:5;index" json:"position"`
	Week     int    `gorm:"index" json:"week"`
	Season   int    `gorm:"index" json:"season"`

	FantasyPoints float64 `gorm:"type:decimal(8,2);not null" json:"fantasy_points"`

	// Raw box score
	PassYards     float64 `gorm:"type:decimal(8,2)" json:"pass_yards"`
	PassTDs       int     `json:"pass_tds"`
	Interceptions int     `json:"interceptions"`
	RushYards     float64 `gorm:"type:decimal(8,2)" json:"rush_yards"`
	RushTDs       int     `json:"rush_tds"`
	Receptions    int     `json:"receptions"`
	RecYards      float64 `gorm:"type:decimal(8,2)" json:"rec_yards"`
	RecTDs        int     `json:"rec_tds"`
	Fumbles       int     `json:"fumbles"`

	// Advanced usage metrics
	SnapCount   int      `json:"snap_count"`
	TargetShare *float64 `gorm:"type:decimal(5,4)" json:"target_share,omitempty"`
	AirYards    *float64 `gorm:"type:decimal(8,2)" json:"air_yards,omitempty"`

	// Environmental context captured with the stat line
	TemperatureF *float64 `gorm:"type:decimal(5,2)" json:"temperature_f,omitempty"`
	WindMPH      *float64 `gorm:"type:decimal(5,2)" json:"wind_mph,omitempty"`

	DataSource string  `gorm:"size:40;not null" json:"data_source"`
	Confidence float64 `gorm:"type:decimal(4,3);not null" json:"confidence"`
}

// TableName specifies the table name for PlayerStat
func (PlayerStat) TableName() string {
	return "player_stats"
}

// Entity implements types.Point
func (PlayerStat) Entity() types.EntityType { return types.EntityPlayerStat }

// At implements types.Point
func (p PlayerStat) At() time.Time { return p.Timestamp }

// NaturalKey implements types.Point
func (p PlayerStat) NaturalKey() string {
	return p.PlayerID + "/" + p.GameID
}

// Validate implements types.Point
func (p PlayerStat) Validate() error {
	if p.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if p.PlayerID == "" {
		return fmt.Errorf("player_id is required")
	}
	if p.GameID == "" {
		return fmt.Errorf("game_id is required")
	}
	if !isFinite(p.FantasyPoints) {
		return fmt.Errorf("fantasy_points must be a finite number")
	}
	return validateConfidence(p.Confidence)
}

// GameState represents a live score/clock/possession snapshot for one game.
// Keyed (timestamp, game_id); a new row lands every few seconds while a game
// is in progress.
type GameState struct {
	Timestamp time.Time `gorm:"primaryKey;not null" json:"timestamp"`
	GameID    string    `gorm:"size:40;primaryKey;not null" json:"game_id"`

	HomeTeam  string `gorm:"size:5;not null" json:"home_team"`
	AwayTeam  string `gorm:"size:5;not null" json:"away_team"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Quarter   int    `json:"quarter"`
	Clock     string `gorm:"size:8" json:"clock"`

	Possession string `gorm:"size:5" json:"possession,omitempty"`
	Down       *int   `json:"down,omitempty"`
	Distance   *int   `json:"distance,omitempty"`
	YardLine   *int   `json:"yard_line,omitempty"`

	// Derived metrics computed upstream of storage
	GameScript     *float64 `gorm:"type:decimal(6,3)" json:"game_script,omitempty"`
	WinProbability *float64 `gorm:"type:decimal(5,4)" json:"win_probability,omitempty"`

	DataSource string  `gorm:"size:40;not null" json:"data_source"`
	Confidence float64 `gorm:"type:decimal(4,3);not null" json:"confidence"`
}

// TableName specifies the table name for GameState
func (GameState) TableName() string {
	return "game_states"
}

// Entity implements types.Point
func (GameState) Entity() types.EntityType { return types.EntityGameState }

// At implements types.Point
func (g GameState) At() time.Time { return g.Timestamp }

// NaturalKey implements types.Point
func (g GameState) NaturalKey() string { return g.GameID }

// Validate implements types.Point
func (g GameState) Validate() error {
	if g.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if g.GameID == "" {
		return fmt.Errorf("game_id is required")
	}
	if g.HomeScore < 0 || g.AwayScore < 0 {
		return fmt.Errorf("scores must be non-negative")
	}
	return validateConfidence(g.Confidence)
}

// Prediction represents one model's forecast for a player or game.
// PredictionID is globally unique and immutable once created; only
// ActualValue, IsValidated, and Accuracy may change afterwards (outcome
// resolution). The unique index includes the timestamp because hypertable
// constraints must cover the partitioning column.
type Prediction struct {
	PredictionID string    `gorm:"size:64;primaryKey;not null" json:"prediction_id"`
	Timestamp    time.Time `gorm:"primaryKey;not null" json:"timestamp"`

	ModelID      string  `gorm:"size:40;index;not null" json:"model_id"`
	ModelVersion string  `gorm:"size:20" json:"model_version"`
	PlayerID     *string `gorm:"size:40;index" json:"player_id,omitempty"`
	GameID       *string `gorm:"size:40;index" json:"game_id,omitempty"`

	PredictionType string  `gorm:"size:30;not null" json:"prediction_type"` // e.g. FANTASY_POINTS, GAME_TOTAL
	PredictedValue float64 `gorm:"type:decimal(10,3);not null" json:"predicted_value"`
	Features       string  `gorm:"type:jsonb" json:"features,omitempty"` // model input vector

	// Outcome resolution, written post-hoc
	ActualValue *float64 `gorm:"type:decimal(10,3)" json:"actual_value,omitempty"`
	IsValidated bool     `gorm:"default:false" json:"is_validated"`
	Accuracy    *float64 `gorm:"type:decimal(5,4)" json:"accuracy,omitempty"`

	DataSource string  `gorm:"size:40;not null" json:"data_source"`
	Confidence float64 `gorm:"type:decimal(4,3);not null" json:"confidence"`
}

// TableName specifies the table name for Prediction
func (Prediction) TableName() string {
	return "predictions"
}

// Entity implements types.Point
func (Prediction) Entity() types.EntityType { return types.EntityPrediction }

// At implements types.Point
func (p Prediction) At() time.Time { return p.Timestamp }

// NaturalKey implements types.Point
func (p Prediction) NaturalKey() string { return p.PredictionID }

// Validate implements types.Point
func (p Prediction) Validate() error {
	if p.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if p.PredictionID == "" {
		return fmt.Errorf("prediction_id is required")
	}
	if p.ModelID == "" {
		return fmt.Errorf("model_id is required")
	}
	if p.PlayerID == nil && p.GameID == nil {
		return fmt.Errorf("prediction must reference a player or a game")
	}
	if !isFinite(p.PredictedValue) {
		return fmt.Errorf("predicted_value must be a finite number")
	}
	return validateConfidence(p.Confidence)
}

// OwnershipSnapshot represents projected or actual roster ownership for one
// player on one contest platform. Keyed (timestamp, player_id, platform).
type OwnershipSnapshot struct {
	Timestamp time.Time `gorm:"primaryKey;not null" json:"timestamp"`
	PlayerID  string    `gorm:"size:40;primaryKey;not null" json:"player_id"`
	Platform  string    `gorm:"size:20;primaryKey;not null" json:"platform"`

	SlateID            string   `gorm:"size:40;index" json:"slate_id,omitempty"`
	OwnershipPct       float64  `gorm:"type:decimal(5,2);not null" json:"ownership_pct"`
	ProjectedOwnership *float64 `gorm:"type:decimal(5,2)" json:"projected_ownership,omitempty"`
	Salary             *int     `json:"salary,omitempty"`

	DataSource string  `gorm:"size:40;not null" json:"data_source"`
	Confidence float64 `gorm:"type:decimal(4,3);not null" json:"confidence"`
}

// TableName specifies the table name for OwnershipSnapshot
func (OwnershipSnapshot) TableName() string {
	return "ownership_snapshots"
}

// Entity implements types.Point
func (OwnershipSnapshot) Entity() types.EntityType { return types.EntityOwnership }

// At implements types.Point
func (o OwnershipSnapshot) At() time.Time { return o.Timestamp }

// NaturalKey implements types.Point
func (o OwnershipSnapshot) NaturalKey() string {
	return o.PlayerID + "/" + o.Platform
}

// Validate implements types.Point
func (o OwnershipSnapshot) Validate() error {
	if o.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if o.PlayerID == "" {
		return fmt.Errorf("player_id is required")
	}
	if o.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	if o.OwnershipPct < 0 || o.OwnershipPct > 100 {
		return fmt.Errorf("ownership_pct must be within [0,100]")
	}
	return validateConfidence(o.Confidence)
}

// InjuryReport represents one player's injury designation at a point in time.
// Keyed (timestamp, player_id).
type InjuryReport struct {
	Timestamp time.Time `gorm:"primaryKey;not null" json:"timestamp"`
	PlayerID  string    `gorm:"size:40;primaryKey;not null" json:"player_id"`

	Team           string     `gorm:"size:5" json:"team"`
	Status         string     `gorm:"size:20;not null" json:"status"` // QUESTIONABLE, DOUBTFUL, OUT, IR
	BodyPart       string     `gorm:"size:30" json:"body_part,omitempty"`
	PracticeStatus string     `gorm:"size:20" json:"practice_status,omitempty"` // DNP, LIMITED, FULL
	ExpectedReturn *time.Time `json:"expected_return,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`

	DataSource string  `gorm:"size:40;not null" json:"data_source"`
	Confidence float64 `gorm:"type:decimal(4,3);not null" json:"confidence"`
}

// TableName specifies the table name for InjuryReport
func (InjuryReport) TableName() string {
	return "injury_reports"
}

// Entity implements types.Point
func (InjuryReport) Entity() types.EntityType { return types.EntityInjuryReport }

// At implements types.Point
func (i InjuryReport) At() time.Time { return i.Timestamp }

// NaturalKey implements types.Point
func (i InjuryReport) NaturalKey() string { return i.PlayerID }

// Validate implements types.Point
func (i InjuryReport) Validate() error {
	if i.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if i.PlayerID == "" {
		return fmt.Errorf("player_id is required")
	}
	if i.Status == "" {
		return fmt.Errorf("status is required")
	}
	return validateConfidence(i.Confidence)
}

// WeatherObservation represents stadium weather for one game at a point in
// time. Keyed (timestamp, game_id).
type WeatherObservation struct {
	Timestamp time.Time `gorm:"primaryKey;not null" json:"timestamp"`
	GameID    string    `gorm:"size:40;primaryKey;not null" json:"game_id"`

	Stadium          string   `gorm:"size:60" json:"stadium,omitempty"`
	TemperatureF     float64  `gorm:"type:decimal(5,2);not null" json:"temperature_f"`
	WindMPH          float64  `gorm:"type:decimal(5,2)" json:"wind_mph"`
	PrecipitationPct *float64 `gorm:"type:decimal(5,2)" json:"precipitation_pct,omitempty"`
	HumidityPct      *float64 `gorm:"type:decimal(5,2)" json:"humidity_pct,omitempty"`
	IsDome           bool     `gorm:"default:false" json:"is_dome"`

	DataSource string  `gorm:"size:40;not null" json:"data_source"`
	Confidence float64 `gorm:"type:decimal(4,3);not null" json:"confidence"`
}

// TableName specifies the table name for WeatherObservation
func (WeatherObservation) TableName() string {
	return "weather_observations"
}

// Entity implements types.Point
func (WeatherObservation) Entity() types.EntityType { return types.EntityWeather }

// At implements types.Point
func (w WeatherObservation) At() time.Time { return w.Timestamp }

// NaturalKey implements types.Point
func (w WeatherObservation) NaturalKey() string { return w.GameID }

// Validate implements types.Point
func (w WeatherObservation) Validate() error {
	if w.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if w.GameID == "" {
		return fmt.Errorf("game_id is required")
	}
	if !isFinite(w.TemperatureF) {
		return fmt.Errorf("temperature_f must be a finite number")
	}
	return validateConfidence(w.Confidence)
}

// PlayerStatAggregate is the row shape shared by the player_stats_daily and
// player_stats_weekly continuous aggregate views. The views are derived,
// read-only projections; they are never written to directly.
type PlayerStatAggregate struct {
	Bucket   time.Time `gorm:"primaryKey" json:"bucket"`
	PlayerID string    `gorm:"primaryKey" json:"player_id"`
	Team     string    `json:"team"`
	Position string    `json:"position"`

	AvgFantasyPoints    float64  `json:"avg_fantasy_points"`
	MaxFantasyPoints    float64  `json:"max_fantasy_points"`
	MinFantasyPoints    float64  `json:"min_fantasy_points"`
	StddevFantasyPoints *float64 `json:"stddev_fantasy_points,omitempty"`
	TotalSnaps          int64    `json:"total_snaps"`
	GameCount           int64    `json:"game_count"`
}

func validateConfidence(c float64) error {
	if c < 0 || c > 1 || math.IsNaN(c) {
		return fmt.Errorf("confidence must be within [0,1], got %v", c)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

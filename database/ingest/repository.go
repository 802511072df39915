// Package ingest implements the write path: validated, optionally
// deduplicated, transactional batch upserts into the entity hypertables.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gridiron-datastore/database"
	models "gridiron-datastore/database/models_pkg"
	"gridiron-datastore/database/types"
)

const writeBatchSize = 500

// Repository handles batch writes for all six entity kinds.
type Repository struct {
	db *gorm.DB

	// onWrite is notified after each successful batch so cached query
	// results for the written entity type can be dropped. Entity-type
	// granularity keeps invalidation O(1).
	onWrite func(types.EntityType)
}

// NewRepository creates a new write-path repository
func NewRepository(db *database.Database, onWrite func(types.EntityType)) *Repository {
	return &Repository{db: db.DB(), onWrite: onWrite}
}

// InsertBatch persists one homogeneous batch of points. Row-level validation
// failures are dropped and counted, never silently merged and never fatal for
// the batch. The surviving rows commit in a single all-or-nothing
// transaction; on any transaction-level failure nothing is persisted and a
// TransactionError (or ConnectivityError) is returned.
func (r *Repository) InsertBatch(ctx context.Context, req types.InsertRequest) (*types.InsertResult, error) {
	if !req.Entity.Valid() {
		return nil, fmt.Errorf("insert: invalid entity type %d", int(req.Entity))
	}

	result := &types.InsertResult{}

	valid := make([]types.Point, 0, len(req.Points))
	for _, p := range req.Points {
		if p == nil {
			result.Errors++
			continue
		}
		point, ok := normalize(p, req.Source, req.Confidence)
		if !ok || point.Entity() != req.Entity {
			result.Errors++
			continue
		}
		if err := point.Validate(); err != nil {
			result.Errors++
			continue
		}
		valid = append(valid, point)
	}

	if req.Deduplicate {
		var dropped int
		valid, dropped = dedupe(valid)
		result.Deduplicated = dropped
	}

	if len(valid) == 0 {
		return result, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsert(tx, req.Entity, valid)
	})
	if err != nil {
		return nil, database.ClassifyWriteError("insert_"+req.Entity.String(), err)
	}

	result.Inserted = len(valid)
	if r.onWrite != nil {
		r.onWrite(req.Entity)
	}
	return result, nil
}

// ResolvePrediction records the observed outcome for a prediction. Only
// actual_value, is_validated, and accuracy change; prediction_id and the
// forecast itself are immutable once created.
func (r *Repository) ResolvePrediction(ctx context.Context, predictionID string, actualValue float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pred models.Prediction
		err := tx.Where("prediction_id = ?", predictionID).
			Order("timestamp DESC").
			First(&pred).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("prediction %s not found", predictionID)
		}
		if err != nil {
			return err
		}

		accuracy := PredictionAccuracy(pred.PredictedValue, actualValue)
		return tx.Model(&models.Prediction{}).
			Where("prediction_id = ?", predictionID).
			Updates(map[string]interface{}{
				"actual_value": actualValue,
				"is_validated": true,
				"accuracy":     accuracy,
			}).Error
	})
}

// PredictionAccuracy scores a resolved prediction in [0,1]: 1 is exact,
// falling off with the relative error (absolute error for small actuals).
func PredictionAccuracy(predicted, actual float64) float64 {
	scale := math.Abs(actual)
	if scale < 1 {
		scale = 1
	}
	acc := 1 - math.Abs(actual-predicted)/scale
	if acc < 0 {
		return 0
	}
	return acc
}

// normalize reduces a point to its concrete model value and fills in
// request-level source and confidence where the point carried none. Pointer
// forms satisfy types.Point through the value-receiver method set, so they
// are dereferenced here; anything else (including typed nil pointers) is
// rejected so the upsert's value assertions can never panic.
func normalize(p types.Point, source string, confidence float64) (types.Point, bool) {
	switch v := p.(type) {
	case models.PlayerStat:
		return fillPlayerStat(v, source, confidence), true
	case *models.PlayerStat:
		if v == nil {
			return nil, false
		}
		return fillPlayerStat(*v, source, confidence), true
	case models.GameState:
		return fillGameState(v, source, confidence), true
	case *models.GameState:
		if v == nil {
			return nil, false
		}
		return fillGameState(*v, source, confidence), true
	case models.Prediction:
		return fillPrediction(v, source, confidence), true
	case *models.Prediction:
		if v == nil {
			return nil, false
		}
		return fillPrediction(*v, source, confidence), true
	case models.OwnershipSnapshot:
		return fillOwnership(v, source, confidence), true
	case *models.OwnershipSnapshot:
		if v == nil {
			return nil, false
		}
		return fillOwnership(*v, source, confidence), true
	case models.InjuryReport:
		return fillInjuryReport(v, source, confidence), true
	case *models.InjuryReport:
		if v == nil {
			return nil, false
		}
		return fillInjuryReport(*v, source, confidence), true
	case models.WeatherObservation:
		return fillWeather(v, source, confidence), true
	case *models.WeatherObservation:
		if v == nil {
			return nil, false
		}
		return fillWeather(*v, source, confidence), true
	default:
		return nil, false
	}
}

func fillPlayerStat(v models.PlayerStat, source string, confidence float64) models.PlayerStat {
	if v.DataSource == "" {
		v.DataSource = source
	}
	if v.Confidence == 0 {
		v.Confidence = confidence
	}
	return v
}

func fillGameState(v models.GameState, source string, confidence float64) models.GameState {
	if v.DataSource == "" {
		v.DataSource = source
	}
	if v.Confidence == 0 {
		v.Confidence = confidence
	}
	return v
}

func fillPrediction(v models.Prediction, source string, confidence float64) models.Prediction {
	if v.DataSource == "" {
		v.DataSource = source
	}
	if v.Confidence == 0 {
		v.Confidence = confidence
	}
	return v
}

func fillOwnership(v models.OwnershipSnapshot, source string, confidence float64) models.OwnershipSnapshot {
	if v.DataSource == "" {
		v.DataSource = source
	}
	if v.Confidence == 0 {
		v.Confidence = confidence
	}
	return v
}

func fillInjuryReport(v models.InjuryReport, source string, confidence float64) models.InjuryReport {
	if v.DataSource == "" {
		v.DataSource = source
	}
	if v.Confidence == 0 {
		v.Confidence = confidence
	}
	return v
}

func fillWeather(v models.WeatherObservation, source string, confidence float64) models.WeatherObservation {
	if v.DataSource == "" {
		v.DataSource = source
	}
	if v.Confidence == 0 {
		v.Confidence = confidence
	}
	return v
}

// dedupe collapses points sharing an upsert conflict key within one batch,
// keeping the last occurrence. The key includes the timestamp because that
// is the uniqueness boundary the database resolves on; without this, two
// identical keys in one INSERT would make ON CONFLICT fail the whole batch.
func dedupe(points []types.Point) ([]types.Point, int) {
	type slot struct{ idx int }
	seen := make(map[string]slot, len(points))
	out := make([]types.Point, 0, len(points))
	dropped := 0

	for _, p := range points {
		key := p.At().UTC().Format(time.RFC3339Nano) + "|" + p.NaturalKey()
		if s, ok := seen[key]; ok {
			out[s.idx] = p // keep the last occurrence in the earlier position
			dropped++
			continue
		}
		seen[key] = slot{idx: len(out)}
		out = append(out, p)
	}
	return out, dropped
}

// upsert converts the batch to its concrete model slice and writes it with
// the entity's conflict clause. The switch is exhaustive over the closed
// entity set.
func upsert(tx *gorm.DB, entity types.EntityType, points []types.Point) error {
	switch entity {
	case types.EntityPlayerStat:
		rows := make([]models.PlayerStat, len(points))
		for i, p := range points {
			rows[i] = p.(models.PlayerStat)
		}
		return tx.Clauses(conflictClause(entity)).CreateInBatches(rows, writeBatchSize).Error
	case types.EntityGameState:
		rows := make([]models.GameState, len(points))
		for i, p := range points {
			rows[i] = p.(models.GameState)
		}
		return tx.Clauses(conflictClause(entity)).CreateInBatches(rows, writeBatchSize).Error
	case types.EntityPrediction:
		rows := make([]models.Prediction, len(points))
		for i, p := range points {
			rows[i] = p.(models.Prediction)
		}
		return tx.Clauses(conflictClause(entity)).CreateInBatches(rows, writeBatchSize).Error
	case types.EntityOwnership:
		rows := make([]models.OwnershipSnapshot, len(points))
		for i, p := range points {
			rows[i] = p.(models.OwnershipSnapshot)
		}
		return tx.Clauses(conflictClause(entity)).CreateInBatches(rows, writeBatchSize).Error
	case types.EntityInjuryReport:
		rows := make([]models.InjuryReport, len(points))
		for i, p := range points {
			rows[i] = p.(models.InjuryReport)
		}
		return tx.Clauses(conflictClause(entity)).CreateInBatches(rows, writeBatchSize).Error
	case types.EntityWeather:
		rows := make([]models.WeatherObservation, len(points))
		for i, p := range points {
			rows[i] = p.(models.WeatherObservation)
		}
		return tx.Clauses(conflictClause(entity)).CreateInBatches(rows, writeBatchSize).Error
	default:
		return fmt.Errorf("upsert: unhandled entity type %s", entity)
	}
}

// volatileColumns lists the fields overwritten on a natural-key collision.
// Confidence is excluded here: it merges with GREATEST so a record is never
// confidence-downgraded. Prediction outcome fields are excluded so re-sent
// forecasts cannot clobber a resolution.
var volatileColumns = map[types.EntityType][]string{
	types.EntityPlayerStat: {
		"team", "opponent", "position", "week", "season",
		"fantasy_points", "pass_yards", "pass_tds", "interceptions",
		"rush_yards", "rush_tds", "receptions", "rec_yards", "rec_tds",
		"fumbles", "snap_count", "target_share", "air_yards",
		"temperature_f", "wind_mph", "data_source",
	},
	types.EntityGameState: {
		"home_team", "away_team", "home_score", "away_score", "quarter",
		"clock", "possession", "down", "distance", "yard_line",
		"game_script", "win_probability", "data_source",
	},
	types.EntityPrediction: {
		"model_version", "predicted_value", "features", "data_source",
	},
	types.EntityOwnership: {
		"slate_id", "ownership_pct", "projected_ownership", "salary", "data_source",
	},
	types.EntityInjuryReport: {
		"team", "status", "body_part", "practice_status",
		"expected_return", "notes", "data_source",
	},
	types.EntityWeather: {
		"stadium", "temperature_f", "wind_mph", "precipitation_pct",
		"humidity_pct", "is_dome", "data_source",
	},
}

// conflictKeys lists the unique-constraint columns the upsert resolves on.
var conflictKeys = map[types.EntityType][]string{
	types.EntityPlayerStat:   {"timestamp", "player_id", "game_id"},
	types.EntityGameState:    {"timestamp", "game_id"},
	types.EntityPrediction:   {"prediction_id", "timestamp"},
	types.EntityOwnership:    {"timestamp", "player_id", "platform"},
	types.EntityInjuryReport: {"timestamp", "player_id"},
	types.EntityWeather:      {"timestamp", "game_id"},
}

// conflictClause builds the ON CONFLICT clause implementing the canonical
// merge: overwrite volatile fields, take the maximum confidence seen.
func conflictClause(entity types.EntityType) clause.OnConflict {
	keys := conflictKeys[entity]
	cols := make([]clause.Column, len(keys))
	for i, k := range keys {
		cols[i] = clause.Column{Name: k}
	}

	assignments := make(map[string]interface{}, len(volatileColumns[entity])+1)
	for _, col := range volatileColumns[entity] {
		assignments[col] = gorm.Expr("EXCLUDED." + col)
	}
	assignments["confidence"] = gorm.Expr(
		fmt.Sprintf("GREATEST(%s.confidence, EXCLUDED.confidence)", entity.TableName()))

	return clause.OnConflict{
		Columns:   cols,
		DoUpdates: clause.Assignments(assignments),
	}
}

package ingest

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"gorm.io/gorm/clause"

	models "gridiron-datastore/database/models_pkg"
	"gridiron-datastore/database/types"
)

var ts = time.Date(2025, 9, 7, 18, 0, 0, 0, time.UTC)

func stat(playerID, gameID string, points, confidence float64) models.PlayerStat {
	return models.PlayerStat{
		Timestamp:     ts,
		PlayerID:      playerID,
		GameID:        gameID,
		FantasyPoints: points,
		DataSource:    "sportsfeed",
		Confidence:    confidence,
	}
}

func TestDedupeKeepsLastOccurrence(t *testing.T) {
	points := []types.Point{
		stat("p1", "g1", 10.0, 0.9),
		stat("p2", "g1", 8.0, 0.9),
		stat("p1", "g1", 12.5, 0.9), // same key and timestamp as the first
	}

	out, dropped := dedupe(points)
	if dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}

	kept := out[0].(models.PlayerStat)
	if kept.FantasyPoints != 12.5 {
		t.Errorf("expected last occurrence to win, got %v points", kept.FantasyPoints)
	}
}

func TestDedupeDistinguishesTimestamps(t *testing.T) {
	a := stat("p1", "g1", 10.0, 0.9)
	b := stat("p1", "g1", 14.0, 0.9)
	b.Timestamp = ts.Add(time.Minute)

	out, dropped := dedupe([]types.Point{a, b})
	if dropped != 0 {
		t.Errorf("expected no drops for distinct timestamps, got %d", dropped)
	}
	if len(out) != 2 {
		t.Errorf("expected both points kept, got %d", len(out))
	}
}

func TestInsertBatchCountsInvalidRows(t *testing.T) {
	// All-invalid batches resolve before any database work.
	repo := &Repository{}

	bad := stat("", "g1", 10.0, 0.9)         // missing player
	worse := stat("p1", "g1", 10.0, 1.5)     // confidence out of range
	wrongKind := models.GameState{GameID: "g1", Timestamp: ts, Confidence: 0.9}

	result, err := repo.InsertBatch(context.Background(), types.InsertRequest{
		Entity: types.EntityPlayerStat,
		Points: []types.Point{bad, worse, wrongKind, nil},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Errors != 4 {
		t.Errorf("expected 4 errors, got %d", result.Errors)
	}
	if result.Inserted != 0 || result.Deduplicated != 0 {
		t.Errorf("expected nothing inserted, got %+v", result)
	}
}

func TestInsertBatchRejectsInvalidEntity(t *testing.T) {
	repo := &Repository{}
	if _, err := repo.InsertBatch(context.Background(), types.InsertRequest{Entity: types.EntityType(99)}); err == nil {
		t.Error("expected error for invalid entity type")
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	p := models.PlayerStat{Timestamp: ts, PlayerID: "p1", GameID: "g1", FantasyPoints: 9.0}

	point, ok := normalize(p, "sportsfeed", 0.85)
	if !ok {
		t.Fatal("expected value point to normalize")
	}
	got := point.(models.PlayerStat)
	if got.DataSource != "sportsfeed" {
		t.Errorf("expected source default, got %q", got.DataSource)
	}
	// A zero confidence means "use the request default".
	if got.Confidence != 0.85 {
		t.Errorf("expected confidence default, got %v", got.Confidence)
	}

	// Point-level values win over request-level defaults.
	p.DataSource = "scraper"
	p.Confidence = 0.5
	point, _ = normalize(p, "sportsfeed", 0.85)
	got = point.(models.PlayerStat)
	if got.DataSource != "scraper" || got.Confidence != 0.5 {
		t.Errorf("expected point values preserved, got %q/%v", got.DataSource, got.Confidence)
	}
}

func TestNormalizeDereferencesPointerPoints(t *testing.T) {
	// Pointer forms satisfy types.Point too; the upsert asserts value types,
	// so normalize must hand back the dereferenced value.
	p := &models.PlayerStat{
		Timestamp:     ts,
		PlayerID:      "p1",
		GameID:        "g1",
		FantasyPoints: 12.5,
		Confidence:    0.9,
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("fixture must be valid: %v", err)
	}

	point, ok := normalize(p, "sportsfeed", 0.85)
	if !ok {
		t.Fatal("expected pointer point to normalize")
	}
	got, isValue := point.(models.PlayerStat)
	if !isValue {
		t.Fatalf("expected value type after normalize, got %T", point)
	}
	if got.PlayerID != "p1" || got.FantasyPoints != 12.5 {
		t.Errorf("dereferenced point lost data: %+v", got)
	}

	gs, ok := normalize(&models.GameState{Timestamp: ts, GameID: "g1", Confidence: 0.9}, "", 0)
	if !ok {
		t.Fatal("expected pointer game state to normalize")
	}
	if _, isValue := gs.(models.GameState); !isValue {
		t.Errorf("expected value type after normalize, got %T", gs)
	}
}

func TestNormalizeRejectsNilAndForeignPoints(t *testing.T) {
	var nilStat *models.PlayerStat
	if _, ok := normalize(nilStat, "sportsfeed", 0.9); ok {
		t.Error("expected typed nil pointer to be rejected")
	}
	if _, ok := normalize(foreignPoint{}, "sportsfeed", 0.9); ok {
		t.Error("expected unknown point implementation to be rejected")
	}
}

// foreignPoint claims to be a player stat without being one.
type foreignPoint struct{}

func (foreignPoint) Entity() types.EntityType { return types.EntityPlayerStat }
func (foreignPoint) At() time.Time            { return ts }
func (foreignPoint) NaturalKey() string       { return "p1/g1" }
func (foreignPoint) Validate() error          { return nil }

func TestInsertBatchHandlesPointerPoints(t *testing.T) {
	repo := &Repository{}

	invalid := &models.PlayerStat{Timestamp: ts, GameID: "g1", Confidence: 0.9} // missing player
	result, err := repo.InsertBatch(context.Background(), types.InsertRequest{
		Entity: types.EntityPlayerStat,
		Points: []types.Point{invalid, foreignPoint{}, (*models.PlayerStat)(nil)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Errors != 3 {
		t.Errorf("expected 3 errors, got %d", result.Errors)
	}
	if result.Inserted != 0 {
		t.Errorf("expected nothing inserted, got %d", result.Inserted)
	}
}

func TestConflictMapsCoverAllEntities(t *testing.T) {
	for _, entity := range types.Entities() {
		if len(conflictKeys[entity]) == 0 {
			t.Errorf("missing conflict keys for %s", entity)
		}
		if len(volatileColumns[entity]) == 0 {
			t.Errorf("missing volatile columns for %s", entity)
		}
		c := conflictClause(entity)
		if len(c.Columns) != len(conflictKeys[entity]) {
			t.Errorf("conflict clause for %s has %d columns, expected %d",
				entity, len(c.Columns), len(conflictKeys[entity]))
		}
	}
}

// assignmentsByColumn indexes a conflict clause's update set for assertions.
func assignmentsByColumn(t *testing.T, entity types.EntityType) map[string]clause.Assignment {
	t.Helper()
	set := conflictClause(entity).DoUpdates
	if len(set) == 0 {
		t.Fatalf("expected a non-empty update list for %s", entity)
	}
	assigned := make(map[string]clause.Assignment, len(set))
	for _, a := range set {
		assigned[a.Column.Name] = a
	}
	return assigned
}

func TestConflictClauseMergesMaxConfidence(t *testing.T) {
	for _, entity := range types.Entities() {
		t.Run(entity.String(), func(t *testing.T) {
			assigned := assignmentsByColumn(t, entity)

			a, ok := assigned["confidence"]
			if !ok {
				t.Fatal("expected a confidence assignment")
			}
			expr, ok := a.Value.(clause.Expr)
			if !ok {
				t.Fatalf("expected confidence to merge via expression, got %T", a.Value)
			}
			want := fmt.Sprintf("GREATEST(%s.confidence, EXCLUDED.confidence)", entity.TableName())
			if expr.SQL != want {
				t.Errorf("expected %q, got %q", want, expr.SQL)
			}
		})
	}
}

func TestConflictClauseOverwritesVolatileColumns(t *testing.T) {
	for _, entity := range types.Entities() {
		t.Run(entity.String(), func(t *testing.T) {
			assigned := assignmentsByColumn(t, entity)

			for _, col := range volatileColumns[entity] {
				a, ok := assigned[col]
				if !ok {
					t.Errorf("expected assignment for volatile column %s", col)
					continue
				}
				expr, ok := a.Value.(clause.Expr)
				if !ok || expr.SQL != "EXCLUDED."+col {
					t.Errorf("expected %s to take EXCLUDED.%s, got %v", col, col, a.Value)
				}
			}

			// Conflict key columns are never rewritten.
			for _, key := range conflictKeys[entity] {
				if _, ok := assigned[key]; ok {
					t.Errorf("conflict key column %s must not be assigned", key)
				}
			}
		})
	}
}

func TestConflictClausePreservesPredictionOutcome(t *testing.T) {
	// A re-sent forecast must not clobber a resolution.
	assigned := assignmentsByColumn(t, types.EntityPrediction)

	for _, col := range []string{"actual_value", "is_validated", "accuracy"} {
		if _, ok := assigned[col]; ok {
			t.Errorf("outcome column %s must be excluded from the overwrite set", col)
		}
	}
	if _, ok := assigned["predicted_value"]; !ok {
		t.Error("expected predicted_value to remain overwritable")
	}
}

func TestPredictionAccuracy(t *testing.T) {
	tests := []struct {
		name      string
		predicted float64
		actual    float64
		expected  float64
	}{
		{"exact", 20.0, 20.0, 1.0},
		{"close", 18.0, 20.0, 0.9},
		{"half off", 10.0, 20.0, 0.5},
		{"way off", 60.0, 20.0, 0},
		{"small actual uses absolute error", 0.5, 0.2, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictionAccuracy(tt.predicted, tt.actual)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

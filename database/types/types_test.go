package types

import (
	"testing"
	"time"
)

func TestEntityTypeNames(t *testing.T) {
	tests := []struct {
		entity EntityType
		name   string
		table  string
	}{
		{EntityPlayerStat, "player_stat", "player_stats"},
		{EntityGameState, "game_state", "game_states"},
		{EntityPrediction, "prediction", "predictions"},
		{EntityOwnership, "ownership", "ownership_snapshots"},
		{EntityInjuryReport, "injury_report", "injury_reports"},
		{EntityWeather, "weather", "weather_observations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entity.String(); got != tt.name {
				t.Errorf("expected name %s, got %s", tt.name, got)
			}
			if got := tt.entity.TableName(); got != tt.table {
				t.Errorf("expected table %s, got %s", tt.table, got)
			}
			if !tt.entity.Valid() {
				t.Errorf("expected %s to be valid", tt.name)
			}
		})
	}
}

func TestParseEntityTypeRoundTrip(t *testing.T) {
	for _, entity := range Entities() {
		parsed, err := ParseEntityType(entity.String())
		if err != nil {
			t.Fatalf("ParseEntityType(%s) failed: %v", entity, err)
		}
		if parsed != entity {
			t.Errorf("expected %v, got %v", entity, parsed)
		}
	}

	if _, err := ParseEntityType("bogus"); err == nil {
		t.Error("expected error for unknown entity name")
	}
}

func TestEntityTypeValid(t *testing.T) {
	if EntityType(-1).Valid() {
		t.Error("expected -1 to be invalid")
	}
	if EntityType(99).Valid() {
		t.Error("expected 99 to be invalid")
	}
}

func TestCanonicalKeyDeterministic(t *testing.T) {
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	a := Filters{PlayerID: "p1", Team: "KC", Season: 2025, StartTime: start, EndTime: end}
	b := Filters{EndTime: end, Season: 2025, StartTime: start, Team: "KC", PlayerID: "p1"}

	if a.CanonicalKey() != b.CanonicalKey() {
		t.Errorf("equivalent filters produced different keys:\n%s\n%s",
			a.CanonicalKey(), b.CanonicalKey())
	}
}

func TestCanonicalKeySortedAndOmitsUnset(t *testing.T) {
	f := Filters{Week: 5, PlayerID: "p1"}
	expected := "player_id=p1|week=5"
	if got := f.CanonicalKey(); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}

	if got := (Filters{}).CanonicalKey(); got != "" {
		t.Errorf("expected empty key for empty filters, got %q", got)
	}
}

func TestCanonicalKeyDiffersByValue(t *testing.T) {
	a := Filters{PlayerID: "p1"}
	b := Filters{PlayerID: "p2"}
	if a.CanonicalKey() == b.CanonicalKey() {
		t.Error("different filters must not share a key")
	}
}

func TestWindow(t *testing.T) {
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filters  Filters
		expected time.Duration
	}{
		{"both bounds", Filters{StartTime: start, EndTime: start.Add(48 * time.Hour)}, 48 * time.Hour},
		{"missing end", Filters{StartTime: start}, 0},
		{"missing start", Filters{EndTime: start}, 0},
		{"unbounded", Filters{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filters.Window(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

package schema

import (
	"testing"
	"time"

	"gridiron-datastore/config"
	"gridiron-datastore/database"
	"gridiron-datastore/database/types"
)

func TestIntervalLiteral(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"one day", 24 * time.Hour, "1 days"},
		{"seven days", 7 * 24 * time.Hour, "7 days"},
		{"two years", 2 * 365 * 24 * time.Hour, "730 days"},
		{"one hour", time.Hour, "1 hours"},
		{"six hours", 6 * time.Hour, "6 hours"},
		{"36 hours stays hours", 36 * time.Hour, "36 hours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := intervalLiteral(tt.duration); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRetentionForDefaults(t *testing.T) {
	m := &Manager{cfg: config.StorageConfig{}}

	tests := []struct {
		entity   types.EntityType
		expected time.Duration
	}{
		{types.EntityPlayerStat, database.RetentionPlayerStats},
		{types.EntityGameState, database.RetentionGameStates},
		{types.EntityPrediction, database.RetentionPredictions},
		{types.EntityOwnership, database.RetentionOwnership},
		{types.EntityInjuryReport, database.RetentionInjuries},
		{types.EntityWeather, database.RetentionWeather},
	}

	for _, tt := range tests {
		t.Run(tt.entity.String(), func(t *testing.T) {
			if got := m.retentionFor(tt.entity); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRetentionForOverrides(t *testing.T) {
	m := &Manager{cfg: config.StorageConfig{
		RetentionPlayerStatsDays: 90,
		RetentionWeatherDays:     30,
	}}

	if got := m.retentionFor(types.EntityPlayerStat); got != 90*24*time.Hour {
		t.Errorf("expected 90-day override, got %v", got)
	}
	if got := m.retentionFor(types.EntityWeather); got != 30*24*time.Hour {
		t.Errorf("expected 30-day override, got %v", got)
	}
	// Entities without an override keep their defaults.
	if got := m.retentionFor(types.EntityGameState); got != database.RetentionGameStates {
		t.Errorf("expected default for game states, got %v", got)
	}
}

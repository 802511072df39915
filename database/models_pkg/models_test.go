package models

import (
	"math"
	"testing"
	"time"
)

var ts = time.Date(2025, 9, 7, 18, 0, 0, 0, time.UTC)

func validPlayerStat() PlayerStat {
	return PlayerStat{
		Timestamp:     ts,
		PlayerID:      "p1",
		GameID:        "g1",
		FantasyPoints: 18.5,
		DataSource:    "sportsfeed",
		Confidence:    0.95,
	}
}

func TestPlayerStatValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PlayerStat)
		wantErr bool
	}{
		{"valid", func(p *PlayerStat) {}, false},
		{"zero timestamp", func(p *PlayerStat) { p.Timestamp = time.Time{} }, true},
		{"missing player", func(p *PlayerStat) { p.PlayerID = "" }, true},
		{"missing game", func(p *PlayerStat) { p.GameID = "" }, true},
		{"NaN fantasy points", func(p *PlayerStat) { p.FantasyPoints = math.NaN() }, true},
		{"Inf fantasy points", func(p *PlayerStat) { p.FantasyPoints = math.Inf(1) }, true},
		{"confidence above 1", func(p *PlayerStat) { p.Confidence = 1.5 }, true},
		{"negative confidence", func(p *PlayerStat) { p.Confidence = -0.1 }, true},
		{"confidence at bounds", func(p *PlayerStat) { p.Confidence = 1.0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlayerStat()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestGameStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   GameState
		wantErr bool
	}{
		{
			"valid",
			GameState{Timestamp: ts, GameID: "g1", HomeTeam: "KC", AwayTeam: "BUF", Confidence: 0.9},
			false,
		},
		{
			"missing game",
			GameState{Timestamp: ts, Confidence: 0.9},
			true,
		},
		{
			"negative score",
			GameState{Timestamp: ts, GameID: "g1", HomeScore: -3, Confidence: 0.9},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestPredictionValidate(t *testing.T) {
	playerID := "p1"

	tests := []struct {
		name    string
		pred    Prediction
		wantErr bool
	}{
		{
			"valid player prediction",
			Prediction{PredictionID: "pred1", Timestamp: ts, ModelID: "m1", PlayerID: &playerID, PredictedValue: 21.3, Confidence: 0.8},
			false,
		},
		{
			"missing prediction id",
			Prediction{Timestamp: ts, ModelID: "m1", PlayerID: &playerID, PredictedValue: 21.3, Confidence: 0.8},
			true,
		},
		{
			"no player or game reference",
			Prediction{PredictionID: "pred1", Timestamp: ts, ModelID: "m1", PredictedValue: 21.3, Confidence: 0.8},
			true,
		},
		{
			"NaN predicted value",
			Prediction{PredictionID: "pred1", Timestamp: ts, ModelID: "m1", PlayerID: &playerID, PredictedValue: math.NaN(), Confidence: 0.8},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pred.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestOwnershipSnapshotValidate(t *testing.T) {
	tests := []struct {
		name    string
		pct     float64
		wantErr bool
	}{
		{"zero ownership", 0, false},
		{"full ownership", 100, false},
		{"over 100", 100.5, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := OwnershipSnapshot{
				Timestamp:    ts,
				PlayerID:     "p1",
				Platform:     "draftkings",
				OwnershipPct: tt.pct,
				Confidence:   0.9,
			}
			err := snap.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestNaturalKeys(t *testing.T) {
	if got := validPlayerStat().NaturalKey(); got != "p1/g1" {
		t.Errorf("expected p1/g1, got %s", got)
	}
	gs := GameState{GameID: "g1"}
	if got := gs.NaturalKey(); got != "g1" {
		t.Errorf("expected g1, got %s", got)
	}
	snap := OwnershipSnapshot{PlayerID: "p1", Platform: "fanduel"}
	if got := snap.NaturalKey(); got != "p1/fanduel" {
		t.Errorf("expected p1/fanduel, got %s", got)
	}
}

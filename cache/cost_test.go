package cache

import (
	"errors"
	"math"
	"testing"
	"time"

	"gridiron-datastore/config"
	"gridiron-datastore/database"
)

func testCostConfig() config.CostConfig {
	return config.CostConfig{
		DailyLimit:   10.0,
		MonthlyLimit: 250.0,
		BaseCost:     0.001,
		PerRowCost:   0.00001,
		WarnFraction: 0.80,
	}
}

func TestQueryCost(t *testing.T) {
	l := NewLedger(testCostConfig())

	tests := []struct {
		name     string
		rows     int
		expected float64
	}{
		{"zero rows", 0, 0.001},
		{"hundred rows", 100, 0.002},
		{"thousand rows", 1000, 0.011},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.QueryCost(tt.rows); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAllowUnderLimit(t *testing.T) {
	l := NewLedger(testCostConfig())

	if err := l.Allow(); err != nil {
		t.Errorf("expected fresh ledger to allow, got %v", err)
	}

	l.Charge(9.99)
	if err := l.Allow(); err != nil {
		t.Errorf("expected ledger under limit to allow, got %v", err)
	}
}

func TestAllowRefusesAtLimit(t *testing.T) {
	l := NewLedger(testCostConfig())
	l.Charge(10.0)

	err := l.Allow()
	if err == nil {
		t.Fatal("expected refusal at the daily limit")
	}
	var costErr *database.CostLimitError
	if !errors.As(err, &costErr) {
		t.Fatalf("expected CostLimitError, got %T", err)
	}
	if costErr.Limit != 10.0 {
		t.Errorf("expected limit 10.0, got %v", costErr.Limit)
	}
}

func TestChargeNeverRefused(t *testing.T) {
	l := NewLedger(testCostConfig())
	l.Charge(10.0)

	// A query in flight when the ceiling is crossed still settles.
	l.Charge(0.5)

	_, spent, queries := l.Snapshot()
	if math.Abs(spent-10.5) > 1e-9 {
		t.Errorf("expected spent 10.5, got %v", spent)
	}
	if queries != 2 {
		t.Errorf("expected 2 queries, got %d", queries)
	}
}

func TestWarningFiresOncePerDay(t *testing.T) {
	l := NewLedger(testCostConfig())

	fired := 0
	l.OnWarning(func(day string, spent, limit float64) {
		fired++
		if spent < limit*0.80 {
			t.Errorf("warning fired below threshold: spent=%v limit=%v", spent, limit)
		}
	})

	l.Charge(7.0) // 70%, below threshold
	if fired != 0 {
		t.Fatalf("expected no warning at 70%%, fired %d", fired)
	}

	l.Charge(1.5) // 85%, crosses threshold
	if fired != 1 {
		t.Fatalf("expected one warning at 85%%, fired %d", fired)
	}

	l.Charge(1.0) // still over threshold, must not re-fire
	if fired != 1 {
		t.Errorf("expected warning to fire once, fired %d", fired)
	}
}

func TestDayRolloverResetsTotals(t *testing.T) {
	l := NewLedger(testCostConfig())

	current := time.Date(2025, 9, 7, 23, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	l.day = dayKey(current)

	l.Charge(10.0)
	if err := l.Allow(); err == nil {
		t.Fatal("expected refusal before rollover")
	}

	current = time.Date(2025, 9, 8, 0, 30, 0, 0, time.UTC)

	if err := l.Allow(); err != nil {
		t.Errorf("expected new day to allow, got %v", err)
	}
	day, spent, queries := l.Snapshot()
	if day != "2025-09-08" {
		t.Errorf("expected day 2025-09-08, got %s", day)
	}
	if spent != 0 || queries != 0 {
		t.Errorf("expected reset totals, got spent=%v queries=%d", spent, queries)
	}
}

func TestRolloverRearmsWarning(t *testing.T) {
	l := NewLedger(testCostConfig())

	current := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	l.day = dayKey(current)

	fired := 0
	l.OnWarning(func(string, float64, float64) { fired++ })

	l.Charge(9.0)
	current = current.Add(24 * time.Hour)
	l.Charge(9.0)

	if fired != 2 {
		t.Errorf("expected warning once per day, fired %d", fired)
	}
}

func TestFraction(t *testing.T) {
	l := NewLedger(testCostConfig())

	if got := l.Fraction(); got != 0 {
		t.Errorf("expected fraction 0, got %v", got)
	}
	l.Charge(7.0)
	if got := l.Fraction(); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("expected fraction 0.7, got %v", got)
	}
}

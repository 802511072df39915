package cache

import (
	"testing"
	"time"

	"gridiron-datastore/config"
	"gridiron-datastore/database/types"
)

func testCacheConfig(strategy string) config.CacheConfig {
	return config.CacheConfig{
		Backend:       "memory",
		TTLSeconds:    300,
		MaxEntries:    100,
		Strategy:      strategy,
		SmartFraction: 0.70,
	}
}

func newTestManager(t *testing.T, strategy string) (*Manager, *Ledger) {
	t.Helper()
	ledger := NewLedger(testCostConfig())
	m := NewManager(NewMemoryStore(100, 0), ledger, testCacheConfig(strategy))
	t.Cleanup(func() { m.Close() })
	return m, ledger
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in       string
		expected Strategy
	}{
		{"never", StrategyNever},
		{"always", StrategyAlways},
		{"smart", StrategySmart},
		{"bogus", StrategySmart},
		{"", StrategySmart},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseStrategy(tt.in, StrategySmart); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestBuildKeyDeterministic(t *testing.T) {
	m, _ := newTestManager(t, "always")

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	a := types.QueryRequest{
		Entity:  types.EntityPlayerStat,
		Mode:    types.ModeRaw,
		Filters: types.Filters{PlayerID: "p1", Team: "KC", StartTime: start},
	}
	b := types.QueryRequest{
		Entity:  types.EntityPlayerStat,
		Mode:    types.ModeRaw,
		Filters: types.Filters{Team: "KC", StartTime: start, PlayerID: "p1"},
	}

	if m.BuildKey(a) != m.BuildKey(b) {
		t.Errorf("equivalent requests produced different keys:\n%s\n%s", m.BuildKey(a), m.BuildKey(b))
	}
}

func TestBuildKeyLeadsWithEntity(t *testing.T) {
	m, _ := newTestManager(t, "always")

	key := m.BuildKey(types.QueryRequest{
		Entity:  types.EntityGameState,
		Mode:    types.ModeRaw,
		Filters: types.Filters{GameID: "g1"},
	})
	expected := "game_state:raw:game_id=g1"
	if key != expected {
		t.Errorf("expected %q, got %q", expected, key)
	}
}

func TestShouldCacheStrategies(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		override   string
		spend      float64
		expected   bool
	}{
		{"never", "never", "", 9.0, false},
		{"always", "always", "", 0, true},
		{"smart below threshold", "smart", "", 5.0, false}, // 50% < 70%
		{"smart at threshold", "smart", "", 7.0, true},
		{"smart above threshold", "smart", "", 9.0, true},
		{"override always wins", "never", "always", 0, true},
		{"override never wins", "always", "never", 9.0, false},
		{"unknown override falls back", "always", "bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ledger := newTestManager(t, tt.configured)
			if tt.spend > 0 {
				ledger.Charge(tt.spend)
			}
			if got := m.ShouldCache(tt.override); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLookupRemember(t *testing.T) {
	m, _ := newTestManager(t, "always")

	if _, ok := m.Lookup("player_stat:raw:player_id=p1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	m.Remember("player_stat:raw:player_id=p1", []byte(`{"rows":[]}`))
	data, ok := m.Lookup("player_stat:raw:player_id=p1")
	if !ok {
		t.Fatal("expected hit after remember")
	}
	if string(data) != `{"rows":[]}` {
		t.Errorf("unexpected payload %s", data)
	}

	hits, misses, entries := m.Stats()
	if hits != 1 || misses != 1 || entries != 1 {
		t.Errorf("expected 1/1/1 stats, got %d/%d/%d", hits, misses, entries)
	}
}

func TestInvalidateDropsOnlyEntityPrefix(t *testing.T) {
	m, _ := newTestManager(t, "always")

	m.Remember("player_stat:raw:player_id=p1", []byte("a"))
	m.Remember("player_stat:aggregate:player_id=p1", []byte("b"))
	m.Remember("game_state:raw:game_id=g1", []byte("c"))

	m.Invalidate(types.EntityPlayerStat)

	if _, ok := m.Lookup("player_stat:raw:player_id=p1"); ok {
		t.Error("expected raw player_stat entry to be invalidated")
	}
	if _, ok := m.Lookup("player_stat:aggregate:player_id=p1"); ok {
		t.Error("expected aggregate player_stat entry to be invalidated")
	}
	if _, ok := m.Lookup("game_state:raw:game_id=g1"); !ok {
		t.Error("expected game_state entry to survive")
	}
}

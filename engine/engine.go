// Package engine exposes the storage engine's four public operations:
// queryData, insertData, getAggregates, and getCostMetrics. It composes the
// read and write repositories with the cost-aware cache so callers never
// touch the cache or the ledger directly.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gridiron-datastore/cache"
	models "gridiron-datastore/database/models_pkg"
	"gridiron-datastore/database/types"
)

// queryExecutor is the slice of the read repository the engine needs.
type queryExecutor interface {
	Query(ctx context.Context, req types.QueryRequest) (interface{}, int, error)
	Aggregates(ctx context.Context, playerID string, start, end time.Time) ([]models.PlayerStatAggregate, error)
	StorageEstimate(ctx context.Context) (int64, error)
}

// writeExecutor is the slice of the write repository the engine needs.
type writeExecutor interface {
	InsertBatch(ctx context.Context, req types.InsertRequest) (*types.InsertResult, error)
	ResolvePrediction(ctx context.Context, predictionID string, actualValue float64) error
}

// summarize derives summary metrics from weekly buckets; injectable so the
// engine can be tested without the query package.
type summarizeFunc func([]models.PlayerStatAggregate) types.AggregateSummary

// QueryResult is the engine's answer to one queryData call.
type QueryResult struct {
	Entity    string          `json:"entity"`
	Rows      json.RawMessage `json:"rows"`
	RowCount  int             `json:"row_count"`
	FromCache bool            `json:"from_cache"`
}

// AggregatesResult is the engine's answer to one getAggregates call.
type AggregatesResult struct {
	PlayerID string                       `json:"player_id"`
	Buckets  []models.PlayerStatAggregate `json:"buckets"`
	Summary  types.AggregateSummary       `json:"summary"`
}

// Engine is the storage engine facade.
type Engine struct {
	queries   queryExecutor
	writes    writeExecutor
	cache     *cache.Manager
	ledger    *cache.Ledger
	summarize summarizeFunc
}

// New wires the engine from its collaborators.
func New(queries queryExecutor, writes writeExecutor, cacheMgr *cache.Manager, ledger *cache.Ledger, summarize func([]models.PlayerStatAggregate) types.AggregateSummary) *Engine {
	return &Engine{
		queries:   queries,
		writes:    writes,
		cache:     cacheMgr,
		ledger:    ledger,
		summarize: summarize,
	}
}

// QueryData runs one range/filter query through the cost-aware cache.
// Order matters: the cache is consulted first because a hit executes
// nothing and costs nothing; only an actual execution passes the budget
// gate and is charged.
func (e *Engine) QueryData(ctx context.Context, req types.QueryRequest) (*QueryResult, error) {
	if !req.Entity.Valid() {
		return nil, fmt.Errorf("queryData: invalid entity type %d", int(req.Entity))
	}

	key := e.cache.BuildKey(req)
	useCache := e.cache.ShouldCache(req.CacheStrategy)

	if useCache {
		if data, ok := e.cache.Lookup(key); ok {
			var cached QueryResult
			if err := json.Unmarshal(data, &cached); err == nil {
				cached.FromCache = true
				return &cached, nil
			}
			// Unreadable entry: fall through and repopulate.
		}
	}

	if err := e.ledger.Allow(); err != nil {
		return nil, err
	}

	rows, count, err := e.queries.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	e.ledger.Charge(e.ledger.QueryCost(count))

	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("queryData: encode rows: %w", err)
	}
	result := &QueryResult{
		Entity:   req.Entity.String(),
		Rows:     raw,
		RowCount: count,
	}

	if useCache {
		if data, err := json.Marshal(result); err == nil {
			e.cache.Remember(key, data)
		}
	}
	return result, nil
}

// InsertData persists one batch. Cache invalidation for the written entity
// type happens through the write repository's observer, so a successful
// insert is immediately visible to subsequent queries.
func (e *Engine) InsertData(ctx context.Context, req types.InsertRequest) (*types.InsertResult, error) {
	return e.writes.InsertBatch(ctx, req)
}

// ResolvePrediction records the observed outcome for a prediction.
func (e *Engine) ResolvePrediction(ctx context.Context, predictionID string, actualValue float64) error {
	return e.writes.ResolvePrediction(ctx, predictionID, actualValue)
}

// GetAggregates returns a player's weekly buckets plus derived summary
// metrics, cached and charged like any other query.
func (e *Engine) GetAggregates(ctx context.Context, playerID string, start, end time.Time) (*AggregatesResult, error) {
	if playerID == "" {
		return nil, fmt.Errorf("getAggregates: player_id is required")
	}

	req := types.QueryRequest{
		Entity: types.EntityPlayerStat,
		Mode:   types.ModeAggregate,
		Filters: types.Filters{
			PlayerID:  playerID,
			StartTime: start,
			EndTime:   end,
		},
	}
	key := e.cache.BuildKey(req) + "#summary"
	useCache := e.cache.ShouldCache("")

	if useCache {
		if data, ok := e.cache.Lookup(key); ok {
			var cached AggregatesResult
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	if err := e.ledger.Allow(); err != nil {
		return nil, err
	}

	buckets, err := e.queries.Aggregates(ctx, playerID, start, end)
	if err != nil {
		return nil, err
	}
	e.ledger.Charge(e.ledger.QueryCost(len(buckets)))

	result := &AggregatesResult{
		PlayerID: playerID,
		Buckets:  buckets,
		Summary:  e.summarize(buckets),
	}

	if useCache {
		if data, err := json.Marshal(result); err == nil {
			e.cache.Remember(key, data)
		}
	}
	return result, nil
}

// GetCostMetrics reports the spend ledger state, a naive 30-day projection
// of today's spend, the hypertable storage footprint, and rule-based
// recommendations. Metrics reads are free; they never touch the budget.
func (e *Engine) GetCostMetrics(ctx context.Context) (*types.CostMetrics, error) {
	_, spent, queries := e.ledger.Snapshot()

	storage, err := e.queries.StorageEstimate(ctx)
	if err != nil {
		// Metrics stay available when the size probe fails; storage reads 0.
		storage = 0
	}

	metrics := &types.CostMetrics{
		DailyCost:         spent,
		MonthlyProjection: spent * 30,
		QueryCount:        queries,
		StorageEstimate:   storage,
	}
	metrics.Recommendations = e.recommendations(metrics)
	return metrics, nil
}

func (e *Engine) recommendations(m *types.CostMetrics) []string {
	var recs []string

	if limit := e.ledger.DailyLimit(); limit > 0 && m.DailyCost >= limit*0.8 {
		recs = append(recs, "daily spend is above 80% of the budget; prefer cached or aggregate-mode queries")
	}
	if monthly := e.ledger.MonthlyLimit(); monthly > 0 && m.MonthlyProjection > monthly {
		recs = append(recs, fmt.Sprintf("projected monthly spend %.2f exceeds the %.2f budget", m.MonthlyProjection, monthly))
	}
	if hits, misses, _ := e.cache.Stats(); hits+misses >= 100 {
		if rate := float64(hits) / float64(hits+misses); rate < 0.2 {
			recs = append(recs, "cache hit rate is under 20%; consider the always strategy or a longer TTL")
		}
	}
	if m.QueryCount > 0 && m.DailyCost/float64(m.QueryCount) > e.ledger.QueryCost(500) {
		recs = append(recs, "average query cost is high; narrow filters or add limits to reduce rows scanned")
	}
	return recs
}

// Package app wires the storage engine together: database connection, schema
// initialization, cache backend selection, cost ledger, and the optional live
// feed ingester.
package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridiron-datastore/cache"
	"gridiron-datastore/config"
	"gridiron-datastore/database"
	"gridiron-datastore/database/ingest"
	"gridiron-datastore/database/query"
	"gridiron-datastore/database/schema"
	"gridiron-datastore/engine"
	"gridiron-datastore/feed"
)

// App holds the wired components and their shutdown order.
type App struct {
	cfg *config.Config

	db       *database.Database
	cacheMgr *cache.Manager
	ledger   *cache.Ledger
	engine   *engine.Engine
	feed     *feed.Client
}

// New creates an unwired App.
func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Engine exposes the storage engine facade for embedding callers.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Initialize connects to the database, runs schema initialization, and wires
// the cache, ledger, engine, and feed. Schema initialization is fail-fast:
// the service must not accept traffic against a partially initialized
// schema.
func (a *App) Initialize() error {
	db, err := database.Connect(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	a.db = db

	if err := schema.NewManager(db, a.cfg.Storage).Initialize(); err != nil {
		db.Close()
		return fmt.Errorf("schema: %w", err)
	}

	a.ledger = cache.NewLedger(a.cfg.Cost)
	a.ledger.OnWarning(func(day string, spent, limit float64) {
		log.Printf("⚠️ Query spend for %s at %.4f of %.4f daily budget", day, spent, limit)
	})

	a.cacheMgr = cache.NewManager(a.newStore(), a.ledger, a.cfg.Cache)

	queries := query.NewRepository(db)
	writes := ingest.NewRepository(db, a.cacheMgr.Invalidate)
	a.engine = engine.New(queries, writes, a.cacheMgr, a.ledger, query.Summarize)

	if a.cfg.Feed.Enabled {
		a.feed = feed.NewClient(a.cfg.Feed, a.engine)
		a.feed.Start()
	}

	log.Println("✅ Storage engine initialized")
	return nil
}

// newStore picks the cache backend. A Redis connection failure degrades to
// the in-memory store rather than refusing to start; the cache is an
// optimization, not a dependency.
func (a *App) newStore() cache.Store {
	sweep := time.Duration(a.cfg.Cache.SweepSeconds) * time.Second

	if a.cfg.Cache.Backend == "redis" {
		store, err := cache.NewRedisStore(a.cfg.RedisHost, a.cfg.RedisPort, a.cfg.RedisPassword, "gridiron:")
		if err == nil {
			return store
		}
		log.Printf("❌ Redis cache unavailable, falling back to memory: %v", err)
	}
	return cache.NewMemoryStore(a.cfg.Cache.MaxEntries, sweep)
}

// Run blocks until SIGINT or SIGTERM, then shuts down.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("🔄 Shutting down...")
	a.Shutdown()
}

// Shutdown stops the feed first so in-flight batches flush through the
// engine before the cache and database close underneath it.
func (a *App) Shutdown() {
	if a.feed != nil {
		a.feed.Stop()
	}
	if a.cacheMgr != nil {
		if err := a.cacheMgr.Close(); err != nil {
			log.Printf("❌ Cache close failed: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("❌ Database close failed: %v", err)
		}
	}
	log.Println("✅ Shutdown complete")
}

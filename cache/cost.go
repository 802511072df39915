package cache

import (
	"log"
	"sync"
	"time"

	"gridiron-datastore/config"
	"gridiron-datastore/database"
)

// WarningFunc observes a budget warning: the ledger crossed the configured
// warn fraction of the daily limit.
type WarningFunc func(day string, spent, limit float64)

// Ledger tracks estimated query spend per UTC day. Each process replica
// keeps its own ledger; with N replicas the effective fleet ceiling is up to
// N times the configured limit. Crossing a UTC day boundary resets the
// running totals.
type Ledger struct {
	mu sync.Mutex

	cfg config.CostConfig
	now func() time.Time // injectable for tests

	day        string
	spent      float64
	queryCount int64
	warned     bool

	observers []WarningFunc
}

// NewLedger creates a spend ledger for the current UTC day.
func NewLedger(cfg config.CostConfig) *Ledger {
	l := &Ledger{cfg: cfg, now: time.Now}
	l.day = dayKey(l.now())
	return l
}

// OnWarning registers an observer fired once per day when spend first
// crosses WarnFraction of the daily limit. Not safe to call concurrently
// with Charge; register observers during wiring.
func (l *Ledger) OnWarning(fn WarningFunc) {
	l.observers = append(l.observers, fn)
}

// QueryCost estimates the spend for one query returning rowCount rows.
func (l *Ledger) QueryCost(rowCount int) float64 {
	return l.cfg.BaseCost + float64(rowCount)*l.cfg.PerRowCost
}

// Allow is the pre-execution check: it returns a CostLimitError when today's
// spend has reached the daily limit. A query already in flight when the
// ceiling is crossed completes and is charged; only new queries are refused.
func (l *Ledger) Allow() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()

	if l.spent >= l.cfg.DailyLimit {
		return &database.CostLimitError{Spent: l.spent, Limit: l.cfg.DailyLimit, Day: l.day}
	}
	return nil
}

// Charge records the actual cost of an executed query. Charging is never
// refused; Allow gates execution, Charge settles it.
func (l *Ledger) Charge(cost float64) {
	l.mu.Lock()
	l.rollover()
	l.spent += cost
	l.queryCount++

	var fire []WarningFunc
	var day string
	var spent float64
	if !l.warned && l.cfg.WarnFraction > 0 && l.spent >= l.cfg.DailyLimit*l.cfg.WarnFraction {
		l.warned = true
		fire = l.observers
		day, spent = l.day, l.spent
	}
	l.mu.Unlock()

	// Observers run outside the lock so they may call back into the ledger.
	for _, fn := range fire {
		fn(day, spent, l.cfg.DailyLimit)
	}
}

// Fraction returns today's spend as a fraction of the daily limit.
func (l *Ledger) Fraction() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()

	if l.cfg.DailyLimit <= 0 {
		return 0
	}
	return l.spent / l.cfg.DailyLimit
}

// Snapshot returns today's running totals.
func (l *Ledger) Snapshot() (day string, spent float64, queries int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	return l.day, l.spent, l.queryCount
}

// DailyLimit returns the configured daily spend ceiling.
func (l *Ledger) DailyLimit() float64 {
	return l.cfg.DailyLimit
}

// MonthlyLimit returns the configured monthly spend ceiling.
func (l *Ledger) MonthlyLimit() float64 {
	return l.cfg.MonthlyLimit
}

// rollover resets the totals when the UTC day has changed. Caller holds the
// lock.
func (l *Ledger) rollover() {
	today := dayKey(l.now())
	if today == l.day {
		return
	}
	log.Printf("🔄 Cost ledger rollover: %s -> %s (spent %.4f over %d queries)",
		l.day, today, l.spent, l.queryCount)
	l.day = today
	l.spent = 0
	l.queryCount = 0
	l.warned = false
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

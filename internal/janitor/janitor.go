// Package janitor implements background reconciliation between the primary
// record store and the episode index. It operates independently from the main
// app Service to keep lifecycle concerns (index repair) isolated from request
// path logic.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/podmeta/podmeta/internal/metrics"
)

// Store abstracts the minimal store operation the Janitor requires.
type Store interface {
	// Reconcile removes index entries whose record is gone, restores missing
	// memberships for indexed records, and returns the number of entries
	// pruned.
	Reconcile(ctx context.Context) (int, error)
}

// Collector receives per-cycle metric emissions. Satisfied by
// *metrics.Manager; a nil collector disables emission.
type Collector interface {
	Inc(name string, delta int64)
	Observe(name string, v int64)
}

// Config holds tunables for the Janitor.
type Config struct {
	Interval time.Duration // how often a cycle begins
	Logger   *slog.Logger  // optional logger (defaults to slog.Default())
}

// Metrics accumulates counters (in-memory) for operational insight.
type Metrics struct {
	mu                  sync.Mutex
	Cycles              uint64
	Pruned              uint64
	CycleLastDurationMS int64
}

// MetricsView is a read-only snapshot safe to copy.
type MetricsView struct {
	Cycles              uint64
	Pruned              uint64
	CycleLastDurationMS int64
}

func (m *Metrics) addPruned(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.Pruned += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) recordCycle(d time.Duration) {
	m.mu.Lock()
	m.Cycles++
	m.CycleLastDurationMS = d.Milliseconds()
	m.mu.Unlock()
}

// Janitor encapsulates the background reconcile loop.
type Janitor struct {
	store     Store
	collector Collector
	cfg       Config
	metrics   *Metrics

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Janitor. collector may be nil.
func New(store Store, collector Collector, cfg Config) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Janitor{
		store:     store,
		collector: collector,
		cfg:       cfg,
		metrics:   &Metrics{},
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the janitor loop in a new goroutine.
func (j *Janitor) Start(ctx context.Context) {
	if j.ticker != nil {
		return
	} // already started
	j.ticker = time.NewTicker(j.cfg.Interval)
	go j.loop(ctx)
}

// Stop signals the loop to exit and waits for completion.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stopCh) })
	<-j.doneCh
}

// MetricsSnapshot returns a copy of current metrics.
func (j *Janitor) MetricsSnapshot() MetricsView {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	return MetricsView{
		Cycles:              j.metrics.Cycles,
		Pruned:              j.metrics.Pruned,
		CycleLastDurationMS: j.metrics.CycleLastDurationMS,
	}
}

func (j *Janitor) loop(ctx context.Context) {
	log := j.cfg.Logger.With("domain", "janitor")
	defer func() {
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.doneCh)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stop", "reason", "context_cancel")
			return
		case <-j.stopCh:
			log.Info("janitor stop", "reason", "stop_signal")
			return
		case <-j.ticker.C:
			j.runCycle(ctx)
		}
	}
}

// runCycle performs one reconciliation pass.
func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()
	log := j.cfg.Logger.With("domain", "janitor", "action", "cycle")
	pruned, err := j.store.Reconcile(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("reconcile", "error", err)
	}
	j.metrics.addPruned(pruned)
	j.metrics.recordCycle(time.Since(start))
	if j.collector != nil {
		if pruned > 0 {
			j.collector.Inc(metrics.CounterIndexEntriesPrune, int64(pruned))
		}
		j.collector.Observe(metrics.SummaryReconcilePrunedPerCycle, int64(pruned))
	}
	log.Info("cycle complete", "pruned", pruned, "ms", time.Since(start).Milliseconds())
}

// Package metrics provides a lightweight persistent metrics manager.
// It batches in-memory counter and summary observations and periodically
// flushes them through a Sink backed by the same store the records live in.
// The design intentionally avoids complex histogram logic; only monotonic
// counters and simple (count,sum,min,max) summaries are supported.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Names for counters used by the application.
const (
	CounterRecordsCreated    = "records_created_total"
	CounterRecordsUpdated    = "records_updated_total"
	CounterRecordsDeleted    = "records_deleted_total"
	CounterIndexEntriesPrune = "index_entries_pruned_total"
)

// Summary names.
const (
	SummaryReconcilePrunedPerCycle = "reconcile_pruned_per_cycle"
)

// Summary is a simple aggregate over observed values.
type Summary struct {
	Count int64
	Sum   int64
	Min   int64
	Max   int64
}

// Sink persists counter/summary deltas and serves the persisted state back
// for snapshots. Implementations live next to the storage backends.
type Sink interface {
	FlushCounters(ctx context.Context, deltas map[string]int64) error
	FlushSummaries(ctx context.Context, deltas map[string]Summary) error
	LoadCounters(ctx context.Context) (map[string]int64, error)
	LoadSummaries(ctx context.Context) (map[string]Summary, error)
}

// Config controls flush cadence and logging.
type Config struct {
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// Manager aggregates metric events and flushes them.
type Manager struct {
	cfg     Config
	sink    Sink
	events  chan event
	stop    chan struct{}
	done    chan struct{}
	started bool

	// in-memory deltas (protected by mu)
	mu        sync.Mutex
	counters  map[string]int64
	summaries map[string]*Summary
}

type eventKind int

const (
	eventInc eventKind = iota + 1
	eventObserve
)

type event struct {
	kind eventKind
	name string
	v    int64
}

// New creates a Manager. Call Start to begin background flushing.
func New(sink Sink, cfg Config) *Manager {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		sink:      sink,
		events:    make(chan event, 1024),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		counters:  make(map[string]int64),
		summaries: make(map[string]*Summary),
	}
}

// Start launches the background flush loop.
func (m *Manager) Start(ctx context.Context) {
	if m.started {
		return
	}
	m.started = true
	go m.loop(ctx)
}

// Stop signals the flush loop to exit and performs a final flush.
func (m *Manager) Stop(ctx context.Context) {
	if !m.started {
		// No loop running; just flush any deltas.
		_ = m.flush(ctx)
		return
	}
	close(m.stop)
	<-m.done
	_ = m.flush(ctx)
}

// Inc increments a counter by delta (>=1).
func (m *Manager) Inc(name string, delta int64) {
	if delta <= 0 {
		return
	}
	select {
	case m.events <- event{kind: eventInc, name: name, v: delta}:
	default:
		// channel full; best-effort drop
	}
}

// Observe records a summary observation.
func (m *Manager) Observe(name string, value int64) {
	select {
	case m.events <- event{kind: eventObserve, name: name, v: value}:
	default:
	}
}

func (m *Manager) loop(ctx context.Context) {
	log := m.cfg.Logger.With("domain", "metrics")
	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer func() {
		ticker.Stop()
		close(m.done)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("metrics stop", "reason", "context_cancel")
			return
		case <-m.stop:
			log.Info("metrics stop", "reason", "stop_signal")
			return
		case ev := <-m.events:
			m.apply(ev)
		case <-ticker.C:
			if err := m.flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("flush", "error", err)
			}
		}
	}
}

func (m *Manager) apply(ev event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.kind {
	case eventInc:
		m.counters[ev.name] += ev.v
	case eventObserve:
		agg := m.summaries[ev.name]
		if agg == nil {
			m.summaries[ev.name] = &Summary{Count: 1, Sum: ev.v, Min: ev.v, Max: ev.v}
			return
		}
		agg.Count++
		agg.Sum += ev.v
		if ev.v < agg.Min {
			agg.Min = ev.v
		}
		if ev.v > agg.Max {
			agg.Max = ev.v
		}
	}
}

// Snapshot returns current values (persisted + in-memory deltas) by reading
// the sink and layering deltas.
func (m *Manager) Snapshot(ctx context.Context) (map[string]int64, map[string]Summary, error) {
	counters, err := m.sink.LoadCounters(ctx)
	if err != nil {
		return nil, nil, err
	}
	summaries, err := m.sink.LoadSummaries(ctx)
	if err != nil {
		return nil, nil, err
	}
	if counters == nil {
		counters = make(map[string]int64)
	}
	if summaries == nil {
		summaries = make(map[string]Summary)
	}
	m.mu.Lock()
	for n, v := range m.counters {
		counters[n] += v
	}
	for n, agg := range m.summaries {
		cur, ok := summaries[n]
		if !ok || cur.Count == 0 {
			summaries[n] = *agg
			continue
		}
		cur.Count += agg.Count
		cur.Sum += agg.Sum
		if agg.Min < cur.Min {
			cur.Min = agg.Min
		}
		if agg.Max > cur.Max {
			cur.Max = agg.Max
		}
		summaries[n] = cur
	}
	m.mu.Unlock()
	return counters, summaries, nil
}

// flush hands in-memory deltas to the sink and resets them.
func (m *Manager) flush(ctx context.Context) error {
	m.mu.Lock()
	if len(m.counters) == 0 && len(m.summaries) == 0 {
		m.mu.Unlock()
		return nil
	}
	// Copy & reset.
	cCopy := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		cCopy[k] = v
	}
	sCopy := make(map[string]Summary, len(m.summaries))
	for k, v := range m.summaries {
		sCopy[k] = *v
	}
	m.counters = make(map[string]int64)
	m.summaries = make(map[string]*Summary)
	m.mu.Unlock()

	if len(cCopy) > 0 {
		if err := m.sink.FlushCounters(ctx, cCopy); err != nil {
			return err
		}
	}
	if len(sCopy) > 0 {
		if err := m.sink.FlushSummaries(ctx, sCopy); err != nil {
			return err
		}
	}
	return nil
}

package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/podmeta/podmeta/internal/metrics"
)

// --- Fakes / Mocks ---

type fakeStore struct {
	mu         sync.Mutex
	pruned     int
	reconErr   error
	callsRecon int
}

func (fs *fakeStore) Reconcile(ctx context.Context) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.callsRecon++
	if fs.reconErr != nil {
		return 0, fs.reconErr
	}
	return fs.pruned, nil
}

func TestJanitorCycleSuccess(t *testing.T) {
	fs := &fakeStore{pruned: 3}
	j := New(fs, nil, Config{Interval: time.Hour, Logger: slog.Default()})
	j.runCycle(context.Background())
	mv := j.MetricsSnapshot()
	if mv.Pruned != 3 || mv.Cycles != 1 {
		t.Fatalf("unexpected metrics %+v", mv)
	}
	if fs.callsRecon != 1 {
		t.Fatalf("expected one reconcile, got %d", fs.callsRecon)
	}
}

func TestJanitorCycleReconcileError(t *testing.T) {
	fs := &fakeStore{reconErr: errors.New("boom")}
	j := New(fs, nil, Config{Interval: time.Hour, Logger: slog.Default()})
	j.runCycle(context.Background())
	mv := j.MetricsSnapshot()
	if mv.Pruned != 0 || mv.Cycles != 1 {
		t.Fatalf("metrics after error %+v", mv)
	}
}

func TestStartStopLoop(t *testing.T) {
	fs := &fakeStore{pruned: 1}
	j := New(fs, nil, Config{Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)
	time.Sleep(15 * time.Millisecond)
	j.Stop()
	cancel()
	mv := j.MetricsSnapshot()
	if mv.Cycles == 0 {
		t.Fatalf("expected at least one cycle")
	}
}

func TestNewDefaults(t *testing.T) {
	fs := &fakeStore{}
	j := New(fs, nil, Config{})
	if j.cfg.Interval <= 0 || j.cfg.Logger == nil {
		t.Fatalf("defaults not applied %+v", j.cfg)
	}
}

func TestStartAlreadyStarted(t *testing.T) {
	fs := &fakeStore{}
	j := New(fs, nil, Config{Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	j.Start(ctx)
	tkr := j.ticker
	j.Start(ctx)
	if j.ticker != tkr {
		t.Fatalf("ticker replaced unexpectedly")
	}
	j.Stop()
}

// externalCollector captures emitted metrics for verification.
type externalCollector struct {
	mu       sync.Mutex
	counters map[string]int64
	observes map[string][]int64
}

func newExternalCollector() *externalCollector {
	return &externalCollector{counters: make(map[string]int64), observes: make(map[string][]int64)}
}

func (e *externalCollector) Inc(name string, delta int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counters[name] += delta
}

func (e *externalCollector) Observe(name string, v int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observes[name] = append(e.observes[name], v)
}

func TestJanitorExternalMetrics(t *testing.T) {
	fs := &fakeStore{pruned: 4}
	ec := newExternalCollector()
	j := New(fs, ec, Config{Interval: time.Hour})
	j.runCycle(context.Background())
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if got := ec.counters[metrics.CounterIndexEntriesPrune]; got != 4 {
		t.Fatalf("expected external counter 4, got %d", got)
	}
	obs := ec.observes[metrics.SummaryReconcilePrunedPerCycle]
	if len(obs) != 1 || obs[0] != 4 {
		t.Fatalf("unexpected observations %+v", obs)
	}
}

func TestJanitorZeroPruneStillObserved(t *testing.T) {
	fs := &fakeStore{pruned: 0}
	ec := newExternalCollector()
	j := New(fs, ec, Config{Interval: time.Hour})
	j.runCycle(context.Background())
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if got := ec.counters[metrics.CounterIndexEntriesPrune]; got != 0 {
		t.Fatalf("counter should stay 0, got %d", got)
	}
	if obs := ec.observes[metrics.SummaryReconcilePrunedPerCycle]; len(obs) != 1 || obs[0] != 0 {
		t.Fatalf("expected one zero observation, got %+v", obs)
	}
}

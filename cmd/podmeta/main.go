// Package main provides the podmeta binary entry point. It loads
// configuration from the environment, opens the configured storage backend,
// composes the store, service, event bus, metrics manager, and janitor, and
// runs the HTTP server until interrupted.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/podmeta/podmeta/internal/app"
	"github.com/podmeta/podmeta/internal/config"
	"github.com/podmeta/podmeta/internal/events"
	"github.com/podmeta/podmeta/internal/httpx"
	"github.com/podmeta/podmeta/internal/janitor"
	"github.com/podmeta/podmeta/internal/metrics"
	"github.com/podmeta/podmeta/internal/store"
	"github.com/podmeta/podmeta/internal/store/redisstore"
	"github.com/podmeta/podmeta/internal/store/sqlite"
)

// version is set at build time via -ldflags.
var version = "dev"

// realClock implements app.Clock using time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// backend bundles everything a storage backend contributes to the wiring.
type backend struct {
	store     *store.Store
	sink      metrics.Sink
	readiness func(context.Context) error
	close     func() error
}

func ensureDataDir(dir string) error {
	st, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dir, 0o700)
	}
	if err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("data path %s is not a directory", dir)
	}
	return nil
}

func openSQLiteBackend(cfg *config.Config) (*backend, error) {
	if err := ensureDataDir(cfg.DataDir); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", cfg.SQLiteDSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	recs, idx, err := sqlite.New(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	sink, err := sqlite.NewMetricsSink(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init metrics schema: %w", err)
	}
	return &backend{
		store:     store.New(recs, idx),
		sink:      sink,
		readiness: db.PingContext,
		close:     db.Close,
	}, nil
}

func openRedisBackend(cfg *config.Config) (*backend, error) {
	client, err := redisstore.Open(redisstore.Options{URL: cfg.RedisURL})
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}
	recs, idx := redisstore.New(client)
	return &backend{
		store:     store.New(recs, idx),
		sink:      redisstore.NewMetricsSink(client),
		readiness: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		close:     client.Close,
	}, nil
}

func openBackend(cfg *config.Config) (*backend, error) {
	switch cfg.Backend {
	case "sqlite":
		return openSQLiteBackend(cfg)
	case "redis":
		return openRedisBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func buildService(st *store.Store, cfg *config.Config, clock app.Clock, sink app.EventSink) *app.Service {
	return &app.Service{
		Store:        st,
		Clock:        clock,
		Events:       sink,
		MaxListLimit: cfg.ListMaxLimit,
	}
}

func buildHandler(cfg *config.Config, svc httpx.ServicePort, mgr *metrics.Manager, readiness func(context.Context) error) http.Handler {
	h := httpx.New(svc, 0, readiness)
	h.DefaultLimit = 100
	h.Metrics = metrics.Handler(mgr, cfg.MetricsToken)
	h.About = httpx.AboutInfo{Service: "podmeta", Version: version, Backend: cfg.Backend}
	return h.Router()
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.close()

	bus := events.NewBus(slog.Default())
	defer bus.Close()

	mgr := metrics.New(be.sink, metrics.Config{FlushInterval: cfg.MetricsFlushInterval})
	mgr.Start(ctx)
	defer mgr.Stop(context.Background())

	lifecycle, err := bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe lifecycle events: %w", err)
	}
	go metrics.Pump(lifecycle, mgr)

	jan := janitor.New(be.store, mgr, janitor.Config{Interval: cfg.ReconcileInterval})
	jan.Start(ctx)
	defer jan.Stop()

	svc := buildService(be.store, cfg, realClock{}, bus)
	srv := newServer(cfg, buildHandler(cfg, svc, mgr, be.readiness))

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Addr, "backend", cfg.Backend, "pid", os.Getpid())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down", "reason", "signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

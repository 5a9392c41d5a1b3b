package sqlite

import (
	"context"
	"database/sql"

	"github.com/podmeta/podmeta/internal/metrics"
)

var _ metrics.Sink = (*MetricsSink)(nil)

// MetricsSink persists metrics deltas into the shared SQLite database.
type MetricsSink struct{ db *sql.DB }

// NewMetricsSink constructs the sink, creating its tables if absent.
func NewMetricsSink(db *sql.DB) (*MetricsSink, error) {
	ddl := `CREATE TABLE IF NOT EXISTS metrics_counters (
name TEXT PRIMARY KEY,
value INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS metrics_summaries (
name TEXT PRIMARY KEY,
count INTEGER NOT NULL,
sum INTEGER NOT NULL,
min INTEGER NOT NULL,
max INTEGER NOT NULL
);`
	if _, err := db.Exec(ddl); err != nil {
		return nil, err
	}
	return &MetricsSink{db: db}, nil
}

// FlushCounters upserts counter deltas in a single transaction.
func (s *MetricsSink) FlushCounters(ctx context.Context, deltas map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for name, delta := range deltas {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metrics_counters(name,value) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET value = value + excluded.value`, name, delta); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// FlushSummaries upserts summary deltas in a single transaction.
func (s *MetricsSink) FlushSummaries(ctx context.Context, deltas map[string]metrics.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for name, agg := range deltas {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metrics_summaries(name,count,sum,min,max) VALUES(?,?,?,?,?) ON CONFLICT(name) DO UPDATE SET count = metrics_summaries.count + excluded.count, sum = metrics_summaries.sum + excluded.sum, min = MIN(metrics_summaries.min, excluded.min), max = MAX(metrics_summaries.max, excluded.max)`, name, agg.Count, agg.Sum, agg.Min, agg.Max); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadCounters returns the persisted counter values.
func (s *MetricsSink) LoadCounters(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM metrics_counters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var n string
		var v int64
		if err := rows.Scan(&n, &v); err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, rows.Err()
}

// LoadSummaries returns the persisted summary aggregates.
func (s *MetricsSink) LoadSummaries(ctx context.Context) (map[string]metrics.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, count, sum, min, max FROM metrics_summaries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]metrics.Summary)
	for rows.Next() {
		var n string
		var agg metrics.Summary
		if err := rows.Scan(&n, &agg.Count, &agg.Sum, &agg.Min, &agg.Max); err != nil {
			return nil, err
		}
		out[n] = agg
	}
	return out, rows.Err()
}

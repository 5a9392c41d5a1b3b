package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/podmeta/podmeta/internal/metrics"
)

const (
	countersKey          = "metrics:counters"
	summaryKeyPrefix     = "metrics:summaries:"
	summaryFieldCount    = "count"
	summaryFieldSum      = "sum"
	summaryFieldMin      = "min"
	summaryFieldMax      = "max"
)

var _ metrics.Sink = (*MetricsSink)(nil)

// MetricsSink persists metrics deltas into Redis hashes. Counter merges are
// atomic (HINCRBY); summary min/max use read-compare-write, which may lose
// an update under concurrent flushers. Metrics are advisory, so last writer
// wins is acceptable there.
type MetricsSink struct{ client *redis.Client }

// NewMetricsSink constructs the sink.
func NewMetricsSink(client *redis.Client) *MetricsSink {
	return &MetricsSink{client: client}
}

// FlushCounters merges counter deltas with HINCRBY in one pipeline.
func (s *MetricsSink) FlushCounters(ctx context.Context, deltas map[string]int64) error {
	pipe := s.client.Pipeline()
	for name, delta := range deltas {
		pipe.HIncrBy(ctx, countersKey, name, delta)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hincrby error: %w", err)
	}
	return nil
}

// FlushSummaries merges summary deltas field by field.
func (s *MetricsSink) FlushSummaries(ctx context.Context, deltas map[string]metrics.Summary) error {
	for name, agg := range deltas {
		key := summaryKeyPrefix + name
		if err := s.client.HIncrBy(ctx, key, summaryFieldCount, agg.Count).Err(); err != nil {
			return fmt.Errorf("redis hincrby error: %w", err)
		}
		if err := s.client.HIncrBy(ctx, key, summaryFieldSum, agg.Sum).Err(); err != nil {
			return fmt.Errorf("redis hincrby error: %w", err)
		}
		if err := s.mergeExtreme(ctx, key, summaryFieldMin, agg.Min, func(cur, v int64) bool { return v < cur }); err != nil {
			return err
		}
		if err := s.mergeExtreme(ctx, key, summaryFieldMax, agg.Max, func(cur, v int64) bool { return v > cur }); err != nil {
			return err
		}
	}
	return nil
}

func (s *MetricsSink) mergeExtreme(ctx context.Context, key, field string, v int64, better func(cur, v int64) bool) error {
	cur, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return s.client.HSet(ctx, key, field, v).Err()
	}
	if err != nil {
		return fmt.Errorf("redis hget error: %w", err)
	}
	curN, err := strconv.ParseInt(cur, 10, 64)
	if err != nil {
		return err
	}
	if better(curN, v) {
		return s.client.HSet(ctx, key, field, v).Err()
	}
	return nil
}

// LoadCounters returns the persisted counter values.
func (s *MetricsSink) LoadCounters(ctx context.Context) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, countersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall error: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for name, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, nil
}

// LoadSummaries walks summary hashes via SCAN.
func (s *MetricsSink) LoadSummaries(ctx context.Context) (map[string]metrics.Summary, error) {
	out := make(map[string]metrics.Summary)
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, summaryKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan error: %w", err)
		}
		for _, key := range keys {
			fields, err := s.client.HGetAll(ctx, key).Result()
			if err != nil {
				return nil, fmt.Errorf("redis hgetall error: %w", err)
			}
			var agg metrics.Summary
			for field, v := range fields {
				n, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return nil, err
				}
				switch field {
				case summaryFieldCount:
					agg.Count = n
				case summaryFieldSum:
					agg.Sum = n
				case summaryFieldMin:
					agg.Min = n
				case summaryFieldMax:
					agg.Max = n
				}
			}
			out[strings.TrimPrefix(key, summaryKeyPrefix)] = agg
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

// Package store defines internal persistence adapter ports used by the
// higher-level RecordStore implementation. These ports isolate the concrete
// SQLite and Redis backends so they can be tested and evolved independently.
// Callers outside this package interact only with the app.RecordStore
// implementation, not these internal details.
package store

import (
	"context"

	"github.com/podmeta/podmeta/internal/domain"
)

// Records abstracts the primary id -> record mapping. Implementations must
// make per-id operations atomic with respect to each other; two concurrent
// writes to the same id may race (last writer wins) but must never produce
// a partially merged record.
type Records interface {
	// Create persists a new record. An existing id yields app.ErrIDCollision.
	Create(ctx context.Context, rec domain.Record) error
	// Get returns the record or app.ErrNotFound.
	Get(ctx context.Context, id domain.RecordID) (domain.Record, error)
	// Replace overwrites an existing record or returns app.ErrNotFound.
	Replace(ctx context.Context, rec domain.Record) error
	// Remove deletes the record or returns app.ErrNotFound.
	Remove(ctx context.Context, id domain.RecordID) error
	// Scan returns up to limit records starting at offset in the backend's
	// iteration order.
	Scan(ctx context.Context, limit, offset int) ([]domain.Record, error)
	// Count returns the number of live records.
	Count(ctx context.Context) (int64, error)
	// IDs enumerates all live record ids (used by reconciliation).
	IDs(ctx context.Context) ([]domain.RecordID, error)
}

// EpisodeIndex abstracts the (podcastGuid, rssItemGuid) -> id-set mapping.
// Buckets are sets: re-adding a member is a no-op, as is removing a
// non-member. An empty bucket and an absent bucket are indistinguishable.
type EpisodeIndex interface {
	Add(ctx context.Context, podcastGUID, rssItemGUID string, id domain.RecordID) error
	Remove(ctx context.Context, podcastGUID, rssItemGUID string, id domain.RecordID) error
	Members(ctx context.Context, podcastGUID, rssItemGUID string) ([]domain.RecordID, error)
	// Entries enumerates every (pair, id) membership (used by reconciliation).
	Entries(ctx context.Context) ([]Entry, error)
}

// Entry is one index membership row.
type Entry struct {
	PodcastGUID string
	RSSItemGUID string
	RecordID    domain.RecordID
}

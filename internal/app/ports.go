// Package app defines the application layer "ports" (interfaces) and simple
// data contracts that the core use-cases of podmeta depend upon. It follows a
// hexagonal (ports & adapters) design: this package declares what the core
// needs, while adapter packages (SQLite/Redis storage, HTTP layer, janitor
// jobs) provide concrete implementations. No I/O, logging, SQL, or network
// concerns belong here.
package app

import (
	"context"
	"time"

	"github.com/podmeta/podmeta/internal/domain"
)

// RecordStore is the storage port for payment-metadata records.
// Implementations own both the primary id -> record mapping and the derived
// episode index, and must keep the two consistent under the ordering
// contract: primary write before index registration on insert, index removal
// before primary delete on delete. Per-id operations are atomic with respect
// to each other; the primary+index pair is not required to be a single
// transaction.
type RecordStore interface {
	// Insert persists a new record keyed by its ID and, when the record is
	// indexed, registers the ID in the episode bucket. A colliding ID is a
	// consistency fault reported as ErrIDCollision, never a silent overwrite.
	Insert(ctx context.Context, rec domain.Record) error

	// Get returns the full record (update token included) or ErrNotFound.
	Get(ctx context.Context, id domain.RecordID) (domain.Record, error)

	// Replace overwrites the stored record keyed by rec.ID. The episode pair
	// is immutable post-creation; callers carry it over from the prior
	// record and the index is left untouched. Returns ErrNotFound if no
	// prior record exists.
	Replace(ctx context.Context, rec domain.Record) error

	// Delete removes the record and, if indexed, its bucket membership.
	// Returns ErrNotFound if absent; a second delete of the same ID reports
	// ErrNotFound, which is the expected terminal state.
	Delete(ctx context.Context, id domain.RecordID) error

	// List returns up to limit records starting at offset in the backend's
	// iteration order. The order is stable only in a quiescent state.
	List(ctx context.Context, limit, offset int) ([]domain.Record, error)

	// Count returns the number of live records.
	Count(ctx context.Context) (int64, error)

	// FindByEpisode returns the records indexed under the GUID pair. IDs
	// whose record has vanished are silently dropped.
	FindByEpisode(ctx context.Context, podcastGUID, rssItemGUID string) ([]domain.Record, error)
}

// Clock abstracts time to enable deterministic testing of timestamps.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// EventSink receives record lifecycle notifications after a successful
// mutation. Implementations must not block the request path; delivery is
// best-effort.
type EventSink interface {
	RecordCreated(ctx context.Context, id domain.RecordID)
	RecordUpdated(ctx context.Context, id domain.RecordID)
	RecordDeleted(ctx context.Context, id domain.RecordID)
}

// Package store provides the concrete implementation of the application
// RecordStore port by composing lower-layer persistence ports (Records and
// EpisodeIndex). External packages should construct the store via New and
// interact only through the app.RecordStore interface.
package store

import (
	"context"
	"errors"

	"github.com/podmeta/podmeta/internal/app"
	"github.com/podmeta/podmeta/internal/domain"
)

// Store composes Records and an EpisodeIndex to satisfy app.RecordStore.
// The primary write and the index write are two backend calls, not one
// transaction; ordering bounds a crash to "index under-reports" rather than
// "index points at a dead id":
//   - insert: record first, index second
//   - delete: index first, record second
type Store struct {
	records Records
	index   EpisodeIndex
}

// New returns a Store implementation of app.RecordStore.
func New(records Records, index EpisodeIndex) *Store {
	return &Store{records: records, index: index}
}

var _ app.RecordStore = (*Store)(nil)

// Insert persists the record and, when both GUIDs are present, registers
// its id in the episode bucket.
func (s *Store) Insert(ctx context.Context, rec domain.Record) error {
	if s == nil || s.records == nil || s.index == nil {
		return errors.New("store not properly initialized")
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return err
	}
	if rec.Indexed() {
		return s.index.Add(ctx, rec.PodcastGUID, rec.RSSItemGUID, rec.ID)
	}
	return nil
}

// Get returns the full record, update token included.
func (s *Store) Get(ctx context.Context, id domain.RecordID) (domain.Record, error) {
	return s.records.Get(ctx, id)
}

// Replace overwrites the record in place. The index is untouched: the
// episode pair is immutable post-creation and the caller carries it over.
func (s *Store) Replace(ctx context.Context, rec domain.Record) error {
	return s.records.Replace(ctx, rec)
}

// Delete removes the index membership first, then the record, so a crash in
// between leaves a findable-but-unindexed record instead of a dangling
// index entry.
func (s *Store) Delete(ctx context.Context, id domain.RecordID) error {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Indexed() {
		if err := s.index.Remove(ctx, rec.PodcastGUID, rec.RSSItemGUID, id); err != nil {
			return err
		}
	}
	return s.records.Remove(ctx, id)
}

// List returns one page of records in the backend's iteration order.
func (s *Store) List(ctx context.Context, limit, offset int) ([]domain.Record, error) {
	return s.records.Scan(ctx, limit, offset)
}

// Count returns the number of live records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.records.Count(ctx)
}

// FindByEpisode resolves the bucket members to full records. Ids whose
// record has vanished (the tolerated crash window above) are dropped.
func (s *Store) FindByEpisode(ctx context.Context, podcastGUID, rssItemGUID string) ([]domain.Record, error) {
	ids, err := s.index.Members(ctx, podcastGUID, rssItemGUID)
	if err != nil {
		return nil, err
	}
	recs := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.records.Get(ctx, id)
		if err != nil {
			if errors.Is(err, app.ErrNotFound) {
				continue
			}
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Reconcile repairs both inconsistency directions left by the non-atomic
// write pairs: index entries whose record is gone are pruned, and indexed
// records missing from their bucket are re-added. It is idempotent and safe
// to run periodically. It returns the number of entries pruned.
func (s *Store) Reconcile(ctx context.Context) (int, error) {
	if s == nil || s.records == nil || s.index == nil {
		return 0, errors.New("store not properly initialized")
	}
	entries, err := s.index.Entries(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, e := range entries {
		if _, err := s.records.Get(ctx, e.RecordID); err != nil {
			if errors.Is(err, app.ErrNotFound) {
				if rmErr := s.index.Remove(ctx, e.PodcastGUID, e.RSSItemGUID, e.RecordID); rmErr != nil {
					return pruned, rmErr
				}
				pruned++
				continue
			}
			return pruned, err
		}
	}
	ids, err := s.records.IDs(ctx)
	if err != nil {
		return pruned, err
	}
	for _, id := range ids {
		rec, err := s.records.Get(ctx, id)
		if err != nil {
			if errors.Is(err, app.ErrNotFound) {
				continue // deleted mid-scan
			}
			return pruned, err
		}
		if !rec.Indexed() {
			continue
		}
		// Set semantics make this a no-op when the member already exists.
		if err := s.index.Add(ctx, rec.PodcastGUID, rec.RSSItemGUID, rec.ID); err != nil {
			return pruned, err
		}
	}
	return pruned, nil
}

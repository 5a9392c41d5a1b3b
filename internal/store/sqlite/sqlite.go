// Package sqlite provides SQLite-backed implementations of the store.Records
// and store.EpisodeIndex ports.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/podmeta/podmeta/internal/app"
	"github.com/podmeta/podmeta/internal/domain"
	"github.com/podmeta/podmeta/internal/store"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var (
	_ store.Records      = (*Records)(nil)
	_ store.EpisodeIndex = (*Index)(nil)
)

// Records implements store.Records using SQLite (via database/sql). It is
// safe for concurrent use; database/sql manages connection pooling and
// serialization.
type Records struct{ db *sql.DB }

// Index implements store.EpisodeIndex on the same database.
type Index struct{ db *sql.DB }

// New constructs both adapters, initializing the required schema if absent.
func New(db *sql.DB) (*Records, *Index, error) {
	if err := initSchema(db); err != nil {
		return nil, nil, err
	}
	return &Records{db: db}, &Index{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS records (
id TEXT PRIMARY KEY,
type TEXT NOT NULL,
metadata TEXT NOT NULL,
signature TEXT NOT NULL DEFAULT '',
podcast_guid TEXT NOT NULL DEFAULT '',
rss_item_guid TEXT NOT NULL DEFAULT '',
update_token TEXT NOT NULL,
created_at INTEGER NOT NULL,
updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS episode_index (
podcast_guid TEXT NOT NULL,
rss_item_guid TEXT NOT NULL,
record_id TEXT NOT NULL,
PRIMARY KEY (podcast_guid, rss_item_guid, record_id)
);`
	_, err := db.Exec(schema)
	return err
}

// Create inserts a new record row. INSERT OR IGNORE plus the affected-row
// count turns a primary-key hit into ErrIDCollision without driver-specific
// error inspection.
func (r *Records) Create(ctx context.Context, rec domain.Record) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	const q = `INSERT OR IGNORE INTO records (id, type, metadata, signature, podcast_guid, rss_item_guid, update_token, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, rec.ID.String(), rec.Type.String(), string(meta), rec.Signature, rec.PodcastGUID, rec.RSSItemGUID, rec.UpdateToken.String(), rec.CreatedAt.Unix(), rec.UpdatedAt.Unix())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return app.ErrIDCollision
	}
	return nil
}

// Get returns the full row (token included) or app.ErrNotFound.
func (r *Records) Get(ctx context.Context, id domain.RecordID) (domain.Record, error) {
	const q = `SELECT id, type, metadata, signature, podcast_guid, rss_item_guid, update_token, created_at, updated_at FROM records WHERE id=?`
	return scanRecord(r.db.QueryRowContext(ctx, q, id.String()))
}

// Replace overwrites an existing row in a single UPDATE, keeping the
// per-id write atomic.
func (r *Records) Replace(ctx context.Context, rec domain.Record) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	const q = `UPDATE records SET type=?, metadata=?, signature=?, update_token=?, updated_at=? WHERE id=?`
	res, err := r.db.ExecContext(ctx, q, rec.Type.String(), string(meta), rec.Signature, rec.UpdateToken.String(), rec.UpdatedAt.Unix(), rec.ID.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return app.ErrNotFound
	}
	return nil
}

// Remove hard-deletes the row.
func (r *Records) Remove(ctx context.Context, id domain.RecordID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id=?`, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return app.ErrNotFound
	}
	return nil
}

// Scan pages through rows in insertion (rowid) order, which is stable while
// the table is quiescent.
func (r *Records) Scan(ctx context.Context, limit, offset int) ([]domain.Record, error) {
	const q = `SELECT id, type, metadata, signature, podcast_guid, rss_item_guid, update_token, created_at, updated_at FROM records ORDER BY rowid LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Count returns the number of live rows.
func (r *Records) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// IDs enumerates all live record ids.
func (r *Records) IDs(ctx context.Context) ([]domain.RecordID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []domain.RecordID
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, domain.RecordID(id))
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface{ Scan(dest ...any) error }

func scanRecord(row rowScanner) (domain.Record, error) {
	var (
		rec                    domain.Record
		id, ptype, meta, token string
		createdAt, updatedAt   int64
	)
	err := row.Scan(&id, &ptype, &meta, &rec.Signature, &rec.PodcastGUID, &rec.RSSItemGUID, &token, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Record{}, app.ErrNotFound
		}
		return domain.Record{}, err
	}
	rec.ID = domain.RecordID(id)
	rec.Type = domain.PaymentType(ptype)
	rec.UpdateToken = domain.UpdateToken(token)
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return domain.Record{}, err
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return rec, nil
}

// Add registers a bucket membership; re-adding is a no-op via the composite
// primary key.
func (i *Index) Add(ctx context.Context, podcastGUID, rssItemGUID string, id domain.RecordID) error {
	const q = `INSERT OR IGNORE INTO episode_index (podcast_guid, rss_item_guid, record_id) VALUES (?,?,?)`
	_, err := i.db.ExecContext(ctx, q, podcastGUID, rssItemGUID, id.String())
	return err
}

// Remove deletes a membership; removing a non-member is a no-op.
func (i *Index) Remove(ctx context.Context, podcastGUID, rssItemGUID string, id domain.RecordID) error {
	const q = `DELETE FROM episode_index WHERE podcast_guid=? AND rss_item_guid=? AND record_id=?`
	_, err := i.db.ExecContext(ctx, q, podcastGUID, rssItemGUID, id.String())
	return err
}

// Members returns the (possibly empty) id set for the pair.
func (i *Index) Members(ctx context.Context, podcastGUID, rssItemGUID string) ([]domain.RecordID, error) {
	const q = `SELECT record_id FROM episode_index WHERE podcast_guid=? AND rss_item_guid=?`
	rows, err := i.db.QueryContext(ctx, q, podcastGUID, rssItemGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []domain.RecordID
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, domain.RecordID(id))
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Entries enumerates every membership row for reconciliation.
func (i *Index) Entries(ctx context.Context) ([]store.Entry, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT podcast_guid, rss_item_guid, record_id FROM episode_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Entry
	for rows.Next() {
		var e store.Entry
		var id string
		if err = rows.Scan(&e.PodcastGUID, &e.RSSItemGUID, &id); err != nil {
			return nil, err
		}
		e.RecordID = domain.RecordID(id)
		out = append(out, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

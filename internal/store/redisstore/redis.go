// Package redisstore provides Redis-backed implementations of the
// store.Records and store.EpisodeIndex ports. Records are stored as JSON
// values, the live id set and episode buckets as Redis sets, which gives the
// index its dedupe and no-op-removal semantics for free.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/podmeta/podmeta/internal/app"
	"github.com/podmeta/podmeta/internal/domain"
	"github.com/podmeta/podmeta/internal/store"
)

const (
	recordKeyPrefix  = "record:"
	idSetKey         = "records:ids"
	bucketKeyPrefix  = "episode:"
	bucketPartJoiner = "|"
)

// Options configures the Redis client.
type Options struct {
	URL         string
	MaxRetries  int
	PoolSize    int
	PoolTimeout time.Duration
}

// Open parses the URL, applies pool options, and verifies connectivity with
// a bounded ping before handing the client out.
func Open(opts Options) (*redis.Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 10
	}
	if opts.PoolTimeout == 0 {
		opts.PoolTimeout = 30 * time.Second
	}

	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	opt.MaxRetries = opts.MaxRetries
	opt.PoolSize = opts.PoolSize
	opt.PoolTimeout = opts.PoolTimeout
	opt.ReadTimeout = 5 * time.Second
	opt.WriteTimeout = 5 * time.Second

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

var (
	_ store.Records      = (*Records)(nil)
	_ store.EpisodeIndex = (*Index)(nil)
)

// Records implements store.Records on a Redis client.
type Records struct{ client *redis.Client }

// Index implements store.EpisodeIndex on the same client.
type Index struct{ client *redis.Client }

// New returns both adapters sharing one client.
func New(client *redis.Client) (*Records, *Index) {
	return &Records{client: client}, &Index{client: client}
}

// storedRecord is the JSON wire form of a record inside Redis.
type storedRecord struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Metadata    domain.Metadata `json:"metadata"`
	Signature   string          `json:"signature,omitempty"`
	PodcastGUID string          `json:"podcastGuid,omitempty"`
	RSSItemGUID string          `json:"rssItemGuid,omitempty"`
	UpdateToken string          `json:"updateToken"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

func encodeRecord(rec domain.Record) ([]byte, error) {
	return json.Marshal(storedRecord{
		ID:          rec.ID.String(),
		Type:        rec.Type.String(),
		Metadata:    rec.Metadata,
		Signature:   rec.Signature,
		PodcastGUID: rec.PodcastGUID,
		RSSItemGUID: rec.RSSItemGUID,
		UpdateToken: rec.UpdateToken.String(),
		CreatedAt:   rec.CreatedAt.Unix(),
		UpdatedAt:   rec.UpdatedAt.Unix(),
	})
}

func decodeRecord(raw string) (domain.Record, error) {
	var sr storedRecord
	if err := json.Unmarshal([]byte(raw), &sr); err != nil {
		return domain.Record{}, err
	}
	return domain.Record{
		ID:          domain.RecordID(sr.ID),
		Type:        domain.PaymentType(sr.Type),
		Metadata:    sr.Metadata,
		Signature:   sr.Signature,
		PodcastGUID: sr.PodcastGUID,
		RSSItemGUID: sr.RSSItemGUID,
		UpdateToken: domain.UpdateToken(sr.UpdateToken),
		CreatedAt:   time.Unix(sr.CreatedAt, 0).UTC(),
		UpdatedAt:   time.Unix(sr.UpdatedAt, 0).UTC(),
	}, nil
}

func recordKey(id domain.RecordID) string { return recordKeyPrefix + id.String() }

// Create persists the record under SETNX semantics so a colliding id is
// reported, never overwritten, then registers the id in the listing set.
func (r *Records) Create(ctx context.Context, rec domain.Record) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, recordKey(rec.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx error: %w", err)
	}
	if !ok {
		return app.ErrIDCollision
	}
	if err := r.client.SAdd(ctx, idSetKey, rec.ID.String()).Err(); err != nil {
		return fmt.Errorf("redis sadd error: %w", err)
	}
	return nil
}

// Get returns the record or app.ErrNotFound.
func (r *Records) Get(ctx context.Context, id domain.RecordID) (domain.Record, error) {
	raw, err := r.client.Get(ctx, recordKey(id)).Result()
	if err == redis.Nil {
		return domain.Record{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("redis get error: %w", err)
	}
	return decodeRecord(raw)
}

// Replace overwrites an existing record under SETXX semantics, keeping the
// per-id write atomic and surfacing not-found for absent ids.
func (r *Records) Replace(ctx context.Context, rec domain.Record) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	ok, err := r.client.SetXX(ctx, recordKey(rec.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setxx error: %w", err)
	}
	if !ok {
		return app.ErrNotFound
	}
	return nil
}

// Remove deletes the listing-set member first, then the record value, so a
// crash in between leaves an unlisted-but-findable record rather than a
// dangling id that would inflate Count forever.
func (r *Records) Remove(ctx context.Context, id domain.RecordID) error {
	if err := r.client.SRem(ctx, idSetKey, id.String()).Err(); err != nil {
		return fmt.Errorf("redis srem error: %w", err)
	}
	n, err := r.client.Del(ctx, recordKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	if n == 0 {
		return app.ErrNotFound
	}
	return nil
}

// Scan pages through the id set in lexicographic order, which is stable in
// a quiescent state. Ids whose value vanished mid-page are dropped.
func (r *Records) Scan(ctx context.Context, limit, offset int) ([]domain.Record, error) {
	ids, err := r.client.SMembers(ctx, idSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers error: %w", err)
	}
	sort.Strings(ids)
	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	recs := make([]domain.Record, 0, end-offset)
	for _, id := range ids[offset:end] {
		rec, err := r.Get(ctx, domain.RecordID(id))
		if err != nil {
			if err == app.ErrNotFound {
				continue
			}
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Count returns the cardinality of the id set.
func (r *Records) Count(ctx context.Context) (int64, error) {
	n, err := r.client.SCard(ctx, idSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard error: %w", err)
	}
	return n, nil
}

// IDs enumerates all live record ids.
func (r *Records) IDs(ctx context.Context) ([]domain.RecordID, error) {
	raw, err := r.client.SMembers(ctx, idSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers error: %w", err)
	}
	ids := make([]domain.RecordID, 0, len(raw))
	for _, s := range raw {
		ids = append(ids, domain.RecordID(s))
	}
	return ids, nil
}

// bucketKey escapes both GUID parts so arbitrary client strings cannot
// collide with the joiner or the key prefix.
func bucketKey(podcastGUID, rssItemGUID string) string {
	return bucketKeyPrefix + url.QueryEscape(podcastGUID) + bucketPartJoiner + url.QueryEscape(rssItemGUID)
}

func splitBucketKey(key string) (podcastGUID, rssItemGUID string, ok bool) {
	rest, found := strings.CutPrefix(key, bucketKeyPrefix)
	if !found {
		return "", "", false
	}
	p, e, found := strings.Cut(rest, bucketPartJoiner)
	if !found {
		return "", "", false
	}
	pu, err := url.QueryUnescape(p)
	if err != nil {
		return "", "", false
	}
	eu, err := url.QueryUnescape(e)
	if err != nil {
		return "", "", false
	}
	return pu, eu, true
}

// Add inserts the id into the bucket set; SADD dedupes.
func (i *Index) Add(ctx context.Context, podcastGUID, rssItemGUID string, id domain.RecordID) error {
	if err := i.client.SAdd(ctx, bucketKey(podcastGUID, rssItemGUID), id.String()).Err(); err != nil {
		return fmt.Errorf("redis sadd error: %w", err)
	}
	return nil
}

// Remove deletes the id from the bucket; Redis prunes empty sets itself.
func (i *Index) Remove(ctx context.Context, podcastGUID, rssItemGUID string, id domain.RecordID) error {
	if err := i.client.SRem(ctx, bucketKey(podcastGUID, rssItemGUID), id.String()).Err(); err != nil {
		return fmt.Errorf("redis srem error: %w", err)
	}
	return nil
}

// Members returns the (possibly empty) id set for the pair.
func (i *Index) Members(ctx context.Context, podcastGUID, rssItemGUID string) ([]domain.RecordID, error) {
	raw, err := i.client.SMembers(ctx, bucketKey(podcastGUID, rssItemGUID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers error: %w", err)
	}
	ids := make([]domain.RecordID, 0, len(raw))
	for _, s := range raw {
		ids = append(ids, domain.RecordID(s))
	}
	return ids, nil
}

// Entries walks every bucket via SCAN and expands its members.
func (i *Index) Entries(ctx context.Context) ([]store.Entry, error) {
	var (
		out    []store.Entry
		cursor uint64
	)
	for {
		keys, next, err := i.client.Scan(ctx, cursor, bucketKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan error: %w", err)
		}
		for _, key := range keys {
			p, e, ok := splitBucketKey(key)
			if !ok {
				continue
			}
			members, err := i.client.SMembers(ctx, key).Result()
			if err != nil {
				return nil, fmt.Errorf("redis smembers error: %w", err)
			}
			for _, m := range members {
				out = append(out, store.Entry{PodcastGUID: p, RSSItemGUID: e, RecordID: domain.RecordID(m)})
			}
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/podmeta/podmeta/internal/app"
	"github.com/podmeta/podmeta/internal/domain"
)

func TestBucketKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		podcast string
		item    string
	}{
		{name: "plain", podcast: "p1", item: "e1"},
		{name: "url_guids", podcast: "https://example.com/feed.xml", item: "https://example.com/ep/1"},
		{name: "joiner_in_guid", podcast: "a|b", item: "c|d"},
		{name: "prefix_in_guid", podcast: "episode:evil", item: "e"},
		{name: "unicode", podcast: "pödcast", item: "épisode"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key := bucketKey(tc.podcast, tc.item)
			p, e, ok := splitBucketKey(key)
			if !ok {
				t.Fatalf("splitBucketKey failed for %q", key)
			}
			if p != tc.podcast || e != tc.item {
				t.Fatalf("round-trip mismatch: got (%q,%q)", p, e)
			}
		})
	}
	// distinct pairs must never share a bucket
	if bucketKey("a|b", "c") == bucketKey("a", "b|c") {
		t.Fatalf("escaping failed to separate ambiguous pairs")
	}
}

func TestSplitBucketKeyRejectsForeignKeys(t *testing.T) {
	for _, key := range []string{"record:abc", "metrics:counters", "episode:noseparator"} {
		if _, _, ok := splitBucketKey(key); ok {
			t.Fatalf("expected rejection for %q", key)
		}
	}
}

func TestEncodeDecodeRecord(t *testing.T) {
	id, _ := domain.NewRecordID()
	tok, _ := domain.NewUpdateToken()
	now := time.Now().UTC().Truncate(time.Second)
	rec := domain.Record{
		ID:          id,
		Type:        domain.PaymentMonero,
		Metadata:    domain.Metadata{"address": "4xyz", "nested": map[string]any{"k": "v"}},
		Signature:   "sig",
		PodcastGUID: "p1",
		RSSItemGUID: "e1",
		UpdateToken: tok,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	raw, err := encodeRecord(rec)
	if err != nil {
		t.Fatalf("encodeRecord: %v", err)
	}
	got, err := decodeRecord(string(raw))
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if got.ID != rec.ID || got.Type != rec.Type || got.UpdateToken != rec.UpdateToken {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.Metadata["address"] != "4xyz" {
		t.Fatalf("metadata mismatch: %+v", got.Metadata)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.CreatedAt, rec.CreatedAt)
	}
}

// commandRecorder is a client hook that captures command order without a
// server; it short-circuits every command and reports success.
type commandRecorder struct {
	names []string
}

func (c *commandRecorder) DialHook(next redis.DialHook) redis.DialHook { return next }

func (c *commandRecorder) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		c.names = append(c.names, cmd.Name())
		if ic, ok := cmd.(*redis.IntCmd); ok {
			ic.SetVal(1)
		}
		return nil
	}
}

func (c *commandRecorder) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

// A crash mid-remove must leave the record findable but unlisted, so the
// listing-set membership has to go before the record value does.
func TestRemoveDropsListingMembershipFirst(t *testing.T) {
	rec := &commandRecorder{}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(rec)
	recs, _ := New(client)

	id, _ := domain.NewRecordID()
	if err := recs.Remove(context.Background(), id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	want := []string{"srem", "del"}
	if len(rec.names) != len(want) || rec.names[0] != want[0] || rec.names[1] != want[1] {
		t.Fatalf("command order = %v, want %v", rec.names, want)
	}
}

// liveBackend connects to a real Redis instance when PODMETA_TEST_REDIS_URL
// is set, otherwise skips. Integration coverage mirrors the SQLite adapter
// tests; unit coverage above runs everywhere.
func liveBackend(t *testing.T) (*Records, *Index) {
	t.Helper()
	url := os.Getenv("PODMETA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PODMETA_TEST_REDIS_URL not set; skipping Redis integration test")
	}
	client, err := Open(Options{URL: url})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushdb: %v", err)
	}
	recs, idx := New(client)
	return recs, idx
}

func liveRecord(t *testing.T) domain.Record {
	t.Helper()
	id, _ := domain.NewRecordID()
	tok, _ := domain.NewUpdateToken()
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Record{
		ID:          id,
		Type:        domain.PaymentBitcoinLightning,
		Metadata:    domain.Metadata{"payment_hash": "abc"},
		PodcastGUID: "p1",
		RSSItemGUID: "e1",
		UpdateToken: tok,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestLiveRecordsLifecycle(t *testing.T) {
	recs, _ := liveBackend(t)
	ctx := context.Background()
	rec := liveRecord(t)
	if err := recs.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := recs.Create(ctx, rec); !errors.Is(err, app.ErrIDCollision) {
		t.Fatalf("expected ErrIDCollision, got %v", err)
	}
	got, err := recs.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UpdateToken != rec.UpdateToken {
		t.Fatalf("token mismatch")
	}
	n, err := recs.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Count: n=%d err=%v", n, err)
	}
	rec.Metadata = domain.Metadata{"payment_hash": "def"}
	if err := recs.Replace(ctx, rec); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := recs.Remove(ctx, rec.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := recs.Remove(ctx, rec.ID); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestLiveIndexLifecycle(t *testing.T) {
	_, idx := liveBackend(t)
	ctx := context.Background()
	id, _ := domain.NewRecordID()
	if err := idx.Add(ctx, "p1", "e1", id); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(ctx, "p1", "e1", id); err != nil {
		t.Fatalf("re-Add: %v", err)
	}
	members, err := idx.Members(ctx, "p1", "e1")
	if err != nil || len(members) != 1 {
		t.Fatalf("Members: %v err=%v", members, err)
	}
	entries, err := idx.Entries(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Entries: %v err=%v", entries, err)
	}
	if err := idx.Remove(ctx, "p1", "e1", id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	members, err = idx.Members(ctx, "p1", "e1")
	if err != nil || len(members) != 0 {
		t.Fatalf("expected empty bucket: %v err=%v", members, err)
	}
}

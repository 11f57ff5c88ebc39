package storage

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/FinNewsHub/internal/collector"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Items: []collector.Item{
			{Source: "财联社", Title: "美联储维持利率不变", PublishedAt: "2024-01-01T08:00:00Z", FetchedAt: "2024-01-01T08:01:00Z"},
			{Source: "新浪财经", Title: "A股午间收评", URL: "https://finance.sina.com.cn/s/1", PublishedAt: "2024-01-01T04:00:00Z"},
		},
		FailedSources: []string{"36氪"},
		TotalSources:  3,
		UpdatedAt:     time.Date(2024, 1, 1, 8, 2, 0, 0, time.UTC),
	}
}

func TestQueryKeyIgnoresCaseOrderAndBlanks(t *testing.T) {
	a := QueryKey("2024-01-01", []string{"Fed", " 美联储 ", ""})
	b := QueryKey("2024-01-01", []string{"美联储", "fed"})
	if a != b {
		t.Fatalf("QueryKey mismatch: %q vs %q", a, b)
	}
	if a != "news:query:2024-01-01:fed,美联储" {
		t.Fatalf("unexpected key %q", a)
	}
	if QueryKey("", nil) == QueryKey("2024-01-01", nil) {
		t.Fatalf("different dates must give different keys")
	}
}

func TestMemoryStoreSaveAndCurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.Current(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Current on empty store err = %v, want ErrNoSnapshot", err)
	}

	want := sampleSnapshot()
	if err := m.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	// 返回值是副本，修改不影响已保存的快照
	got.Items[0].Title = "changed"
	again, _ := m.Current(ctx)
	if again.Items[0].Title != want.Items[0].Title {
		t.Fatalf("stored snapshot was mutated through returned copy")
	}
}

func TestMemoryStoreSaveReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	_ = m.Save(ctx, sampleSnapshot())
	_ = m.Save(ctx, Snapshot{TotalSources: 1})

	got, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if len(got.Items) != 0 || len(got.FailedSources) != 0 || got.TotalSources != 1 {
		t.Fatalf("expected replaced empty snapshot, got %+v", got)
	}
	if got.Items == nil || got.FailedSources == nil {
		t.Fatalf("empty slices should be non-nil for JSON output")
	}
}

func TestMemoryStoreQueryCacheExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	key := QueryKey("2024-01-01", []string{"fed"})
	m.PutQuery(ctx, key, sampleSnapshot(), time.Minute)
	if _, ok := m.GetQuery(ctx, key); !ok {
		t.Fatalf("expected cache hit")
	}

	now = now.Add(time.Minute)
	if _, ok := m.GetQuery(ctx, key); ok {
		t.Fatalf("expected cache entry to expire")
	}

	m.PutQuery(ctx, "zero", sampleSnapshot(), 0)
	if _, ok := m.GetQuery(ctx, "zero"); ok {
		t.Fatalf("ttl <= 0 should not cache")
	}
}

func TestToRowsNormalisesText(t *testing.T) {
	items := []collector.Item{
		{Source: "a", Title: "ok\xff" + strings.Repeat("标", 600)},
	}
	rows := toRows(items)
	if len(rows) != 1 || rows[0].Position != 0 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if !strings.HasPrefix(rows[0].Title, "ok�") {
		t.Fatalf("invalid byte not replaced: %q", rows[0].Title[:8])
	}
	if n := len([]rune(rows[0].Title)); n != 512 {
		t.Fatalf("title runes = %d, want 512", n)
	}

	back := fromRows(rows)
	if back[0].Source != "a" {
		t.Fatalf("fromRows lost source: %+v", back[0])
	}
}

func TestTruncateRunesDB(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"  abc  ", 10, "abc"},
		{"新浪财经", 2, "新浪"},
		{"abc", 0, ""},
	}
	for _, c := range cases {
		if got := truncateRunesDB(c.in, c.limit); got != c.want {
			t.Errorf("truncateRunesDB(%q, %d) = %q, want %q", c.in, c.limit, got, c.want)
		}
	}
}

func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedisStore(mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRedis(t)

	if _, err := r.Current(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Current on empty redis err = %v, want ErrNoSnapshot", err)
	}

	want := sampleSnapshot()
	if err := r.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := r.Current(ctx)
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestRedisStoreSnapshotDoesNotExpire(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	if err := r.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if ttl := mr.TTL(snapshotKey); ttl != 0 {
		t.Fatalf("snapshot ttl = %s, want none", ttl)
	}

	// 跨过多个定时周期，快照仍在
	mr.FastForward(2 * time.Hour)
	if _, err := r.Current(ctx); err != nil {
		t.Fatalf("snapshot should survive until the next Save, err = %v", err)
	}
}

func TestRedisStoreQueryCacheExpires(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	key := QueryKey("2024-01-01", []string{"test"})
	r.PutQuery(ctx, key, sampleSnapshot(), time.Minute)
	if _, ok := r.GetQuery(ctx, key); !ok {
		t.Fatalf("expected cached query")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := r.GetQuery(ctx, key); ok {
		t.Fatalf("cached query should expire")
	}

	r.PutQuery(ctx, "zero", sampleSnapshot(), 0)
	if mr.Exists("zero") {
		t.Fatalf("ttl <= 0 should not cache")
	}
}

func TestOpenRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	store, cache, err := Open("redis", "", mr.Addr())
	if err != nil {
		t.Fatalf("Open redis error: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*RedisStore); !ok {
		t.Fatalf("store type = %T, want *RedisStore", store)
	}
	if cache == nil {
		t.Fatalf("redis backend should also serve as query cache")
	}
}

// 需要真实的 PostgreSQL，未配置时跳过
func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	p, err := NewPostgresStore(dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore error: %v", err)
	}
	defer p.Close()

	if _, err := p.EnsureChannel(ctx, "财联社"); err != nil {
		t.Fatalf("EnsureChannel error: %v", err)
	}
	ch, err := p.EnsureChannel(ctx, "财联社")
	if err != nil || ch.Status != "active" {
		t.Fatalf("EnsureChannel second call = %+v, %v", ch, err)
	}

	want := sampleSnapshot()
	if err := p.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := p.Current(ctx)
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	if diff := cmp.Diff(want.Items, got.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.FailedSources, got.FailedSources); diff != "" {
		t.Fatalf("failed sources mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenMemoryAndUnknown(t *testing.T) {
	store, cache, err := Open("memory", "", "")
	if err != nil {
		t.Fatalf("Open memory error: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("store type = %T, want *MemoryStore", store)
	}
	if cache == nil {
		t.Fatalf("memory backend should also serve as query cache")
	}

	if _, _, err := Open("mongo", "", ""); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

package facade

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	newCacheAt := func(ttl time.Duration) (*MemoryCache, *time.Time) {
		cache := NewMemoryCache(ttl)
		now := base
		cache.now = func() time.Time { return now }
		return cache, &now
	}

	t.Run("HitWithinTTL", func(t *testing.T) {
		cache, now := newCacheAt(300 * time.Second)
		cache.Set(ctx, "track:1", []byte("payload"))

		*now = base.Add(299 * time.Second)
		value, ok := cache.Get(ctx, "track:1")
		if !ok {
			t.Fatal("expected a hit just inside the TTL window")
		}
		if string(value) != "payload" {
			t.Errorf("expected payload, got %s", value)
		}
	})

	t.Run("MissPastTTL", func(t *testing.T) {
		cache, now := newCacheAt(300 * time.Second)
		cache.Set(ctx, "track:1", []byte("payload"))

		*now = base.Add(301 * time.Second)
		if _, ok := cache.Get(ctx, "track:1"); ok {
			t.Error("expected a miss past the TTL window")
		}
		if cache.Len() != 0 {
			t.Errorf("stale entry should be evicted on read, got %d entries", cache.Len())
		}
	})

	t.Run("MissAtExactTTL", func(t *testing.T) {
		cache, now := newCacheAt(300 * time.Second)
		cache.Set(ctx, "track:1", []byte("payload"))

		*now = base.Add(300 * time.Second)
		if _, ok := cache.Get(ctx, "track:1"); ok {
			t.Error("an entry exactly at its TTL should be stale")
		}
	})

	t.Run("SetResetsTTL", func(t *testing.T) {
		cache, now := newCacheAt(300 * time.Second)
		cache.Set(ctx, "track:1", []byte("old"))

		*now = base.Add(200 * time.Second)
		cache.Set(ctx, "track:1", []byte("new"))

		*now = base.Add(450 * time.Second)
		value, ok := cache.Get(ctx, "track:1")
		if !ok {
			t.Fatal("rewritten entry should be fresh from its new insertion time")
		}
		if string(value) != "new" {
			t.Errorf("expected new, got %s", value)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		cache, _ := newCacheAt(300 * time.Second)
		cache.Set(ctx, "track:1", []byte("payload"))
		cache.Delete(ctx, "track:1")

		if _, ok := cache.Get(ctx, "track:1"); ok {
			t.Error("deleted entry should be gone")
		}
	})

	t.Run("DeletePrefix", func(t *testing.T) {
		cache, _ := newCacheAt(300 * time.Second)
		cache.Set(ctx, "playlist:9", []byte("a"))
		cache.Set(ctx, "playlist:9:tracks:100:0", []byte("b"))
		cache.Set(ctx, "playlists:50:0", []byte("c"))
		cache.Set(ctx, "track:1", []byte("d"))

		cache.DeletePrefix(ctx, "playlist:9")

		if _, ok := cache.Get(ctx, "playlist:9"); ok {
			t.Error("prefix delete should remove the playlist entry")
		}
		if _, ok := cache.Get(ctx, "playlist:9:tracks:100:0"); ok {
			t.Error("prefix delete should remove the playlist tracks entry")
		}
		if _, ok := cache.Get(ctx, "playlists:50:0"); !ok {
			t.Error("prefix delete should leave the playlist listing alone")
		}
		if _, ok := cache.Get(ctx, "track:1"); !ok {
			t.Error("prefix delete should leave unrelated keys alone")
		}
	})

	t.Run("DefaultTTLFallback", func(t *testing.T) {
		cache := NewMemoryCache(0)
		if cache.ttl != DefaultTTL {
			t.Errorf("expected DefaultTTL, got %v", cache.ttl)
		}
	})
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey("track", "123"); got != "track:123" {
		t.Errorf("expected track:123, got %s", got)
	}
	if got := cacheKey("search", " query ", "TRACKS", "20"); got != "search:query:TRACKS:20" {
		t.Errorf("expected trimmed args, got %s", got)
	}
}

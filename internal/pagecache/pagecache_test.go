package pagecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadboard/internal/model"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubFetcher struct {
	calls map[string]int
	err   error
}

func (s *stubFetcher) FetchLeadsPage(_ context.Context, boardID string, page, size int) (model.LeadPage, error) {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[boardID]++
	if s.err != nil {
		return model.LeadPage{}, s.err
	}
	return model.LeadPage{
		Data:        []model.Lead{{ID: boardID + "-l1", BoardID: boardID}},
		Success:     true,
		AllElements: 1,
		AllPages:    1,
	}, nil
}

func newRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return NewRedis(client, ttl), m
}

func TestCachedFetcher_HitsAndExactEviction(t *testing.T) {
	r, _ := newRedis(t, time.Minute)
	caches := map[string]Cache{
		"memory": NewMemory(time.Minute),
		"redis":  r,
	}
	for name, cache := range caches {
		t.Run(name, func(t *testing.T) {
			base := &stubFetcher{}
			f := NewCachedFetcher(base, cache, nil)
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				for _, b := range []string{"A", "B"} {
					lp, err := f.FetchLeadsPage(ctx, b, 1, 10)
					if err != nil {
						t.Fatalf("fetch %s: %v", b, err)
					}
					if len(lp.Data) != 1 || lp.Data[0].ID != b+"-l1" {
						t.Fatalf("unexpected page for %s: %+v", b, lp)
					}
				}
			}
			if base.calls["A"] != 1 || base.calls["B"] != 1 {
				t.Fatalf("expected one base call per board, got %v", base.calls)
			}

			if err := f.InvalidateBoard(ctx, "A"); err != nil {
				t.Fatalf("invalidate: %v", err)
			}
			_, _ = f.FetchLeadsPage(ctx, "A", 1, 10)
			_, _ = f.FetchLeadsPage(ctx, "B", 1, 10)
			if base.calls["A"] != 2 {
				t.Fatalf("expected A refetched after eviction, got %d", base.calls["A"])
			}
			if base.calls["B"] != 1 {
				t.Fatalf("expected B still cached, got %d", base.calls["B"])
			}
		})
	}
}

func TestCachedFetcher_ErrorsAreNotCached(t *testing.T) {
	base := &stubFetcher{err: errors.New("boom")}
	cache := NewMemory(0)
	f := NewCachedFetcher(base, cache, nil)
	if _, err := f.FetchLeadsPage(context.Background(), "A", 1, 10); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok, _ := cache.Get(context.Background(), "A", 1, 10); ok {
		t.Fatalf("failed fetch must not be cached")
	}
}

func TestMemory_Expires(t *testing.T) {
	m := NewMemory(time.Second)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()
	_ = m.Put(ctx, "A", 1, 10, model.LeadPage{AllPages: 1})
	if _, ok, _ := m.Get(ctx, "A", 1, 10); !ok {
		t.Fatalf("expected hit before expiry")
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := m.Get(ctx, "A", 1, 10); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestRedis_EvictBoardKeepsOtherBoards(t *testing.T) {
	r, m := newRedis(t, time.Minute)
	ctx := context.Background()
	for _, p := range []int{1, 2} {
		if err := r.Put(ctx, "A", p, 10, model.LeadPage{AllPages: 2}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	_ = r.Put(ctx, "AB", 1, 10, model.LeadPage{AllPages: 1})

	if err := r.EvictBoard(ctx, "A"); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if m.Exists(pageCacheKey("A", 1, 10)) || m.Exists(pageCacheKey("A", 2, 10)) || m.Exists(boardIndexKey("A")) {
		t.Fatalf("expected board A keys evicted, have %v", m.Keys())
	}
	if !m.Exists(pageCacheKey("AB", 1, 10)) {
		t.Fatalf("expected board AB untouched, have %v", m.Keys())
	}

	m.FastForward(2 * time.Minute)
	if _, ok, _ := r.Get(ctx, "AB", 1, 10); ok {
		t.Fatalf("expected ttl expiry")
	}
}

func TestRedis_CorruptEntryIsAMiss(t *testing.T) {
	r, m := newRedis(t, 0)
	if err := m.Set(pageCacheKey("A", 1, 10), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok, err := r.Get(context.Background(), "A", 1, 10); ok || err != nil {
		t.Fatalf("expected silent miss, got ok=%v err=%v", ok, err)
	}
	if m.Exists(pageCacheKey("A", 1, 10)) {
		t.Fatalf("expected corrupt entry removed")
	}
}

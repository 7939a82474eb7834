// Package pagecache caches fetched lead pages per board. Eviction is always by exact board id.
package pagecache

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"leadboard/internal/model"

	"github.com/sirupsen/logrus"
)

// Cache stores lead pages keyed by (board, page, size).
type Cache interface {
	Get(ctx context.Context, boardID string, page, size int) (model.LeadPage, bool, error)
	Put(ctx context.Context, boardID string, page, size int, lp model.LeadPage) error
	// EvictBoard drops every cached page of boardID and nothing else.
	EvictBoard(ctx context.Context, boardID string) error
}

type Fetcher interface {
	FetchLeadsPage(ctx context.Context, boardID string, page, size int) (model.LeadPage, error)
}

// CachedFetcher wraps a Fetcher with a Cache. Cache failures fall back to the base fetcher.
type CachedFetcher struct {
	base  Fetcher
	cache Cache
	log   logrus.FieldLogger
}

func NewCachedFetcher(base Fetcher, cache Cache, log logrus.FieldLogger) *CachedFetcher {
	if base == nil {
		panic("pagecache.NewCachedFetcher: base fetcher is nil")
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &CachedFetcher{base: base, cache: cache, log: log}
}

func (f *CachedFetcher) FetchLeadsPage(ctx context.Context, boardID string, page, size int) (model.LeadPage, error) {
	if f.cache != nil {
		lp, ok, err := f.cache.Get(ctx, boardID, page, size)
		if err != nil {
			f.log.WithError(err).WithField("board", boardID).Warn("read lead page cache")
		} else if ok {
			return lp, nil
		}
	}
	lp, err := f.base.FetchLeadsPage(ctx, boardID, page, size)
	if err != nil {
		return model.LeadPage{}, err
	}
	if f.cache != nil {
		if err := f.cache.Put(ctx, boardID, page, size, lp); err != nil {
			f.log.WithError(err).WithField("board", boardID).Warn("write lead page cache")
		}
	}
	return lp, nil
}

// InvalidateBoard evicts boardID's cached pages.
func (f *CachedFetcher) InvalidateBoard(ctx context.Context, boardID string) error {
	if f.cache == nil {
		return nil
	}
	return f.cache.EvictBoard(ctx, boardID)
}

type memEntry struct {
	page    model.LeadPage
	expires time.Time
}

// Memory is a process-local Cache. A zero TTL means entries never expire.
type Memory struct {
	mu     sync.Mutex
	ttl    time.Duration
	boards map[string]map[string]memEntry
	now    func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl < 0 {
		ttl = 0
	}
	return &Memory{ttl: ttl, boards: map[string]map[string]memEntry{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, boardID string, page, size int) (model.LeadPage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages := m.boards[boardID]
	e, ok := pages[pageKey(page, size)]
	if !ok {
		return model.LeadPage{}, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(pages, pageKey(page, size))
		return model.LeadPage{}, false, nil
	}
	return clonePage(e.page), true, nil
}

func (m *Memory) Put(_ context.Context, boardID string, page, size int, lp model.LeadPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages, ok := m.boards[boardID]
	if !ok {
		pages = map[string]memEntry{}
		m.boards[boardID] = pages
	}
	e := memEntry{page: clonePage(lp)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	pages[pageKey(page, size)] = e
	return nil
}

func (m *Memory) EvictBoard(_ context.Context, boardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boards, boardID)
	return nil
}

func pageKey(page, size int) string {
	return strconv.Itoa(page) + ":" + strconv.Itoa(size)
}

func clonePage(lp model.LeadPage) model.LeadPage {
	lp.Data = append([]model.Lead(nil), lp.Data...)
	return lp
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"leadboard/internal/api"
	"leadboard/internal/board"
	"leadboard/internal/model"
	"leadboard/internal/notify"
	"leadboard/internal/pagecache"
	"leadboard/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// runtime is everything a board session needs: the API client, the cached fetcher, the local
// journal and the engine wired on top of them.
type runtime struct {
	client *api.Client
	engine *board.Engine
	db     *store.DB
	redis  *redis.Client
}

func openRuntime(ctx context.Context, app *App, sink notify.Sink) (*runtime, error) {
	c, err := app.client()
	if err != nil {
		return nil, err
	}
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	rt := &runtime{client: c, db: db}

	cache, err := rt.openCache(app)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.engine = board.New(board.Config{
		Fetcher:  pagecache.NewCachedFetcher(c, cache, app.log),
		Mover:    c,
		Notifier: sink,
		Journal:  db,
		PageSize: app.pageSize(),
		Logger:   app.log,
	})
	return rt, nil
}

func (rt *runtime) openCache(app *App) (pagecache.Cache, error) {
	var cc *store.CacheConfig
	if app.cfg != nil {
		cc = app.cfg.Cache
	}
	ttl, err := cc.TTLDuration()
	if err != nil {
		return nil, err
	}
	switch backend := cc.BackendName(); backend {
	case store.CacheBackendMemory:
		return pagecache.NewMemory(ttl), nil
	case store.CacheBackendSQLite:
		return rt.db.PageCache(ttl), nil
	case store.CacheBackendRedis:
		if strings.TrimSpace(cc.RedisURL) == "" {
			return nil, fmt.Errorf("cache.backend is redis but cache.redisUrl is empty")
		}
		opt, err := redis.ParseURL(strings.TrimSpace(cc.RedisURL))
		if err != nil {
			return nil, fmt.Errorf("parse cache.redisUrl: %w", err)
		}
		rt.redis = redis.NewClient(opt)
		app.log.WithFields(logrus.Fields{"addr": opt.Addr, "db": opt.DB}).Debug("redis page cache")
		return pagecache.NewRedis(rt.redis, ttl), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

func (rt *runtime) Close() error {
	var first error
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			first = err
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// loadAll fetches every remaining page of boardID.
func loadAll(ctx context.Context, eng *board.Engine, boardID string) error {
	for {
		st, ok := eng.Renderable().Status[boardID]
		if !ok {
			return errNotFound("board", boardID)
		}
		if st.Err != nil {
			return st.Err
		}
		if !st.HasMore {
			return nil
		}
		before := len(boardLeadsOf(eng, boardID))
		if err := eng.LoadMore(ctx, boardID); err != nil {
			return err
		}
		if len(boardLeadsOf(eng, boardID)) == before {
			return nil
		}
	}
}

func boardLeadsOf(eng *board.Engine, boardID string) []model.Lead {
	if b, ok := eng.Renderable().Workspace.FindBoard(boardID); ok {
		return b.Leads
	}
	return nil
}

package pagecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadboard/internal/model"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const redisPrefix = "leadboard:pages:"

// Redis shares cached lead pages between clients. Each board keeps a set of its page keys so
// eviction deletes exactly that board's pages.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, ttl: ttl}
}

func boardIndexKey(boardID string) string {
	return redisPrefix + boardID
}

func pageCacheKey(boardID string, page, size int) string {
	return fmt.Sprintf("%s%s:%d:%d", redisPrefix, boardID, page, size)
}

func (r *Redis) Get(ctx context.Context, boardID string, page, size int) (model.LeadPage, bool, error) {
	key := pageCacheKey(boardID, page, size)
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.LeadPage{}, false, nil
	}
	if err != nil {
		return model.LeadPage{}, false, err
	}
	var lp model.LeadPage
	if err := json.Unmarshal(data, &lp); err != nil {
		_ = r.client.Del(ctx, key).Err()
		return model.LeadPage{}, false, nil
	}
	return lp, true, nil
}

func (r *Redis) Put(ctx context.Context, boardID string, page, size int, lp model.LeadPage) error {
	data, err := json.Marshal(lp)
	if err != nil {
		return fmt.Errorf("encode lead page: %w", err)
	}
	key := pageCacheKey(boardID, page, size)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, r.ttl)
		pipe.SAdd(ctx, boardIndexKey(boardID), key)
		if r.ttl > 0 {
			pipe.Expire(ctx, boardIndexKey(boardID), r.ttl)
		}
		return nil
	})
	return err
}

func (r *Redis) EvictBoard(ctx context.Context, boardID string) error {
	idx := boardIndexKey(boardID)
	keys, err := r.client.SMembers(ctx, idx).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return r.client.Del(ctx, append(keys, idx)...).Err()
}

// cache.go - Redis read-through cache in front of a Store
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stat-attack/game"
)

const DefaultCacheTTL = 6 * time.Hour

// CachedStore serves card pools, season averages and game lists from Redis
// and falls through to the wrapped Store on a miss. Single box scores are
// not cached; they are read once per purchased tape.
type CachedStore struct {
	Store
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCachedStore(inner Store, client *redis.Client, prefix string, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{Store: inner, client: client, prefix: prefix, ttl: ttl}
}

func (c *CachedStore) CardPool(ctx context.Context) ([]Card, error) {
	var pool []Card
	err := c.cached(ctx, c.prefix+"stats:pool", &pool, func() (interface{}, error) {
		return c.Store.CardPool(ctx)
	})
	return pool, err
}

func (c *CachedStore) Player(ctx context.Context, playerID int64, season string) (game.Player, error) {
	var p game.Player
	key := fmt.Sprintf("%sstats:avg:%d:%s", c.prefix, playerID, season)
	err := c.cached(ctx, key, &p, func() (interface{}, error) {
		return c.Store.Player(ctx, playerID, season)
	})
	return p, err
}

func (c *CachedStore) PlayerGames(ctx context.Context, playerID int64, season string) ([]game.BoxScore, error) {
	var games []game.BoxScore
	key := fmt.Sprintf("%sstats:games:%d:%s", c.prefix, playerID, season)
	err := c.cached(ctx, key, &games, func() (interface{}, error) {
		return c.Store.PlayerGames(ctx, playerID, season)
	})
	return games, err
}

// cached decodes key into dst, or calls load and stores its result. Redis
// errors are logged and never fail the read.
func (c *CachedStore) cached(ctx context.Context, key string, dst interface{}, load func() (interface{}, error)) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(data, dst); err == nil {
			return nil
		}
		logf("dropping unreadable cache entry %s", key)
	} else if !errors.Is(err, redis.Nil) {
		logf("cache get %s: %v", key, err)
	}

	v, err := load()
	if err != nil {
		return err
	}
	data, err = json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logf("cache set %s: %v", key, err)
	}
	return json.Unmarshal(data, dst)
}

package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryCache keeps rendered expense-summary responses in redis, keyed per
// user so a write by one user never touches another user's entries. It is
// optional: the handlers treat a nil cache as a permanent miss.
type SummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewSummaryCache(cfg RedisConfig, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &SummaryCache{rdb: rdb, ttl: ttl}
}

func (c *SummaryCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *SummaryCache) Close() error {
	return c.rdb.Close()
}

func key(userID, query string) string {
	return "summary:" + userID + ":" + query
}

func (c *SummaryCache) Get(ctx context.Context, userID, query string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	payload, err := c.rdb.Get(ctx, key(userID, query)).Bytes()

	if err != nil {
		// a miss and a redis failure are the same to the caller
		return nil, false
	}

	return payload, true
}

func (c *SummaryCache) Set(ctx context.Context, userID, query string, payload []byte) {
	if c == nil {
		return
	}

	// best effort
	_ = c.rdb.Set(ctx, key(userID, query), payload, c.ttl).Err()
}

// InvalidateUser drops every cached summary for one user; called after any
// expense write so stale totals are never served.
func (c *SummaryCache) InvalidateUser(ctx context.Context, userID string) {
	if c == nil {
		return
	}

	iter := c.rdb.Scan(ctx, 0, "summary:"+userID+":*", 100).Iterator()

	keys := make([]string, 0, 16)

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if iter.Err() != nil {
		return
	}

	if len(keys) > 0 {
		_ = c.rdb.Del(ctx, keys...).Err()
	}
}

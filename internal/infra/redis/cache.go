// Package redis は go-redis を使った answer.CacheStore の実装を提供する
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/mo"

	"github.com/jinford/textbook-rag/internal/core/answer"
)

// DefaultKeyPrefix はキャッシュキーの接頭辞
const DefaultKeyPrefix = "textbook-rag:cache:"

// Cache は Redis をバックエンドにした期限付きキャッシュ
type Cache struct {
	rdb    goredis.Cmdable
	prefix string
}

var _ answer.CacheStore = (*Cache)(nil)

// NewCache は任意の go-redis クライアントから Cache を作成する
func NewCache(rdb goredis.Cmdable) *Cache {
	return &Cache{rdb: rdb, prefix: DefaultKeyPrefix}
}

// Dial は addr に接続して疎通を確認したクライアントを返す
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	if addr == "" {
		return nil, errors.New("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Get はキーの値を返す。期限切れは Redis 側で消える。
func (c *Cache) Get(ctx context.Context, key string) (mo.Option[string], error) {
	value, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return mo.None[string](), nil
		}
		return mo.None[string](), fmt.Errorf("redis get: %w", err)
	}
	return mo.Some(value), nil
}

// Set は ttl 付きで値を保存する
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

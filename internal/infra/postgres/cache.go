package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/mo"

	"github.com/jinford/textbook-rag/internal/core/answer"
	"github.com/jinford/textbook-rag/internal/infra/postgres/sqlc"
)

// Cache は cache_entries テーブルを使う answer.CacheStore の実装です
type Cache struct {
	q   sqlc.Querier
	now func() time.Time
}

var _ answer.CacheStore = (*Cache)(nil)

// NewCache は新しい Cache を作成します
func NewCache(q sqlc.Querier) *Cache {
	return &Cache{q: q, now: time.Now}
}

// Get は期限内のエントリを返します。
// 見つからない場合は同じキーの期限切れエントリを削除します
func (c *Cache) Get(ctx context.Context, key string) (mo.Option[string], error) {
	value, err := c.q.GetCacheEntry(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, err := c.q.DeleteExpiredCacheEntry(ctx, key); err != nil {
				return mo.None[string](), fmt.Errorf("failed to delete expired cache entry: %w", err)
			}
			return mo.None[string](), nil
		}
		return mo.None[string](), fmt.Errorf("failed to get cache entry: %w", err)
	}
	return mo.Some(value), nil
}

// Set はエントリを上書き保存します
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.q.UpsertCacheEntry(ctx, sqlc.UpsertCacheEntryParams{
		CacheKey:  key,
		Value:     value,
		ExpiresAt: pgtype.Timestamptz{Time: c.now().Add(ttl), Valid: true},
	}); err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// Purge は期限切れのエントリを削除し、削除件数を返します
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	n, err := c.q.DeleteExpiredCacheEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	return n, nil
}

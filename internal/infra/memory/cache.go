package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jinford/textbook-rag/internal/core/answer"
	"github.com/samber/mo"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Cache は answer.CacheStore のメモリ実装
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

var _ answer.CacheStore = (*Cache)(nil)

// NewCache は空の Cache を作成する
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get は期限内の値を返す。期限切れのエントリは削除する。
func (c *Cache) Get(_ context.Context, key string) (mo.Option[string], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return mo.None[string](), nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return mo.None[string](), nil
	}
	return mo.Some(e.value), nil
}

// Set は値を ttl 付きで上書き保存する
func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

// Len は保持しているエントリ数を返す
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient は Get/Set だけを実装した goredis.Cmdable のスタブ
type stubClient struct {
	goredis.Cmdable

	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func (s *stubClient) Get(_ context.Context, key string) *goredis.StringCmd {
	if s.err != nil {
		return goredis.NewStringResult("", s.err)
	}
	v, ok := s.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (s *stubClient) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *goredis.StatusCmd {
	if s.err != nil {
		return goredis.NewStatusResult("", s.err)
	}
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return goredis.NewStatusResult("OK", nil)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
	cache := NewCache(client)

	miss, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, miss.IsAbsent())

	require.NoError(t, cache.Set(ctx, "k", "v", time.Hour))
	assert.Equal(t, time.Hour, client.ttls[DefaultKeyPrefix+"k"])

	hit, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", hit.MustGet())
}

func TestCache_Errors(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(&stubClient{err: errors.New("connection refused")})

	_, err := cache.Get(ctx, "k")
	require.Error(t, err)
	require.Error(t, cache.Set(ctx, "k", "v", time.Minute))

	_, err = Dial(ctx, "")
	require.Error(t, err)
}

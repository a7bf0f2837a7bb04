package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/teamhub/kb-api/pkg/errors"
)

type countingCacheMetrics struct {
	hits   int
	misses int
}

func (m *countingCacheMetrics) RecordCacheOperation(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func newCacheForTest(t *testing.T, metrics CacheMetrics) *CacheRepository {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheRepository(client, metrics)
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	metrics := &countingCacheMetrics{}
	cache := newCacheForTest(t, metrics)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "stats", map[string]int{"users": 3}, time.Minute))

	var out map[string]int
	require.NoError(t, cache.Get(ctx, "stats", &out))
	assert.Equal(t, 3, out["users"])
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 0, metrics.misses)
}

func TestCacheRepositoryGetMissCounts(t *testing.T) {
	metrics := &countingCacheMetrics{}
	cache := newCacheForTest(t, metrics)

	var out map[string]int
	err := cache.Get(context.Background(), "absent", &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.Equal(t, 0, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	cache := newCacheForTest(t, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "activities:feed:a", []string{"x"}, time.Minute))
	require.NoError(t, cache.Set(ctx, "activities:feed:b", []string{"y"}, time.Minute))
	require.NoError(t, cache.Set(ctx, "admin:stats", []string{"z"}, time.Minute))

	require.NoError(t, cache.DeleteByPattern(ctx, "activities:*"))

	var out []string
	assert.True(t, errors.Is(cache.Get(ctx, "activities:feed:a", &out), appErrors.ErrCacheMiss))
	assert.True(t, errors.Is(cache.Get(ctx, "activities:feed:b", &out), appErrors.ErrCacheMiss))
	assert.NoError(t, cache.Get(ctx, "admin:stats", &out))
}

func TestCacheRepositoryNilClientDisablesCache(t *testing.T) {
	metrics := &countingCacheMetrics{}
	cache := NewCacheRepository(nil, metrics)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "stats", "value", time.Minute))

	var out string
	err := cache.Get(ctx, "stats", &out)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.Equal(t, 0, metrics.hits)
	assert.Equal(t, 0, metrics.misses)
}

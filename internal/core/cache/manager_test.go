package cache

import (
	"context"
	"testing"
	"time"

	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(maxSize int, ttl time.Duration) *CacheManager {
	return NewManager(config.CacheConfig{
		Enabled: true,
		Backend: BackendMemory,
		MaxSize: maxSize,
		TTL:     ttl,
	})
}

func TestCacheManager_GetSet(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(10, time.Minute)
	defer m.Close()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k", "v"))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestCacheManager_Expiry(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(10, time.Minute)
	defer m.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v"))
	now = now.Add(2 * time.Minute)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	assert.Equal(t, 0, m.GetStats().Size)
}

func TestCacheManager_EvictsLeastUsed(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(2, time.Minute)
	defer m.Close()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Equal(t, 2, m.GetStats().Size)
}

func TestCacheManager_ReplaceDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(1, time.Minute)
	defer m.Close()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "a", "2"))

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	assert.Equal(t, int64(0), m.GetStats().Evictions)
}

func TestCacheManager_CleanupLoopStops(t *testing.T) {
	m := NewManager(config.CacheConfig{MaxSize: 1, TTL: time.Millisecond, CleanupInterval: time.Millisecond})
	require.NoError(t, m.Set(context.Background(), "a", "1"))

	assert.Eventually(t, func() bool { return m.GetStats().Size == 0 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("conversion", "Cup", "g", "Flour"), Key("conversion", "cup", "g", " flour "))
	assert.NotEqual(t, Key("conversion", "cup", "g", "flour"), Key("fdc", "cup", "g", "flour"))
	assert.NotEqual(t, Key("x", "ab", "c"), Key("x", "a", "bc"))
}

func TestNew_Disabled(t *testing.T) {
	c, err := New(&config.Config{Cache: config.CacheConfig{Enabled: false}})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(&config.Config{Cache: config.CacheConfig{Enabled: true, Backend: "memcached"}})
	assert.Error(t, err)
	assert.Nil(t, c)
}

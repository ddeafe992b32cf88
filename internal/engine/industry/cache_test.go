// internal/engine/industry/cache_test.go
package industry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venture-match-engine/internal/common/config"
	"venture-match-engine/internal/common/logger"
)

type stubHistory struct {
	stats Stats
	err   error
	calls int
}

func (s *stubHistory) EngagementStats(ctx context.Context, a, b []string) (Stats, error) {
	s.calls++
	return s.stats, s.err
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		AffinityTTL:     24 * time.Hour,
		DefaultAffinity: 0.5,
	}
}

func TestAffinityCacheHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	history := &stubHistory{}
	cache := NewCache(db, history, testCacheConfig(), logger.NewTestLogger(t))

	mock.ExpectGet("industry:rel:fintech|fintech").SetVal("0.73")

	score := cache.Affinity(context.Background(), []string{"fintech"}, []string{"fintech"})

	assert.InDelta(t, 0.73, score, 1e-9)
	assert.Zero(t, history.calls, "cache hit must not touch the history source")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAffinityMissComputesAndWrites(t *testing.T) {
	srv := miniredis.RunT(t)
	db := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	// 10 matches, 25 messages each, 3.5 days average duration:
	// 0.5*(25/50) + 0.5*(3.5/7) = 0.5
	history := &stubHistory{stats: Stats{
		Matches:       10,
		Messages:      250,
		TotalDuration: 35 * 24 * time.Hour,
	}}
	cache := NewCache(db, history, testCacheConfig(), logger.NewTestLogger(t))

	score := cache.Affinity(context.Background(), []string{"fintech"}, []string{"agritech"})
	assert.InDelta(t, 0.5, score, 1e-9)
	assert.Equal(t, 1, history.calls)

	// Second lookup is served from the cache entry.
	score = cache.Affinity(context.Background(), []string{"agritech"}, []string{"fintech"})
	assert.InDelta(t, 0.5, score, 1e-9)
	assert.Equal(t, 1, history.calls, "second lookup must hit the cache")

	ttl := srv.TTL("industry:rel:agritech|fintech")
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestAffinityRecomputesAfterExpiry(t *testing.T) {
	srv := miniredis.RunT(t)
	db := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	history := &stubHistory{stats: Stats{Matches: 4, Messages: 200, TotalDuration: 28 * 24 * time.Hour}}
	cache := NewCache(db, history, testCacheConfig(), logger.NewTestLogger(t))

	cache.Affinity(context.Background(), []string{"fintech"}, []string{"agritech"})
	require.Equal(t, 1, history.calls)

	srv.FastForward(25 * time.Hour)

	cache.Affinity(context.Background(), []string{"fintech"}, []string{"agritech"})
	assert.Equal(t, 2, history.calls, "expired entry must be recomputed")
}

func TestAffinityNoHistoryYieldsDefault(t *testing.T) {
	srv := miniredis.RunT(t)
	db := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	history := &stubHistory{stats: Stats{Matches: 0}}
	cache := NewCache(db, history, testCacheConfig(), logger.NewTestLogger(t))

	score := cache.Affinity(context.Background(), []string{"fintech"}, []string{"agritech"})
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestAffinityDegradesOnRedisFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	history := &stubHistory{}
	cache := NewCache(db, history, testCacheConfig(), logger.NewTestLogger(t))

	mock.ExpectGet("industry:rel:fintech|fintech").SetErr(errors.New("connection refused"))

	score := cache.Affinity(context.Background(), []string{"fintech"}, []string{"fintech"})

	assert.InDelta(t, 0.5, score, 1e-9)
	assert.Zero(t, history.calls)
}

func TestAffinityDegradesOnHistoryFailure(t *testing.T) {
	srv := miniredis.RunT(t)
	db := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	history := &stubHistory{err: errors.New("relation does not exist")}
	cache := NewCache(db, history, testCacheConfig(), logger.NewTestLogger(t))

	score := cache.Affinity(context.Background(), []string{"fintech"}, []string{"agritech"})
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestCacheKeyOrderIndependent(t *testing.T) {
	a := cacheKey([]string{"FinTech", "healthtech"}, []string{"agritech"})
	b := cacheKey([]string{"agritech"}, []string{"healthtech", "fintech"})

	assert.Equal(t, a, b)
	assert.Equal(t, "industry:rel:agritech|fintech,healthtech", a)
}

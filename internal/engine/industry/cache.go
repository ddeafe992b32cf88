// internal/engine/industry/cache.go
package industry

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"venture-match-engine/internal/common/config"
	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "industry:rel:"

	// Normalization caps for the two engagement signals.
	messagesPerMatchNorm   = 50.0
	engagementDurationNorm = 7 * 24 * time.Hour
)

// HistorySource aggregates engagement outcomes of past accepted matches
// whose participants declared industries intersecting each input set.
type HistorySource interface {
	EngagementStats(ctx context.Context, a, b []string) (Stats, error)
}

// Stats summarizes historical engagement between two industry groups.
type Stats struct {
	Matches       int
	Messages      int64
	TotalDuration time.Duration
}

// Cache maintains time-bounded pairwise industry affinity scores in Redis.
// Misses recompute synchronously from the history source; concurrent misses
// on the same key may both compute and write, which is benign because the
// write is idempotent.
type Cache struct {
	redis   *redis.Client
	history HistorySource
	cfg     config.CacheConfig
	logger  logger.Logger
}

func NewCache(rdb *redis.Client, history HistorySource, cfg config.CacheConfig, log logger.Logger) *Cache {
	return &Cache{
		redis:   rdb,
		history: history,
		cfg:     cfg,
		logger:  log.WithFields(map[string]interface{}{"component": "industry-cache"}),
	}
}

// Affinity returns the cached affinity score between two industry sets,
// computing and refreshing the entry on a miss or after expiry. Any backend
// failure degrades to the configured default score.
func (c *Cache) Affinity(ctx context.Context, a, b []string) float64 {
	key := cacheKey(a, b)

	if val, err := c.redis.Get(ctx, key).Result(); err == nil {
		if score, parseErr := strconv.ParseFloat(val, 64); parseErr == nil {
			metrics.AffinityCacheLookups.WithLabelValues("hit").Inc()
			return score
		}
	} else if err != redis.Nil {
		c.logger.Warn("affinity cache unavailable, using default", map[string]interface{}{
			"error": err,
		})
		metrics.AffinityCacheLookups.WithLabelValues("error").Inc()
		return c.cfg.DefaultAffinity
	}

	metrics.AffinityCacheLookups.WithLabelValues("miss").Inc()

	score := c.compute(ctx, a, b)

	if err := c.redis.Set(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), c.cfg.AffinityTTL).Err(); err != nil {
		c.logger.Warn("failed to write affinity cache entry", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	}

	return score
}

// compute derives the affinity from historical engagement, weighted 50/50
// between normalized message count and normalized engagement duration. No
// history yields the default score.
func (c *Cache) compute(ctx context.Context, a, b []string) float64 {
	stats, err := c.history.EngagementStats(ctx, a, b)
	if err != nil {
		c.logger.Warn("engagement history lookup failed, using default", map[string]interface{}{
			"error": err,
		})
		return c.cfg.DefaultAffinity
	}
	if stats.Matches == 0 {
		return c.cfg.DefaultAffinity
	}

	msgPerMatch := float64(stats.Messages) / float64(stats.Matches)
	msgScore := clamp01(msgPerMatch / messagesPerMatchNorm)

	avgDuration := stats.TotalDuration / time.Duration(stats.Matches)
	durScore := clamp01(float64(avgDuration) / float64(engagementDurationNorm))

	return 0.5*msgScore + 0.5*durScore
}

// cacheKey builds an order-independent key for the pair of industry sets:
// both sets are normalized and sorted, then the two halves are ordered
// lexicographically.
func cacheKey(a, b []string) string {
	ka := normalizeKey(a)
	kb := normalizeKey(b)
	if ka > kb {
		ka, kb = kb, ka
	}
	return keyPrefix + ka + "|" + kb
}

func normalizeKey(items []string) string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

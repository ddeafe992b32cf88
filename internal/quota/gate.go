// internal/quota/gate.go
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"venture-match-engine/internal/common/config"
	"venture-match-engine/internal/common/errors"
	"venture-match-engine/internal/common/logger"
	"venture-match-engine/internal/common/metrics"
)

// Action names the quota-gated operations.
type Action string

const (
	ActionRetrieval Action = "retrieval"
	ActionSwipe     Action = "swipe"
)

// Gate enforces per-user daily action limits on Redis counters. Counter
// keys roll over at midnight UTC; a Redis outage fails open so matching
// stays available when the quota backend is down.
type Gate struct {
	client *redis.Client
	cfg    config.QuotaConfig
	logger logger.Logger
	now    func() time.Time
}

func NewGate(client *redis.Client, cfg config.QuotaConfig, log logger.Logger) *Gate {
	return &Gate{
		client: client,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "quota-gate"}),
		now:    time.Now,
	}
}

// Allow consumes one unit of the user's daily quota for the action. It
// returns a quota error with a retry-after hint when the limit is reached.
// The counter is consumed before the action runs; a rejected or failed
// action still counts.
func (g *Gate) Allow(ctx context.Context, userID string, action Action) error {
	limit := g.limit(action)
	if limit <= 0 {
		return nil
	}

	now := g.now().UTC()
	key := fmt.Sprintf("quota:%s:%s:%s", action, userID, now.Format("2006-01-02"))

	count, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		g.logger.WithError(err).Warn("quota backend unavailable, failing open", map[string]interface{}{
			"userId": userID,
			"action": string(action),
		})
		return nil
	}
	if count == 1 {
		// First use today; bound the key's lifetime past the rollover.
		if err := g.client.Expire(ctx, key, 25*time.Hour).Err(); err != nil {
			g.logger.WithError(err).Warn("failed to set quota key expiry", map[string]interface{}{
				"key": key,
			})
		}
	}

	if count > int64(limit) {
		metrics.QuotaRejections.WithLabelValues(string(action)).Inc()
		return errors.NewQuotaExceededError(string(action), untilMidnightUTC(now))
	}
	return nil
}

// Remaining reports how many units of the action's quota the user has left
// today. Best effort: a Redis error reports the full limit.
func (g *Gate) Remaining(ctx context.Context, userID string, action Action) int {
	limit := g.limit(action)
	if limit <= 0 {
		return -1
	}

	now := g.now().UTC()
	key := fmt.Sprintf("quota:%s:%s:%s", action, userID, now.Format("2006-01-02"))

	count, err := g.client.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		g.logger.WithError(err).Warn("failed to read quota counter", map[string]interface{}{
			"key": key,
		})
		return limit
	}
	remaining := limit - int(count)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (g *Gate) limit(action Action) int {
	switch action {
	case ActionRetrieval:
		return g.cfg.DailyRetrievals
	case ActionSwipe:
		return g.cfg.DailySwipes
	default:
		return 0
	}
}

func untilMidnightUTC(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return midnight.Sub(now)
}

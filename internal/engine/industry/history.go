// internal/engine/industry/history.go
package industry

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// PostgresHistory reads engagement outcomes of accepted matches from the
// relational store.
type PostgresHistory struct {
	db *sql.DB
}

func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// EngagementStats aggregates message volume and conversation duration over
// accepted matches whose two participants declared industries intersecting
// the input sets (in either orientation).
func (h *PostgresHistory) EngagementStats(ctx context.Context, a, b []string) (Stats, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(c.message_count), 0),
		       COALESCE(SUM(EXTRACT(EPOCH FROM (c.last_message_at - c.created_at))), 0)
		FROM matches m
		JOIN conversations c ON c.match_id = m.id
		JOIN profiles pa ON pa.user_id = m.user_a
		JOIN profiles pb ON pb.user_id = m.user_b
		WHERE m.status = 'accepted'
		  AND ((pa.industries && $1 AND pb.industries && $2)
		    OR (pa.industries && $2 AND pb.industries && $1))`,
		pq.Array(a), pq.Array(b))

	var matches int
	var messages int64
	var durationSecs float64
	if err := row.Scan(&matches, &messages, &durationSecs); err != nil {
		return Stats{}, err
	}

	return Stats{
		Matches:       matches,
		Messages:      messages,
		TotalDuration: time.Duration(durationSecs * float64(time.Second)),
	}, nil
}

// internal/engine/swipe/store.go
package swipe

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"venture-match-engine/internal/common/errors"
	"venture-match-engine/internal/models"
)

// Store persists matches and swipes. TransitionStatus is a compare-and-set:
// exactly one caller wins the pending-to-terminal transition for a pair, so
// mutual-match side effects run once even under concurrent swipes.
type Store interface {
	// EnsureMatch creates the pending match row for the pair if absent and
	// returns the current row either way.
	EnsureMatch(ctx context.Context, userA, userB string) (*models.Match, error)
	// RecordSwipe upserts the actor's decision toward the target.
	RecordSwipe(ctx context.Context, s models.Swipe) error
	// LatestSwipe returns the actor's current decision toward the target,
	// or nil when none exists.
	LatestSwipe(ctx context.Context, actorID, targetID string) (*models.Swipe, error)
	// TransitionStatus moves the match from pending to the given terminal
	// status. Returns true when this call performed the transition.
	TransitionStatus(ctx context.Context, matchID string, to models.MatchStatus) (bool, error)
	// AcceptedForUser lists the user's accepted matches, most recent first.
	AcceptedForUser(ctx context.Context, userID string) ([]models.Match, error)
	// PartnerIDs lists every id the user has a match row with, any status.
	PartnerIDs(ctx context.Context, userID string) ([]string, error)
	// ExpirePending flips pending matches older than the cutoff to expired
	// and returns how many rows changed.
	ExpirePending(ctx context.Context, olderThan time.Time) (int64, error)
}

// PostgresStore implements Store on the shared matches and swipes tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureMatch(ctx context.Context, userA, userB string) (*models.Match, error) {
	a, b := models.PairKey(userA, userB)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, user_a, user_b, status, created_at, last_activity_at)
		VALUES ($1, $2, $3, 'pending', NOW(), NOW())
		ON CONFLICT (user_a, user_b) DO NOTHING`,
		uuid.New().String(), a, b)
	if err != nil {
		return nil, errors.NewDatabaseError("ensure match", err)
	}

	return s.getByPair(ctx, a, b)
}

func (s *PostgresStore) getByPair(ctx context.Context, a, b string) (*models.Match, error) {
	var m models.Match
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_a, user_b, status, created_at, last_activity_at
		FROM matches
		WHERE user_a = $1 AND user_b = $2`,
		a, b).Scan(&m.ID, &m.UserA, &m.UserB, &m.Status, &m.CreatedAt, &m.LastActivityAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("match", a+"|"+b)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("load match", err)
	}
	return &m, nil
}

func (s *PostgresStore) RecordSwipe(ctx context.Context, sw models.Swipe) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO swipes (actor_id, target_id, direction, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (actor_id, target_id)
		DO UPDATE SET direction = EXCLUDED.direction, created_at = NOW()`,
		sw.ActorID, sw.TargetID, string(sw.Direction))
	if err != nil {
		return errors.NewDatabaseError("record swipe", err)
	}
	return nil
}

func (s *PostgresStore) LatestSwipe(ctx context.Context, actorID, targetID string) (*models.Swipe, error) {
	var sw models.Swipe
	err := s.db.QueryRowContext(ctx, `
		SELECT actor_id, target_id, direction, created_at
		FROM swipes
		WHERE actor_id = $1 AND target_id = $2`,
		actorID, targetID).Scan(&sw.ActorID, &sw.TargetID, &sw.Direction, &sw.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("load swipe", err)
	}
	return &sw, nil
}

func (s *PostgresStore) TransitionStatus(ctx context.Context, matchID string, to models.MatchStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE matches
		SET status = $2, last_activity_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		matchID, string(to))
	if err != nil {
		return false, errors.NewDatabaseError("transition match", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("transition match", err)
	}
	return rows == 1, nil
}

func (s *PostgresStore) AcceptedForUser(ctx context.Context, userID string) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_a, user_b, status, created_at, last_activity_at
		FROM matches
		WHERE (user_a = $1 OR user_b = $1) AND status = 'accepted'
		ORDER BY last_activity_at DESC`,
		userID)
	if err != nil {
		return nil, errors.NewDatabaseError("list accepted matches", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.UserA, &m.UserB, &m.Status, &m.CreatedAt, &m.LastActivityAt); err != nil {
			return nil, errors.NewDatabaseError("scan match", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list accepted matches", err)
	}
	return matches, nil
}

func (s *PostgresStore) PartnerIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CASE WHEN user_a = $1 THEN user_b ELSE user_a END
		FROM matches
		WHERE user_a = $1 OR user_b = $1`,
		userID)
	if err != nil {
		return nil, errors.NewDatabaseError("list partners", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewDatabaseError("scan partner", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list partners", err)
	}
	return ids, nil
}

func (s *PostgresStore) ExpirePending(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE matches
		SET status = 'expired', last_activity_at = NOW()
		WHERE status = 'pending' AND last_activity_at < $1`,
		olderThan)
	if err != nil {
		return 0, errors.NewDatabaseError("expire pending matches", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("expire pending matches", err)
	}
	return rows, nil
}

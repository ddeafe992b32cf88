// internal/profile/preferences.go
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	commonerrors "venture-match-engine/internal/common/errors"
	"venture-match-engine/internal/models"
)

// PreferenceStore persists each caller's default FilterCriteria, used when
// a retrieval request carries no explicit filters.
type PreferenceStore interface {
	Save(ctx context.Context, userID string, criteria models.FilterCriteria) error
	Get(ctx context.Context, userID string) (*models.FilterCriteria, error)
}

// PostgresPreferences stores filter criteria as a JSON blob per user.
type PostgresPreferences struct {
	db *sql.DB
}

func NewPostgresPreferences(db *sql.DB) *PostgresPreferences {
	return &PostgresPreferences{db: db}
}

func (p *PostgresPreferences) Save(ctx context.Context, userID string, criteria models.FilterCriteria) error {
	data, err := json.Marshal(criteria)
	if err != nil {
		return commonerrors.NewValidationError("filter criteria is not serializable")
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO match_preferences (user_id, criteria, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET criteria = EXCLUDED.criteria, updated_at = EXCLUDED.updated_at`,
		userID, data, time.Now().UTC())
	if err != nil {
		return commonerrors.NewDatabaseError("save preferences", err)
	}
	return nil
}

// Get returns the stored criteria or nil when the user has none.
func (p *PostgresPreferences) Get(ctx context.Context, userID string) (*models.FilterCriteria, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT criteria FROM match_preferences WHERE user_id = $1`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, commonerrors.NewDatabaseError("get preferences", err)
	}

	var criteria models.FilterCriteria
	if err := json.Unmarshal(data, &criteria); err != nil {
		return nil, commonerrors.NewDatabaseError("decode preferences", err)
	}
	return &criteria, nil
}

// internal/engine/industry/history_test.go
package industry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagementStatsAggregates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"count", "sum_messages", "sum_duration"}).
		AddRow(3, 120, float64(3*24*3600))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(rows)

	history := NewPostgresHistory(db)
	stats, err := history.EngagementStats(context.Background(), []string{"fintech"}, []string{"agritech"})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Matches)
	assert.Equal(t, int64(120), stats.Messages)
	assert.Equal(t, 3*24*time.Hour, stats.TotalDuration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngagementStatsEmptyHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"count", "sum_messages", "sum_duration"}).
		AddRow(0, 0, 0.0)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(rows)

	history := NewPostgresHistory(db)
	stats, err := history.EngagementStats(context.Background(), []string{"fintech"}, []string{"agritech"})
	require.NoError(t, err)

	assert.Zero(t, stats.Matches)
	assert.Zero(t, stats.Messages)
	assert.Zero(t, stats.TotalDuration)
}

package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/alchemorsel/nutriplan/test/testutils"
)

func TestQueryMonitor_CountsStatements(t *testing.T) {
	db := openTestDB(t)
	monitor := NewQueryMonitor(time.Hour, zap.NewNop())
	require.NoError(t, monitor.Install(db))

	repo := NewRecipeRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.BulkCreate(ctx, testutils.TwoRecipeCatalog()))
	_, err := repo.ListProfiles(ctx)
	require.NoError(t, err)

	stats := monitor.Stats()
	assert.Greater(t, stats.TotalQueries, int64(1))
	assert.Zero(t, stats.SlowQueries)
	assert.Empty(t, monitor.SlowQueries(0))

	monitor.Reset()
	assert.Zero(t, monitor.Stats().TotalQueries)
}

func TestQueryMonitor_RecordsSlowQueries(t *testing.T) {
	monitor := NewQueryMonitor(time.Millisecond, zap.NewNop())
	monitor.maxSlowLogs = 2

	monitor.record("SELECT 1", time.Microsecond, nil)
	monitor.record("SELECT * FROM recipes WHERE title = 'a'", 5*time.Millisecond, nil)
	monitor.record("SELECT 2", 6*time.Millisecond, errors.New("boom"))
	monitor.record("SELECT 3", 7*time.Millisecond, nil)

	stats := monitor.Stats()
	assert.Equal(t, int64(4), stats.TotalQueries)
	assert.Equal(t, int64(3), stats.SlowQueries)
	assert.Equal(t, int64(1), stats.FailedQueries)

	slow := monitor.SlowQueries(0)
	require.Len(t, slow, 2)
	assert.Equal(t, "SELECT 2", slow[0].SQL)
	assert.Equal(t, "boom", slow[0].Error)
	assert.Equal(t, "SELECT 3", slow[1].SQL)

	assert.Len(t, monitor.SlowQueries(1), 1)
	assert.Equal(t, "SELECT * FROM recipes WHERE title = ?a?", sanitizeSQL("SELECT * FROM recipes WHERE title = 'a'"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, ParseLogLevel("debug"))
	assert.Equal(t, logger.Warn, ParseLogLevel("WARN"))
	assert.Equal(t, logger.Error, ParseLogLevel("error"))
	assert.Equal(t, logger.Silent, ParseLogLevel(""))
}

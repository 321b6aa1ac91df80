package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	gormrepo "github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/nutriplan/test/testutils"
)

func TestConnectionManager_MigrateAndServeCatalog(t *testing.T) {
	cfg := testutils.StartPostgres(t)
	ctx := context.Background()

	monitor := gormrepo.NewQueryMonitor(time.Second, zap.NewNop())
	cm, err := NewConnectionManager(ctx, cfg, monitor, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cm.Close() })

	require.NoError(t, cm.Migrate())
	// applying again is a no-op
	require.NoError(t, cm.Migrate())
	require.NoError(t, cm.HealthCheck(ctx))

	repo := gormrepo.NewRecipeRepository(cm.DB())
	require.NoError(t, repo.BulkCreate(ctx, testutils.TwoRecipeCatalog()))

	profiles, err := repo.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
	assert.Greater(t, cm.QueryMonitor().Stats().TotalQueries, int64(0))
}

func TestNewConnectionManager_Unreachable(t *testing.T) {
	cfg := testutils.StartPostgres(t)
	cfg.Port = 1

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := NewConnectionManager(ctx, cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

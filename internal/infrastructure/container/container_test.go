package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/pkg/healthcheck"
	"github.com/alchemorsel/nutriplan/test/testutils"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "app:\n  log_level: error\n" +
		"database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "catalog.db") + "\n  log_level: silent\n" +
		"cache:\n  driver: memory\n" +
		"optimizer:\n  default_targets:\n    protein: 80\n    kcal: 1800\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCoreModule_OptimizesAgainstSeededCatalog(t *testing.T) {
	var (
		catalogSvc inbound.CatalogService
		mealPlans  inbound.MealPlanService
		history    inbound.PlanHistoryService
	)
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(ConfigPath(writeConfig(t))),
		CoreModule,
		fx.Populate(&catalogSvc, &mealPlans, &history),
	)
	app.RequireStart()
	defer app.RequireStop()

	ctx := context.Background()
	seeded, err := catalogSvc.SeedDemo(ctx)
	require.NoError(t, err)
	assert.Positive(t, seeded)

	result, _, err := mealPlans.Optimize(ctx, inbound.OptimizeCommand{
		Targets: nutrition.Targets{nutrition.Protein: 60},
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	plans, err := history.RecentPlans(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestOptimizerOptions(t *testing.T) {
	cfg := &config.Config{
		Optimizer: config.OptimizerConfig{
			CalorieOvershoot:           1.5,
			SignificanceThreshold:      0.1,
			MaxServings:                3,
			QuantityPrecision:          1,
			SolveTimeout:               time.Second,
			FallbackNutrients:          2,
			FallbackRecipesPerNutrient: 1,
			BatchWorkers:               8,
			DefaultTargets:             map[string]float64{"protein": 90, "carbs": 250},
		},
		Cache: config.CacheConfig{SnapshotTTL: time.Minute},
	}

	opts, err := OptimizerOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1.5, opts.CalorieOvershoot)
	assert.Equal(t, 3.0, opts.MaxServings)
	assert.Equal(t, 8, opts.BatchWorkers)
	assert.Equal(t, time.Minute, opts.SnapshotTTL)
	assert.Equal(t, nutrition.Targets{nutrition.Protein: 90, nutrition.Carbohydrate: 250}, opts.DefaultTargets)

	cfg.Optimizer.DefaultTargets = map[string]float64{"unobtainium": 1}
	_, err = OptimizerOptions(cfg)
	assert.Error(t, err)
}

func TestCatalogChecker(t *testing.T) {
	ctx := context.Background()

	empty, err := memory.NewRecipeRepository()
	require.NoError(t, err)
	result := NewCatalogChecker(empty).Check(ctx)
	assert.Equal(t, healthcheck.StatusDegraded, result.Status)

	full, err := memory.NewRecipeRepository(testutils.TwoRecipeCatalog()...)
	require.NoError(t, err)
	result = NewCatalogChecker(full).Check(ctx)
	assert.Equal(t, healthcheck.StatusHealthy, result.Status)
}

package gorm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
	"github.com/alchemorsel/nutriplan/test/testutils"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(AllModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// RecipeRepositoryTestSuite exercises the catalog against in-memory SQLite
type RecipeRepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	repo *RecipeRepository
}

func (s *RecipeRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = NewRecipeRepository(openTestDB(s.T()))
}

func (s *RecipeRepositoryTestSuite) TestEmptyCatalog() {
	version, err := s.repo.Version(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), version)

	profiles, err := s.repo.ListProfiles(s.ctx)
	s.Require().NoError(err)
	s.Empty(profiles)
}

func (s *RecipeRepositoryTestSuite) TestBulkCreateKeepsOrderAndVector() {
	catalog := testutils.NewProfileFactory(7).Catalog(12)
	s.Require().NoError(s.repo.BulkCreate(s.ctx, catalog))

	profiles, err := s.repo.ListProfiles(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(profiles, len(catalog))
	for i := range catalog {
		s.Equal(catalog[i].ID(), profiles[i].ID())
		s.Equal(catalog[i].Title(), profiles[i].Title())
		s.Equal(catalog[i].Nutrients(), profiles[i].Nutrients())
	}

	version, err := s.repo.Version(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), version)
}

func (s *RecipeRepositoryTestSuite) TestWritesBumpVersion() {
	catalog := testutils.DemoCatalog()
	s.Require().NoError(s.repo.BulkCreate(s.ctx, catalog[:3]))
	s.Require().NoError(s.repo.Create(s.ctx, catalog[3]))

	updated := nutrition.MustProfile(catalog[0].ID(), "Chicken Breast (skinless)",
		catalog[0].Nutrients().With(nutrition.Sodium, 70))
	s.Require().NoError(s.repo.Update(s.ctx, updated))
	s.Require().NoError(s.repo.Delete(s.ctx, catalog[1].ID()))

	version, err := s.repo.Version(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(4), version)

	found, err := s.repo.FindByID(s.ctx, catalog[0].ID())
	s.Require().NoError(err)
	s.Equal("Chicken Breast (skinless)", found.Title())
	s.Equal(70.0, found.Amount(nutrition.Sodium))

	count, err := s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), count)

	profiles, err := s.repo.ListProfiles(s.ctx)
	s.Require().NoError(err)
	s.Equal(catalog[0].ID(), profiles[0].ID())
	s.Equal(catalog[2].ID(), profiles[1].ID())
	s.Equal(catalog[3].ID(), profiles[2].ID())
}

func (s *RecipeRepositoryTestSuite) TestRejectedWritesLeaveVersion() {
	catalog := testutils.DemoCatalog()
	s.Require().NoError(s.repo.BulkCreate(s.ctx, catalog[:2]))

	err := s.repo.BulkCreate(s.ctx, catalog[1:4])
	s.ErrorIs(err, outbound.ErrRecipeExists)

	err = s.repo.Delete(s.ctx, uuid.New())
	s.ErrorIs(err, outbound.ErrRecipeNotFound)

	err = s.repo.Update(s.ctx, catalog[4])
	s.ErrorIs(err, outbound.ErrRecipeNotFound)

	_, err = s.repo.FindByID(s.ctx, catalog[4].ID())
	s.ErrorIs(err, outbound.ErrRecipeNotFound)

	version, err := s.repo.Version(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), version)

	count, err := s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

func TestRecipeRepositorySuite(t *testing.T) {
	suite.Run(t, new(RecipeRepositoryTestSuite))
}

func TestPlanRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPlanRepository(openTestDB(t))
	chicken := testutils.NewProfile("Grilled Chicken Breast", 35, 5, 2, 200)

	older := mealplan.NewPlanGeneratedEvent(&mealplan.Result{
		Entries:      []mealplan.Entry{mealplan.NewEntry(chicken, 1, "selected to cover protein")},
		Achievement:  map[nutrition.Nutrient]float64{nutrition.Protein: 50},
		Message:      mealplan.FallbackMessage,
		IsFallback:   true,
		SolverStatus: "infeasible",
	})
	older.GeneratedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	newer := mealplan.NewPlanGeneratedEvent(&mealplan.Result{
		Entries:      []mealplan.Entry{mealplan.NewEntry(chicken, 0.92, "")},
		Achievement:  map[nutrition.Nutrient]float64{nutrition.Protein: 100},
		Message:      mealplan.BandMessage(100),
		SolverStatus: "optimal",
	})
	newer.GeneratedAt = older.GeneratedAt.Add(time.Hour)

	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))
	require.NoError(t, repo.Save(ctx, newer), "saving twice is idempotent")

	got, err := repo.FindByID(ctx, older.PlanID)
	require.NoError(t, err)
	assert.True(t, got.IsFallback)
	assert.Equal(t, "infeasible", got.SolverStatus)
	require.Len(t, got.Recipes, 1)
	assert.Equal(t, chicken.ID(), got.Recipes[0].RecipeID)
	assert.Equal(t, "selected to cover protein", got.Recipes[0].Reason)
	assert.Equal(t, 50.0, got.Achievement["protein"])

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newer.PlanID, recent[0].PlanID)
	assert.Equal(t, older.PlanID, recent[1].PlanID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, outbound.ErrPlanNotFound)
}

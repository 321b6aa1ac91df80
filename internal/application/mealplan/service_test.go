package mealplan

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/solver"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
	"github.com/alchemorsel/nutriplan/test/testutils"
)

// MealPlanServiceTestSuite runs the optimizer end to end against the real simplex adapter
type MealPlanServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	catalog *testutils.StaticCatalog
	cache   *memory.CacheRepository
	service *Service
	assert  *testutils.PlanAssertions
}

func (s *MealPlanServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.catalog = testutils.NewStaticCatalog(testutils.TwoRecipeCatalog()...)
	s.cache = memory.NewCacheRepository(0)
	s.service = NewService(s.catalog, s.cache, solver.NewSimplex(), nil, nil, DefaultOptions(), zap.NewNop())
	s.assert = testutils.NewPlanAssertions(s.T())
}

func (s *MealPlanServiceTestSuite) TearDownTest() {
	s.cache.Close()
}

func (s *MealPlanServiceTestSuite) TestOptimalPlan() {
	targets := nutrition.Targets{
		nutrition.Protein:      35,
		nutrition.Fat:          5,
		nutrition.Carbohydrate: 30,
		nutrition.Calories:     350,
	}

	result, message, err := s.service.Optimize(s.ctx, inbound.OptimizeCommand{Targets: targets})
	s.Require().NoError(err)
	s.Require().NotNil(result)

	s.False(result.IsFallback)
	s.Equal(linprog.StatusOptimal, result.SolverStatus)
	s.Require().Len(result.Entries, 2)
	s.Equal("Grilled Chicken Breast", result.Entries[0].Recipe.Title())
	s.Equal(0.92, result.Entries[0].Quantity)
	s.Equal("Brown Rice", result.Entries[1].Recipe.Title())
	s.Equal(0.94, result.Entries[1].Quantity)

	s.Equal(100.0, result.Achievement[nutrition.Protein])
	s.Equal(111.0, result.Achievement[nutrition.Fat])
	s.Equal(100.0, result.Achievement[nutrition.Carbohydrate])
	s.Equal(93.0, result.Achievement[nutrition.Calories])
	s.Equal(mealplan.BandMessage(result.AverageAchievement()), message)
	s.Equal(message, result.Message)

	s.assert.QuantitiesWithin(result, 0, 2)
	s.assert.ContributionsExact(result)
	s.assert.AchievementConsistent(result, targets)
}

func (s *MealPlanServiceTestSuite) TestInfeasibleTargetsUseFallback() {
	targets := nutrition.Targets{
		nutrition.Protein:      1000,
		nutrition.Fat:          5,
		nutrition.Carbohydrate: 5,
		nutrition.Calories:     100,
	}

	result, message, err := s.service.Optimize(s.ctx, inbound.OptimizeCommand{Targets: targets})
	s.Require().NoError(err)
	s.Require().NotNil(result)

	s.True(result.IsFallback)
	s.Equal(linprog.StatusInfeasible, result.SolverStatus)
	s.Equal(mealplan.FallbackMessage, message)
	s.Require().Len(result.Entries, 2)
	for _, e := range result.Entries {
		s.Equal(1.0, e.Quantity)
		s.Equal("selected to cover protein", e.Reason)
	}
	s.Equal("Grilled Chicken Breast", result.Entries[0].Recipe.Title())
	s.Equal("Brown Rice", result.Entries[1].Recipe.Title())
	s.assert.ContributionsExact(result)
	s.assert.AchievementConsistent(result, targets)
}

func (s *MealPlanServiceTestSuite) TestEmptyCatalog() {
	s.catalog.Replace()

	result, message, err := s.service.Optimize(s.ctx, inbound.OptimizeCommand{})
	s.Nil(result)
	s.Equal(EmptyCatalogMessage, message)
	s.ErrorIs(err, mealplan.ErrEmptyCatalog)
}

func (s *MealPlanServiceTestSuite) TestInvalidInputs() {
	result, _, err := s.service.Optimize(s.ctx, inbound.OptimizeCommand{
		Targets: nutrition.Targets{nutrition.Protein: -1},
	})
	s.Nil(result)
	s.ErrorIs(err, nutrition.ErrNegativeTarget)

	result, _, err = s.service.Optimize(s.ctx, inbound.OptimizeCommand{
		Constraints: &mealplan.Constraints{MinDistinctRecipes: -1},
	})
	s.Nil(result)
	s.Error(err)
}

func (s *MealPlanServiceTestSuite) TestAchievementMeasuresPlanTotalsOnly() {
	targets := nutrition.Targets{
		nutrition.Protein:      35,
		nutrition.Fat:          5,
		nutrition.Carbohydrate: 30,
		nutrition.Calories:     350,
	}

	result, _, err := s.service.Optimize(s.ctx, inbound.OptimizeCommand{
		Targets: targets,
		Intake:  nutrition.Intake{nutrition.Protein: 30},
	})
	s.Require().NoError(err)
	s.Require().NotNil(result)
	s.False(result.IsFallback)

	protein := result.Totals.Get(nutrition.Protein)
	s.Less(protein, 35.0, "intake lowers what the plan has to supply")
	s.Equal(math.Round(protein/35*100), result.Achievement[nutrition.Protein])
	s.Less(result.Achievement[nutrition.Protein], 100.0)
	s.assert.AchievementConsistent(result, targets)
	s.assert.ContributionsExact(result)
}

func (s *MealPlanServiceTestSuite) TestOptimizeIsIdempotent() {
	cmd := inbound.OptimizeCommand{
		Targets:  nutrition.Targets{nutrition.Protein: 60, nutrition.Calories: 900},
		Intake:   nutrition.Intake{nutrition.Protein: 10},
		Priority: mealplan.PriorityProteinFirst,
	}

	first, _, err := s.service.Optimize(s.ctx, cmd)
	s.Require().NoError(err)
	second, _, err := s.service.Optimize(s.ctx, cmd)
	s.Require().NoError(err)

	s.Equal(first.Totals, second.Totals)
	s.Equal(first.Achievement, second.Achievement)
	s.Require().Len(second.Entries, len(first.Entries))
	for i := range first.Entries {
		s.Equal(first.Entries[i].Recipe.ID(), second.Entries[i].Recipe.ID())
		s.Equal(first.Entries[i].Quantity, second.Entries[i].Quantity)
	}
}

func (s *MealPlanServiceTestSuite) TestSnapshotCachedPerVersion() {
	cmd := inbound.OptimizeCommand{Targets: nutrition.Targets{nutrition.Protein: 30}}

	_, _, err := s.service.Optimize(s.ctx, cmd)
	s.Require().NoError(err)
	_, _, err = s.service.Optimize(s.ctx, cmd)
	s.Require().NoError(err)
	s.Equal(1, s.catalog.ListCalls())

	s.catalog.Replace(testutils.DemoCatalog()...)
	_, _, err = s.service.Optimize(s.ctx, cmd)
	s.Require().NoError(err)
	s.Equal(2, s.catalog.ListCalls())

	exists, err := s.cache.Exists(s.ctx, SnapshotCacheKey(2))
	s.Require().NoError(err)
	s.True(exists)
}

func (s *MealPlanServiceTestSuite) TestOptimizeBatchKeepsOrder() {
	cmds := []inbound.OptimizeCommand{
		{Targets: nutrition.Targets{nutrition.Protein: 35, nutrition.Fat: 5, nutrition.Carbohydrate: 30, nutrition.Calories: 350}},
		{Targets: nutrition.Targets{nutrition.Protein: -5}},
		{Targets: nutrition.Targets{nutrition.Protein: 1000, nutrition.Fat: 5, nutrition.Carbohydrate: 5, nutrition.Calories: 100}},
	}

	outcomes, err := s.service.OptimizeBatch(s.ctx, cmds)
	s.Require().NoError(err)
	s.Require().Len(outcomes, 3)

	s.NoError(outcomes[0].Err)
	s.Require().NotNil(outcomes[0].Result)
	s.False(outcomes[0].Result.IsFallback)

	s.Error(outcomes[1].Err)
	s.Nil(outcomes[1].Result)

	s.NoError(outcomes[2].Err)
	s.Require().NotNil(outcomes[2].Result)
	s.True(outcomes[2].Result.IsFallback)
	s.Equal(mealplan.FallbackMessage, outcomes[2].Message)
}

func (s *MealPlanServiceTestSuite) TestOptimizeBatchCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	outcomes, err := s.service.OptimizeBatch(ctx, []inbound.OptimizeCommand{{}})
	s.ErrorIs(err, context.Canceled)
	s.Nil(outcomes)
}

func TestMealPlanServiceSuite(t *testing.T) {
	suite.Run(t, new(MealPlanServiceTestSuite))
}

func newServiceWithSolver(t *testing.T, lp outbound.LPSolver, opts Options) *Service {
	t.Helper()
	catalog := testutils.NewStaticCatalog(testutils.TwoRecipeCatalog()...)
	return NewService(catalog, nil, lp, nil, nil, opts, zap.NewNop())
}

func TestSolverErrorUsesFallback(t *testing.T) {
	lp := new(testutils.MockLPSolver)
	lp.On("Solve", mock.Anything).Return(nil, errors.New("factorization failed"))

	service := newServiceWithSolver(t, lp, DefaultOptions())
	result, message, err := service.Optimize(context.Background(), inbound.OptimizeCommand{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.IsFallback)
	assert.Equal(t, mealplan.OptimizationFailedMessage, message)
	assert.Equal(t, linprog.StatusNumericalError, result.SolverStatus)
	assert.NotEmpty(t, result.Entries)
	lp.AssertExpectations(t)
}

func TestSolverPanicUsesFallback(t *testing.T) {
	lp := new(testutils.MockLPSolver)
	lp.On("Solve", mock.Anything).Panic("index out of range")

	service := newServiceWithSolver(t, lp, DefaultOptions())
	result, message, err := service.Optimize(context.Background(), inbound.OptimizeCommand{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.IsFallback)
	assert.Equal(t, mealplan.OptimizationFailedMessage, message)
}

func TestNumericalErrorStatusUsesFallback(t *testing.T) {
	lp := new(testutils.MockLPSolver)
	lp.On("Solve", mock.Anything).Return(&linprog.Solution{Status: linprog.StatusNumericalError, Message: "singular basis"}, nil)

	service := newServiceWithSolver(t, lp, DefaultOptions())
	result, message, err := service.Optimize(context.Background(), inbound.OptimizeCommand{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.IsFallback)
	assert.Equal(t, mealplan.OptimizationFailedMessage, message)
	assert.Equal(t, linprog.StatusNumericalError, result.SolverStatus)
}

type blockingSolver struct {
	release chan struct{}
}

func (b *blockingSolver) Solve(*linprog.Problem) (*linprog.Solution, error) {
	<-b.release
	return &linprog.Solution{Status: linprog.StatusOptimal}, nil
}

func TestSolveTimeoutUsesFallback(t *testing.T) {
	lp := &blockingSolver{release: make(chan struct{})}
	t.Cleanup(func() { close(lp.release) })

	opts := DefaultOptions()
	opts.SolveTimeout = 20 * time.Millisecond

	service := newServiceWithSolver(t, lp, opts)
	start := time.Now()
	result, message, err := service.Optimize(context.Background(), inbound.OptimizeCommand{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, result.IsFallback)
	assert.Equal(t, mealplan.OptimizationFailedMessage, message)
}

type countingRecorder struct {
	solves    []linprog.Status
	fallbacks int
	plans     int
}

func (r *countingRecorder) ObserveSolve(status linprog.Status, _ time.Duration) {
	r.solves = append(r.solves, status)
}

func (r *countingRecorder) ObservePlan(fallback bool, _ int) {
	r.plans++
	if fallback {
		r.fallbacks++
	}
}

func TestPublishesPlanEvent(t *testing.T) {
	events := new(testutils.MockEventPublisher)
	events.On("Publish", mock.Anything, mock.AnythingOfType("mealplan.PlanGeneratedEvent")).
		Return(errors.New("broker down")).Once()

	recorder := &countingRecorder{}
	catalog := testutils.NewStaticCatalog(testutils.TwoRecipeCatalog()...)
	service := NewService(catalog, nil, solver.NewSimplex(), events, recorder, DefaultOptions(), zap.NewNop())

	result, _, err := service.Optimize(context.Background(), inbound.OptimizeCommand{
		Targets: nutrition.Targets{nutrition.Protein: 35, nutrition.Fat: 5, nutrition.Carbohydrate: 30, nutrition.Calories: 350},
	})
	require.NoError(t, err, "publish failures never fail the optimization")
	require.NotNil(t, result)

	events.AssertExpectations(t)
	assert.Equal(t, []linprog.Status{linprog.StatusOptimal}, recorder.solves)
	assert.Equal(t, 1, recorder.plans)
	assert.Equal(t, 0, recorder.fallbacks)
}

func TestQuantitiesStayWithinBounds(t *testing.T) {
	factory := testutils.NewProfileFactory(42)
	catalog := testutils.NewStaticCatalog(factory.Catalog(25)...)
	service := NewService(catalog, nil, solver.NewSimplex(), nil, nil, DefaultOptions(), zap.NewNop())
	plans := testutils.NewPlanAssertions(t)

	cases := []nutrition.Targets{
		{nutrition.Protein: 20, nutrition.Fat: 10, nutrition.Carbohydrate: 40, nutrition.Calories: 600},
		{nutrition.Protein: 120, nutrition.Fat: 70, nutrition.Carbohydrate: 250, nutrition.Calories: 2200},
		{nutrition.Protein: 400, nutrition.Fat: 1, nutrition.Carbohydrate: 1, nutrition.Calories: 100},
		{nutrition.Protein: 0, nutrition.Fat: 0, nutrition.Carbohydrate: 0, nutrition.Calories: 500},
	}
	for _, targets := range cases {
		result, _, err := service.Optimize(context.Background(), inbound.OptimizeCommand{Targets: targets})
		require.NoError(t, err)
		plans.QuantitiesWithin(result, 0, 2)
		plans.ContributionsExact(result)
		plans.AchievementConsistent(result, targets)
		for _, e := range result.Entries {
			assert.GreaterOrEqual(t, e.Quantity, 0.05)
		}
	}
}

func TestConstraintBuilderRejectsMismatchedSnapshot(t *testing.T) {
	profiles := testutils.TwoRecipeCatalog()
	snap := &Snapshot{
		Profiles: profiles,
		Matrix:   mat.NewDense(3, nutrition.NutrientCount, nil),
		Version:  1,
	}

	problem, err := NewConstraintBuilder(DefaultOptions()).Build(snap, nutrition.DefaultTargets(), mealplan.Constraints{})
	assert.Nil(t, problem)
	assert.ErrorIs(t, err, mealplan.ErrConstraintBuild)
}

func TestConstraintBuilderRows(t *testing.T) {
	snap, err := NewSnapshot(testutils.TwoRecipeCatalog(), 1)
	require.NoError(t, err)

	constraints, err := mealplan.NewConstraintsBuilder().WithSodiumCeiling(1500).Build()
	require.NoError(t, err)

	remaining := nutrition.Targets{nutrition.Protein: 35, nutrition.Fat: 0, nutrition.Carbohydrate: 30, nutrition.Calories: 350}
	problem, err := NewConstraintBuilder(DefaultOptions()).Build(snap, remaining, constraints)
	require.NoError(t, err)

	assert.Equal(t, []string{"min_protein", "min_carbohydrate", "max_calories", "max_sodium"}, problem.Labels)
	assert.Equal(t, []float64{200, 150}, problem.Cost)
	assert.Equal(t, []float64{-35, -3}, problem.G[0])
	assert.InDelta(t, 420, problem.H[2], 1e-9)
	assert.Equal(t, 1500.0, problem.H[3])
	for _, b := range problem.Bounds {
		assert.Equal(t, linprog.Bound{Lower: 0, Upper: 2}, b)
	}
}

func TestMinDistinctRecipesWarning(t *testing.T) {
	catalog := testutils.NewStaticCatalog(testutils.TwoRecipeCatalog()...)
	service := NewService(catalog, nil, solver.NewSimplex(), nil, nil, DefaultOptions(), zap.NewNop())

	result, _, err := service.Optimize(context.Background(), inbound.OptimizeCommand{
		Targets:     nutrition.Targets{nutrition.Protein: 35, nutrition.Fat: 5, nutrition.Carbohydrate: 30, nutrition.Calories: 350},
		Constraints: &mealplan.Constraints{MinDistinctRecipes: 4},
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "4 were requested")
}

func TestSuggestRecipes(t *testing.T) {
	catalog := testutils.NewStaticCatalog(testutils.DemoCatalog()...)
	service := NewService(catalog, nil, solver.NewSimplex(), nil, nil, DefaultOptions(), zap.NewNop())
	ctx := context.Background()

	titles := func(s []inbound.RecipeSuggestion) []string {
		out := make([]string, len(s))
		for i := range s {
			out[i] = s[i].Recipe.Title()
		}
		return out
	}

	t.Run("deficit within range", func(t *testing.T) {
		got, err := service.SuggestRecipes(ctx, inbound.SuggestQuery{
			Targets: nutrition.Targets{nutrition.Protein: 40},
			Intake:  nutrition.Intake{nutrition.Protein: 10},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Grilled Chicken Breast", "Salmon Steak"}, titles(got))
		assert.Contains(t, got[0].Reason, "30.0 g deficit")
	})

	t.Run("deficit above every recipe", func(t *testing.T) {
		got, err := service.SuggestRecipes(ctx, inbound.SuggestQuery{
			Targets: nutrition.Targets{nutrition.Protein: 70},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Grilled Chicken Breast", "Salmon Steak", "Avocado Toast"}, titles(got))
	})

	t.Run("target already met", func(t *testing.T) {
		got, err := service.SuggestRecipes(ctx, inbound.SuggestQuery{
			Targets: nutrition.Targets{nutrition.Protein: 70},
			Intake:  nutrition.Intake{nutrition.Protein: 80},
			Limit:   2,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Garden Salad", "Brown Rice"}, titles(got))
	})
}

func TestPriorityScalesDefaultedTarget(t *testing.T) {
	catalog := testutils.NewStaticCatalog(testutils.DemoCatalog()...)
	service := NewService(catalog, nil, solver.NewSimplex(), nil, nil, DefaultOptions(), zap.NewNop())

	// protein is left to the 70 g default
	targets := nutrition.Targets{
		nutrition.Fat:          5,
		nutrition.Carbohydrate: 30,
		nutrition.Calories:     2000,
	}

	balanced, _, err := service.Optimize(context.Background(), inbound.OptimizeCommand{
		Targets:  targets,
		Priority: mealplan.PriorityBalance,
	})
	require.NoError(t, err)
	require.False(t, balanced.IsFallback)

	proteinFirst, _, err := service.Optimize(context.Background(), inbound.OptimizeCommand{
		Targets:  targets,
		Priority: mealplan.PriorityProteinFirst,
	})
	require.NoError(t, err)
	require.False(t, proteinFirst.IsFallback)

	assert.GreaterOrEqual(t, balanced.Totals.Get(nutrition.Protein), 69.5)
	assert.GreaterOrEqual(t, proteinFirst.Totals.Get(nutrition.Protein), 83.5, "70 g default scaled by 1.2")
	assert.Greater(t, proteinFirst.Totals.Get(nutrition.Protein), balanced.Totals.Get(nutrition.Protein))
	_, hasProtein := proteinFirst.Achievement[nutrition.Protein]
	assert.False(t, hasProtein, "achievement covers the caller's targets only")
}

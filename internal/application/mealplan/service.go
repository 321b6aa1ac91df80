package mealplan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// Messages returned alongside a nil result.
const (
	EmptyCatalogMessage    = "No recipes are registered."
	ConstraintBuildMessage = "The optimization problem could not be built from the current catalog."
)

// Suggestion tuning, carried over from the single-recipe suggestion flow.
const (
	suggestDeficitThreshold = 10.0
	suggestLowerRatio       = 0.8
	suggestUpperRatio       = 1.5
	suggestDefaultLimit     = 3
)

// Recorder receives optimizer measurements.
type Recorder interface {
	ObserveSolve(status linprog.Status, elapsed time.Duration)
	ObservePlan(fallback bool, entries int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSolve(linprog.Status, time.Duration) {}
func (nopRecorder) ObservePlan(bool, int)                      {}

// errSolveTimeout is reported when the solver exceeds its wall-clock budget.
var errSolveTimeout = errors.New("solver exceeded its time limit")

// Service implements the meal-plan use cases
type Service struct {
	loader      *CatalogLoader
	builder     *ConstraintBuilder
	solver      outbound.LPSolver
	interpreter *Interpreter
	fallback    *Fallback
	events      outbound.EventPublisher
	recorder    Recorder
	opts        Options
	tracer      trace.Tracer
	logger      *zap.Logger
}

// NewService creates a new meal-plan service. events and recorder may be nil.
func NewService(
	catalog outbound.RecipeCatalog,
	cache outbound.CacheRepository,
	solver outbound.LPSolver,
	events outbound.EventPublisher,
	recorder Recorder,
	opts Options,
	logger *zap.Logger,
) *Service {
	opts = opts.withDefaults()
	if recorder == nil {
		recorder = nopRecorder{}
	}
	interpreter := NewInterpreter(opts)
	return &Service{
		loader:      NewCatalogLoader(catalog, cache, opts, logger),
		builder:     NewConstraintBuilder(opts),
		solver:      solver,
		interpreter: interpreter,
		fallback:    NewFallback(opts, interpreter),
		events:      events,
		recorder:    recorder,
		opts:        opts,
		tracer:      otel.Tracer("github.com/alchemorsel/nutriplan/mealplan"),
		logger:      logger.Named("mealplan-service"),
	}
}

var _ inbound.MealPlanService = (*Service)(nil)

// Optimize selects recipe quantities for the remaining targets.
func (s *Service) Optimize(ctx context.Context, cmd inbound.OptimizeCommand) (*mealplan.Result, string, error) {
	ctx, span := s.tracer.Start(ctx, "mealplan.Optimize")
	defer span.End()

	if err := cmd.Targets.Validate(); err != nil {
		return nil, err.Error(), err
	}
	if err := nutrition.Targets(cmd.Intake).Validate(); err != nil {
		return nil, err.Error(), fmt.Errorf("invalid intake: %w", err)
	}
	constraints := mealplan.Constraints{}
	if cmd.Constraints != nil {
		if err := cmd.Constraints.Validate(); err != nil {
			return nil, err.Error(), err
		}
		constraints = cmd.Constraints.Clone()
	}

	snap, err := s.loader.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog load failed")
		if errors.Is(err, mealplan.ErrEmptyCatalog) {
			s.logger.Warn("Optimization requested with an empty catalog")
			return nil, EmptyCatalogMessage, err
		}
		return nil, "Failed to load the recipe catalog.", err
	}
	span.SetAttributes(
		attribute.Int("catalog.recipes", snap.Size()),
		attribute.Int64("catalog.version", snap.Version),
		attribute.String("priority", string(cmd.Priority)),
	)

	// defaults first, so a strategy also scales a defaulted baseline target
	targets, constraints := mealplan.ApplyPriority(cmd.Priority, cmd.Targets.WithDefaults(s.opts.DefaultTargets), constraints)
	remaining := nutrition.Remaining(targets, cmd.Intake)

	problem, err := s.builder.Build(snap, remaining, constraints)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "constraint build failed")
		s.logger.Error("Failed to build optimization constraints", zap.Error(err))
		return nil, ConstraintBuildMessage, err
	}

	sol, err := s.solve(ctx, problem)
	var result *mealplan.Result
	switch {
	case err != nil:
		s.logger.Error("Solver raised an exception, using fallback plan",
			zap.Int("recipes", snap.Size()),
			zap.Error(err),
		)
		result = s.fallback.Plan(snap, remaining, cmd.Targets, constraints, linprog.StatusNumericalError, mealplan.OptimizationFailedMessage)
	case sol.Status == linprog.StatusNumericalError:
		s.logger.Error("Solver reported a numerical error, using fallback plan",
			zap.String("solver_message", sol.Message),
		)
		result = s.fallback.Plan(snap, remaining, cmd.Targets, constraints, sol.Status, mealplan.OptimizationFailedMessage)
	case sol.Failed():
		s.logger.Info("No feasible plan, using fallback",
			zap.String("status", string(sol.Status)),
			zap.String("solver_message", sol.Message),
		)
		result = s.fallback.Plan(snap, remaining, cmd.Targets, constraints, sol.Status, mealplan.FallbackMessage)
	default:
		result = s.interpreter.Interpret(snap, sol, cmd.Targets, constraints)
	}

	result.ID = uuid.New()
	span.SetAttributes(
		attribute.String("plan.id", result.ID.String()),
		attribute.Bool("plan.fallback", result.IsFallback),
		attribute.Int("plan.entries", len(result.Entries)),
	)
	s.recorder.ObservePlan(result.IsFallback, len(result.Entries))
	s.publish(ctx, result)

	s.logger.Debug("Meal plan generated",
		zap.Int("entries", len(result.Entries)),
		zap.Bool("fallback", result.IsFallback),
		zap.String("solver_status", string(result.SolverStatus)),
	)
	return result, result.Message, nil
}

// solve runs the synchronous solver in its own goroutine so that a hung solve
// can be abandoned once the timeout or the caller's context expires.
func (s *Service) solve(ctx context.Context, problem *linprog.Problem) (*linprog.Solution, error) {
	type outcome struct {
		sol *linprog.Solution
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.SolveTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("solver panicked: %v", r)}
			}
		}()
		sol, err := s.solver.Solve(problem)
		done <- outcome{sol: sol, err: err}
	}()

	select {
	case o := <-done:
		status := linprog.StatusNumericalError
		if o.err == nil && o.sol != nil {
			status = o.sol.Status
		}
		s.recorder.ObserveSolve(status, time.Since(start))
		if o.err == nil && o.sol == nil {
			return nil, errors.New("solver returned no solution")
		}
		return o.sol, o.err
	case <-ctx.Done():
		s.recorder.ObserveSolve(linprog.StatusNumericalError, time.Since(start))
		return nil, fmt.Errorf("%w: %v", errSolveTimeout, ctx.Err())
	}
}

func (s *Service) publish(ctx context.Context, result *mealplan.Result) {
	if s.events == nil {
		return
	}
	event := mealplan.NewPlanGeneratedEvent(result)
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("event", event.EventName()),
			zap.Error(err),
		)
	}
}

// OptimizeBatch runs commands concurrently with at most BatchWorkers in flight.
// Per-command failures are reported in the outcome; only context
// cancellation aborts the batch.
func (s *Service) OptimizeBatch(ctx context.Context, cmds []inbound.OptimizeCommand) ([]inbound.BatchOutcome, error) {
	outcomes := make([]inbound.BatchOutcome, len(cmds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchWorkers)
	for i, cmd := range cmds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, message, err := s.Optimize(gctx, cmd)
			outcomes[i] = inbound.BatchOutcome{Result: result, Message: message, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// SuggestRecipes proposes single recipes for the protein deficit. With a
// deficit above 10 g it prefers recipes whose protein is 80%-150% of the
// deficit, closest first, then the highest-protein recipes; without a
// deficit it returns the lowest-calorie recipes.
func (s *Service) SuggestRecipes(ctx context.Context, query inbound.SuggestQuery) ([]inbound.RecipeSuggestion, error) {
	if err := query.Targets.Validate(); err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = suggestDefaultLimit
	}

	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	targets := query.Targets.WithDefaults(s.opts.DefaultTargets)
	deficit := nutrition.Remaining(targets, query.Intake)[nutrition.Protein]

	order := make([]int, snap.Size())
	for i := range order {
		order[i] = i
	}
	protein := snap.Column(nutrition.Protein)
	calories := snap.Column(nutrition.Calories)

	pick := func(idx []int, reason func(i int) string) []inbound.RecipeSuggestion {
		if len(idx) > limit {
			idx = idx[:limit]
		}
		out := make([]inbound.RecipeSuggestion, 0, len(idx))
		for _, i := range idx {
			out = append(out, inbound.RecipeSuggestion{Recipe: snap.Profiles[i], Reason: reason(i)})
		}
		return out
	}

	if deficit <= suggestDeficitThreshold {
		sort.SliceStable(order, func(a, b int) bool { return calories[order[a]] < calories[order[b]] })
		return pick(order, func(int) string { return "light option: protein target already met" }), nil
	}

	var inRange []int
	for _, i := range order {
		if protein[i] >= deficit*suggestLowerRatio && protein[i] <= deficit*suggestUpperRatio {
			inRange = append(inRange, i)
		}
	}
	if len(inRange) > 0 {
		sort.SliceStable(inRange, func(a, b int) bool {
			return absDiff(protein[inRange[a]], deficit) < absDiff(protein[inRange[b]], deficit)
		})
		return pick(inRange, func(i int) string {
			return fmt.Sprintf("provides %.1f g protein for a %.1f g deficit", protein[i], deficit)
		}), nil
	}

	sort.SliceStable(order, func(a, b int) bool { return protein[order[a]] > protein[order[b]] })
	return pick(order, func(i int) string {
		return fmt.Sprintf("high protein (%.1f g) toward a %.1f g deficit", protein[i], deficit)
	}), nil
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

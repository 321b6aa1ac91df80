// Package outbound defines the interfaces for outbound ports (secondary/driven adapters).
// These are the interfaces the optimizer uses to reach the catalog store, the cache,
// the numerical solver and event consumers.
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrCacheMiss is returned by CacheRepository.Get when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// ErrRecipeNotFound is returned by RecipeRepository lookups for unknown ids.
var ErrRecipeNotFound = errors.New("recipe not found")

// ErrPlanNotFound is returned by PlanRepository lookups for unknown ids.
var ErrPlanNotFound = errors.New("plan not found")

// ErrRecipeExists is returned by Create and BulkCreate for a duplicate id.
var ErrRecipeExists = errors.New("recipe already exists")

// RecipeCatalog is the read side of the recipe store used by the optimizer.
// ListProfiles must return the same order for the same Version, and must be
// safe for concurrent use.
type RecipeCatalog interface {
	ListProfiles(ctx context.Context) ([]nutrition.Profile, error)

	// Version increases on every create, update or delete.
	Version(ctx context.Context) (int64, error)
}

// RecipeRepository adds the write operations needed for seeding, import and
// cache invalidation.
type RecipeRepository interface {
	RecipeCatalog

	Create(ctx context.Context, profile nutrition.Profile) error
	Update(ctx context.Context, profile nutrition.Profile) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (nutrition.Profile, error)
	BulkCreate(ctx context.Context, profiles []nutrition.Profile) error
	Count(ctx context.Context) (int64, error)
}

// PlanRepository keeps the history of generated plans.
type PlanRepository interface {
	Save(ctx context.Context, plan mealplan.PlanGeneratedEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (mealplan.PlanGeneratedEvent, error)

	// ListRecent returns the newest plans first.
	ListRecent(ctx context.Context, limit int) ([]mealplan.PlanGeneratedEvent, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// LPSolver runs one synchronous numerical solve. Implementations perform no
// business interpretation; an error return means the solver itself broke.
type LPSolver interface {
	Solve(problem *linprog.Problem) (*linprog.Solution, error)
}

// EventPublisher hands domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event shared.DomainEvent) error
}

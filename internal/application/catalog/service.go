// Package catalog provides the application layer for recipe catalog maintenance.
// It covers what the optimizer needs from the store: seeding, import and
// single-recipe edits that invalidate cached snapshots.
package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appmealplan "github.com/alchemorsel/nutriplan/internal/application/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
	"github.com/alchemorsel/nutriplan/pkg/errors"
)

// Service implements the catalog use cases
type Service struct {
	recipes outbound.RecipeRepository
	cache   outbound.CacheRepository
	logger  *zap.Logger
}

// NewService creates a new catalog service. cache may be nil.
func NewService(recipes outbound.RecipeRepository, cache outbound.CacheRepository, logger *zap.Logger) *Service {
	return &Service{
		recipes: recipes,
		cache:   cache,
		logger:  logger.Named("catalog-service"),
	}
}

var _ inbound.CatalogService = (*Service)(nil)

// CreateRecipe adds one recipe to the catalog
func (s *Service) CreateRecipe(ctx context.Context, cmd inbound.RecipeCommand) (*inbound.RecipeDTO, error) {
	profile, err := ProfileFromCommand(cmd)
	if err != nil {
		return nil, err
	}

	err = s.write(ctx, "create recipe", func() error {
		return s.recipes.Create(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recipe created",
		zap.String("recipe_id", profile.ID().String()),
		zap.String("title", profile.Title()),
	)
	dto := inbound.NewRecipeDTO(profile)
	return &dto, nil
}

// UpdateRecipe replaces the title and nutrients of a recipe
func (s *Service) UpdateRecipe(ctx context.Context, id uuid.UUID, cmd inbound.RecipeCommand) (*inbound.RecipeDTO, error) {
	cmd.ID = id
	profile, err := ProfileFromCommand(cmd)
	if err != nil {
		return nil, err
	}

	err = s.write(ctx, "update recipe", func() error {
		return s.recipes.Update(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recipe updated", zap.String("recipe_id", id.String()))
	dto := inbound.NewRecipeDTO(profile)
	return &dto, nil
}

// DeleteRecipe removes a recipe
func (s *Service) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	err := s.write(ctx, "delete recipe", func() error {
		return s.recipes.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Recipe deleted", zap.String("recipe_id", id.String()))
	return nil
}

// GetRecipe returns one recipe
func (s *Service) GetRecipe(ctx context.Context, id uuid.UUID) (*inbound.RecipeDTO, error) {
	profile, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError("find recipe", id, err)
	}
	dto := inbound.NewRecipeDTO(profile)
	return &dto, nil
}

// ListRecipes returns the catalog in insertion order
func (s *Service) ListRecipes(ctx context.Context) ([]inbound.RecipeDTO, error) {
	profiles, err := s.recipes.ListProfiles(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list recipes", err)
	}
	out := make([]inbound.RecipeDTO, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, inbound.NewRecipeDTO(p))
	}
	return out, nil
}

// ImportRecipes validates every command before storing any of them
func (s *Service) ImportRecipes(ctx context.Context, cmds []inbound.RecipeCommand) (int, error) {
	if len(cmds) == 0 {
		return 0, nil
	}

	profiles := make([]nutrition.Profile, 0, len(cmds))
	for i, cmd := range cmds {
		p, err := ProfileFromCommand(cmd)
		if err != nil {
			return 0, errors.Wrap(err, "invalid recipe").WithMetadata("index", i)
		}
		profiles = append(profiles, p)
	}

	err := s.write(ctx, "import recipes", func() error {
		return s.recipes.BulkCreate(ctx, profiles)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Recipes imported", zap.Int("count", len(profiles)))
	return len(profiles), nil
}

// SeedDemo stores the demo catalog when the store is empty
func (s *Service) SeedDemo(ctx context.Context) (int, error) {
	count, err := s.recipes.Count(ctx)
	if err != nil {
		return 0, errors.NewDatabaseError("count recipes", err)
	}
	if count > 0 {
		s.logger.Info("Catalog already populated, skipping demo seed", zap.Int64("recipes", count))
		return 0, nil
	}

	demo := DemoRecipes()
	err = s.write(ctx, "seed demo recipes", func() error {
		return s.recipes.BulkCreate(ctx, demo)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Demo catalog seeded", zap.Int("count", len(demo)))
	return len(demo), nil
}

// write runs a catalog mutation and evicts the snapshot of the version it replaced
func (s *Service) write(ctx context.Context, operation string, fn func() error) error {
	previous, err := s.recipes.Version(ctx)
	if err != nil {
		return errors.NewDatabaseError("read catalog version", err)
	}

	if err := fn(); err != nil {
		return s.mapError(operation, uuid.Nil, err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, appmealplan.SnapshotCacheKey(previous)); err != nil {
			s.logger.Warn("Failed to evict catalog snapshot",
				zap.Int64("version", previous),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Service) mapError(operation string, id uuid.UUID, err error) error {
	switch {
	case stderrors.Is(err, outbound.ErrRecipeNotFound):
		if id == uuid.Nil {
			return errors.NewAppError(errors.CodeRecipeNotFound, "Recipe not found", err.Error()).WithCause(err)
		}
		return errors.NewRecipeNotFoundError(id.String()).WithCause(err)
	case stderrors.Is(err, outbound.ErrRecipeExists):
		return errors.NewRecipeExistsError(err)
	default:
		return errors.NewDatabaseError(operation, err)
	}
}

// ProfileFromCommand converts named nutrient amounts into a validated profile
func ProfileFromCommand(cmd inbound.RecipeCommand) (nutrition.Profile, error) {
	var vector nutrition.Vector
	for name, amount := range cmd.Nutrients {
		n, err := nutrition.ParseNutrient(name)
		if err != nil {
			return nutrition.Profile{}, errors.NewValidationError(err.Error()).WithCause(err)
		}
		vector = vector.With(n, amount)
	}

	profile, err := nutrition.NewProfile(cmd.ID, cmd.Title, vector)
	if err != nil {
		return nutrition.Profile{}, errors.NewValidationError(fmt.Sprintf("recipe %q: %v", cmd.Title, err)).WithCause(err)
	}
	return profile, nil
}

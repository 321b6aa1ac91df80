package inbound

import (
	"context"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/google/uuid"
)

// CatalogService defines the recipe catalog maintenance use cases
type CatalogService interface {
	CreateRecipe(ctx context.Context, cmd RecipeCommand) (*RecipeDTO, error)
	UpdateRecipe(ctx context.Context, id uuid.UUID, cmd RecipeCommand) (*RecipeDTO, error)
	DeleteRecipe(ctx context.Context, id uuid.UUID) error
	GetRecipe(ctx context.Context, id uuid.UUID) (*RecipeDTO, error)
	ListRecipes(ctx context.Context) ([]RecipeDTO, error)

	// ImportRecipes stores all commands or none of them.
	ImportRecipes(ctx context.Context, cmds []RecipeCommand) (int, error)

	// SeedDemo loads the demo catalog into an empty store and reports how
	// many recipes were added.
	SeedDemo(ctx context.Context) (int, error)
}

// PlanHistoryService exposes previously generated plans
type PlanHistoryService interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*mealplan.PlanGeneratedEvent, error)
	RecentPlans(ctx context.Context, limit int) ([]mealplan.PlanGeneratedEvent, error)
}

// RecipeCommand describes a recipe to create, update or import.
// A nil ID on create asks the service to assign one.
type RecipeCommand struct {
	ID        uuid.UUID          `json:"id,omitempty"`
	Title     string             `json:"title" validate:"required,max=200"`
	Nutrients map[string]float64 `json:"nutrients" validate:"required,min=1,dive,keys,required,endkeys,gte=0"`
}

// RecipeDTO is the data transfer object for a catalog recipe
type RecipeDTO struct {
	ID        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	Nutrients nutrition.Vector `json:"nutrients"`
}

// NewRecipeDTO converts a profile for transport.
func NewRecipeDTO(p nutrition.Profile) RecipeDTO {
	return RecipeDTO{ID: p.ID(), Title: p.Title(), Nutrients: p.Nutrients()}
}

// Package inbound defines the interfaces for inbound ports (primary/driving adapters).
// HTTP handlers and the CLI drive the optimizer through these.
package inbound

import (
	"context"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/google/uuid"
)

// MealPlanService defines the meal-plan optimization use cases
type MealPlanService interface {
	// Optimize returns a nil result only when the catalog is empty or the
	// constraints could not be built; infeasibility yields a fallback plan.
	Optimize(ctx context.Context, cmd OptimizeCommand) (*mealplan.Result, string, error)

	// OptimizeBatch runs independent optimizations concurrently. Outcomes keep input order.
	OptimizeBatch(ctx context.Context, cmds []OptimizeCommand) ([]BatchOutcome, error)

	// SuggestRecipes picks a few single recipes for the current protein deficit.
	SuggestRecipes(ctx context.Context, query SuggestQuery) ([]RecipeSuggestion, error)
}

// OptimizeCommand contains the inputs of one optimization call.
// Intake and Constraints are optional.
type OptimizeCommand struct {
	Targets     nutrition.Targets
	Intake      nutrition.Intake
	Constraints *mealplan.Constraints
	Priority    mealplan.Priority
}

// BatchOutcome is the result of one command in a batch.
type BatchOutcome struct {
	Result  *mealplan.Result
	Message string
	Err     error
}

// SuggestQuery contains the inputs for single-recipe suggestions.
type SuggestQuery struct {
	Targets nutrition.Targets
	Intake  nutrition.Intake
	Limit   int
}

// RecipeSuggestion is one suggested recipe.
type RecipeSuggestion struct {
	Recipe nutrition.Profile
	Reason string
}

// Response DTOs

// PlanDTO is the data transfer object for an optimization result
type PlanDTO struct {
	ID           uuid.UUID          `json:"id"`
	Entries      []EntryDTO         `json:"entries"`
	Totals       nutrition.Vector   `json:"totals"`
	Achievement  map[string]float64 `json:"achievement"`
	Average      float64            `json:"average_achievement"`
	Message      string             `json:"message"`
	IsFallback   bool               `json:"is_fallback"`
	SolverStatus string             `json:"solver_status,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// EntryDTO for one plan entry
type EntryDTO struct {
	RecipeID     uuid.UUID        `json:"recipe_id"`
	Title        string           `json:"title"`
	Quantity     float64          `json:"quantity"`
	Contribution nutrition.Vector `json:"contribution"`
	Reason       string           `json:"reason,omitempty"`
}

// SuggestionDTO for one suggested recipe
type SuggestionDTO struct {
	RecipeID  uuid.UUID        `json:"recipe_id"`
	Title     string           `json:"title"`
	Nutrients nutrition.Vector `json:"nutrients"`
	Reason    string           `json:"reason"`
}

// NewPlanDTO converts a domain result for transport.
func NewPlanDTO(r *mealplan.Result) *PlanDTO {
	if r == nil {
		return nil
	}
	dto := &PlanDTO{
		ID:           r.ID,
		Entries:      make([]EntryDTO, 0, len(r.Entries)),
		Totals:       r.Totals,
		Achievement:  make(map[string]float64, len(r.Achievement)),
		Average:      r.AverageAchievement(),
		Message:      r.Message,
		IsFallback:   r.IsFallback,
		SolverStatus: string(r.SolverStatus),
		Warnings:     r.Warnings,
	}
	for _, e := range r.Entries {
		dto.Entries = append(dto.Entries, EntryDTO{
			RecipeID:     e.Recipe.ID(),
			Title:        e.Recipe.Title(),
			Quantity:     e.Quantity,
			Contribution: e.Contribution,
			Reason:       e.Reason,
		})
	}
	for n, v := range r.Achievement {
		dto.Achievement[n.String()] = v
	}
	return dto
}

// NewSuggestionDTOs converts suggestions for transport.
func NewSuggestionDTOs(suggestions []RecipeSuggestion) []SuggestionDTO {
	out := make([]SuggestionDTO, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, SuggestionDTO{
			RecipeID:  s.Recipe.ID(),
			Title:     s.Recipe.Title(),
			Nutrients: s.Recipe.Nutrients(),
			Reason:    s.Reason,
		})
	}
	return out
}

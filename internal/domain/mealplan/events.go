package mealplan

import (
	"time"

	"github.com/google/uuid"
)

// PlannedRecipe is the persisted summary of one plan entry.
type PlannedRecipe struct {
	RecipeID uuid.UUID `json:"recipe_id"`
	Title    string    `json:"title"`
	Quantity float64   `json:"quantity"`
	Reason   string    `json:"reason,omitempty"`
}

// PlanGeneratedEvent is raised after every optimize call that produced a plan,
// so that downstream consumers can persist or audit it.
type PlanGeneratedEvent struct {
	PlanID       uuid.UUID          `json:"plan_id"`
	Recipes      []PlannedRecipe    `json:"recipes"`
	Achievement  map[string]float64 `json:"achievement"`
	Message      string             `json:"message"`
	IsFallback   bool               `json:"is_fallback"`
	SolverStatus string             `json:"solver_status"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

func (e PlanGeneratedEvent) EventName() string {
	return "mealplan.generated"
}

func (e PlanGeneratedEvent) OccurredAt() time.Time {
	return e.GeneratedAt
}

// RecipeCount returns the number of planned recipes.
func (e PlanGeneratedEvent) RecipeCount() int {
	return len(e.Recipes)
}

// NewPlanGeneratedEvent summarizes a result as an event. A result without an
// ID is assigned one.
func NewPlanGeneratedEvent(r *Result) PlanGeneratedEvent {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	recipes := make([]PlannedRecipe, 0, len(r.Entries))
	for _, e := range r.Entries {
		recipes = append(recipes, PlannedRecipe{
			RecipeID: e.Recipe.ID(),
			Title:    e.Recipe.Title(),
			Quantity: e.Quantity,
			Reason:   e.Reason,
		})
	}
	achievement := make(map[string]float64, len(r.Achievement))
	for n, v := range r.Achievement {
		achievement[n.String()] = v
	}
	return PlanGeneratedEvent{
		PlanID:       r.ID,
		Recipes:      recipes,
		Achievement:  achievement,
		Message:      r.Message,
		IsFallback:   r.IsFallback,
		SolverStatus: string(r.SolverStatus),
		GeneratedAt:  time.Now().UTC(),
	}
}

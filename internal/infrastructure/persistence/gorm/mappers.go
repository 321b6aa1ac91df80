package gorm

import (
	"encoding/json"
	"fmt"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// ProfileToModel converts a domain profile to a GORM model
func ProfileToModel(p nutrition.Profile) *RecipeModel {
	v := p.Nutrients()
	return &RecipeModel{
		ID:           p.ID(),
		Title:        p.Title(),
		Protein:      v.Get(nutrition.Protein),
		Fat:          v.Get(nutrition.Fat),
		Carbohydrate: v.Get(nutrition.Carbohydrate),
		Calories:     v.Get(nutrition.Calories),
		Fiber:        v.Get(nutrition.Fiber),
		Sodium:       v.Get(nutrition.Sodium),
		Sugar:        v.Get(nutrition.Sugar),
		Calcium:      v.Get(nutrition.Calcium),
		Iron:         v.Get(nutrition.Iron),
		VitaminC:     v.Get(nutrition.VitaminC),
	}
}

// ModelToProfile converts a GORM model to a domain profile
func ModelToProfile(m *RecipeModel) (nutrition.Profile, error) {
	v := nutrition.Vector{}.
		With(nutrition.Protein, m.Protein).
		With(nutrition.Fat, m.Fat).
		With(nutrition.Carbohydrate, m.Carbohydrate).
		With(nutrition.Calories, m.Calories).
		With(nutrition.Fiber, m.Fiber).
		With(nutrition.Sodium, m.Sodium).
		With(nutrition.Sugar, m.Sugar).
		With(nutrition.Calcium, m.Calcium).
		With(nutrition.Iron, m.Iron).
		With(nutrition.VitaminC, m.VitaminC)

	p, err := nutrition.NewProfile(m.ID, m.Title, v)
	if err != nil {
		return nutrition.Profile{}, fmt.Errorf("recipe %s: %w", m.ID, err)
	}
	return p, nil
}

// EventToModel converts a plan event to a GORM model
func EventToModel(e mealplan.PlanGeneratedEvent) (*PlanModel, error) {
	recipes, err := json.Marshal(e.Recipes)
	if err != nil {
		return nil, err
	}
	achievement, err := json.Marshal(e.Achievement)
	if err != nil {
		return nil, err
	}
	return &PlanModel{
		ID:           e.PlanID,
		IsFallback:   e.IsFallback,
		SolverStatus: e.SolverStatus,
		Message:      e.Message,
		Recipes:      JSONField(recipes),
		Achievement:  JSONField(achievement),
		GeneratedAt:  e.GeneratedAt,
	}, nil
}

// ModelToEvent converts a GORM model back to the plan event it was stored from
func ModelToEvent(m *PlanModel) (mealplan.PlanGeneratedEvent, error) {
	e := mealplan.PlanGeneratedEvent{
		PlanID:       m.ID,
		Message:      m.Message,
		IsFallback:   m.IsFallback,
		SolverStatus: m.SolverStatus,
		GeneratedAt:  m.GeneratedAt,
	}
	if len(m.Recipes) > 0 {
		if err := json.Unmarshal(m.Recipes, &e.Recipes); err != nil {
			return e, fmt.Errorf("decode plan recipes: %w", err)
		}
	}
	if len(m.Achievement) > 0 {
		if err := json.Unmarshal(m.Achievement, &e.Achievement); err != nil {
			return e, fmt.Errorf("decode plan achievement: %w", err)
		}
	}
	return e, nil
}

package handlers

import (
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
)

// OptimizeRequest is the body of POST /meal-plans/optimize
type OptimizeRequest struct {
	Targets       map[string]float64  `json:"targets" validate:"required,min=1,dive,keys,required,endkeys,gte=0"`
	CurrentIntake map[string]float64  `json:"current_intake,omitempty" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	Constraints   *ConstraintsRequest `json:"constraints,omitempty"`
	Priority      string              `json:"priority,omitempty" validate:"omitempty,oneof=balance protein_first low_calorie energy_up"`
}

// ConstraintsRequest carries the optional auxiliary limits
type ConstraintsRequest struct {
	MaxSodium          *float64           `json:"max_sodium,omitempty" validate:"omitempty,gte=0"`
	Ceilings           map[string]float64 `json:"ceilings,omitempty" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	MinDistinctRecipes int                `json:"min_distinct_recipes,omitempty" validate:"gte=0"`
}

// SuggestRequest is the body of POST /meal-plans/suggestions
type SuggestRequest struct {
	Targets       map[string]float64 `json:"targets" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	CurrentIntake map[string]float64 `json:"current_intake,omitempty" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	Limit         int                `json:"limit,omitempty" validate:"omitempty,gte=1,lte=20"`
}

// PlanResponse is the payload of a successful optimization
type PlanResponse struct {
	Plan    *inbound.PlanDTO `json:"plan"`
	Message string           `json:"message"`
}

// BatchItemResponse is one element of a batch response
type BatchItemResponse struct {
	Plan    *inbound.PlanDTO `json:"plan,omitempty"`
	Message string           `json:"message"`
	Error   *BatchItemError  `json:"error,omitempty"`
}

// BatchItemError describes a failed batch element
type BatchItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToCommand converts the request into an optimizer command
func (r OptimizeRequest) ToCommand() (inbound.OptimizeCommand, error) {
	targets, err := parseNutrients(r.Targets)
	if err != nil {
		return inbound.OptimizeCommand{}, err
	}
	intake, err := parseNutrients(r.CurrentIntake)
	if err != nil {
		return inbound.OptimizeCommand{}, err
	}
	priority, err := mealplan.ParsePriority(r.Priority)
	if err != nil {
		return inbound.OptimizeCommand{}, err
	}

	cmd := inbound.OptimizeCommand{
		Targets:  nutrition.Targets(targets),
		Intake:   nutrition.Intake(intake),
		Priority: priority,
	}
	if r.Constraints != nil {
		constraints, err := r.Constraints.build()
		if err != nil {
			return inbound.OptimizeCommand{}, err
		}
		cmd.Constraints = &constraints
	}
	return cmd, nil
}

func (c ConstraintsRequest) build() (mealplan.Constraints, error) {
	b := mealplan.NewConstraintsBuilder()
	if c.MaxSodium != nil {
		b.WithSodiumCeiling(*c.MaxSodium)
	}
	for name, limit := range c.Ceilings {
		n, err := nutrition.ParseNutrient(name)
		if err != nil {
			return mealplan.Constraints{}, err
		}
		b.WithCeiling(n, limit)
	}
	return b.WithMinDistinctRecipes(c.MinDistinctRecipes).Build()
}

// ToQuery converts the request into a suggestion query
func (r SuggestRequest) ToQuery() (inbound.SuggestQuery, error) {
	targets, err := parseNutrients(r.Targets)
	if err != nil {
		return inbound.SuggestQuery{}, err
	}
	intake, err := parseNutrients(r.CurrentIntake)
	if err != nil {
		return inbound.SuggestQuery{}, err
	}
	return inbound.SuggestQuery{
		Targets: nutrition.Targets(targets),
		Intake:  nutrition.Intake(intake),
		Limit:   r.Limit,
	}, nil
}

func parseNutrients(in map[string]float64) (map[nutrition.Nutrient]float64, error) {
	out := make(map[nutrition.Nutrient]float64, len(in))
	for name, amount := range in {
		n, err := nutrition.ParseNutrient(name)
		if err != nil {
			return nil, err
		}
		out[n] = amount
	}
	return out, nil
}

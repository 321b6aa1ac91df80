package mealplan

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// Priority is the user's nutrition strategy preference.
type Priority string

const (
	PriorityBalance      Priority = "balance"
	PriorityProteinFirst Priority = "protein_first"
	PriorityLowCalorie   Priority = "low_calorie"
	PriorityEnergyUp     Priority = "energy_up"
)

// Strategy multipliers applied to the remaining targets.
const (
	proteinFirstFactor = 1.2
	lowCalorieFactor   = 0.9
	energyUpFactor     = 1.15
)

// ParsePriority resolves a priority name; the empty string means balance.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityBalance, nil
	case PriorityBalance, PriorityProteinFirst, PriorityLowCalorie, PriorityEnergyUp:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
}

// ApplyPriority maps a strategy onto targets and constraints. It is pure: the
// inputs are never modified and the solver is not involved.
func ApplyPriority(p Priority, targets nutrition.Targets, constraints Constraints) (nutrition.Targets, Constraints) {
	adjusted := targets.Clone()
	scale := func(n nutrition.Nutrient, factor float64) {
		if v, ok := adjusted[n]; ok {
			adjusted[n] = v * factor
		}
	}

	switch p {
	case PriorityProteinFirst:
		scale(nutrition.Protein, proteinFirstFactor)
	case PriorityLowCalorie:
		scale(nutrition.Calories, lowCalorieFactor)
	case PriorityEnergyUp:
		scale(nutrition.Carbohydrate, energyUpFactor)
	}

	return adjusted, constraints.Clone()
}

package mealplan

import (
	"fmt"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// minimumNutrients get a lower-bound row whenever their remaining target is positive.
var minimumNutrients = []nutrition.Nutrient{nutrition.Protein, nutrition.Fat, nutrition.Carbohydrate}

// ConstraintBuilder turns remaining targets and auxiliary limits into a linear program
// with one decision variable per catalog recipe.
type ConstraintBuilder struct {
	opts Options
}

// NewConstraintBuilder creates a builder.
func NewConstraintBuilder(opts Options) *ConstraintBuilder {
	return &ConstraintBuilder{opts: opts.withDefaults()}
}

// Build constructs:
//
//	minimize   calories · x
//	subject to -nutrient · x <= -remaining   (protein, fat, carbohydrate; remaining > 0)
//	           calories · x  <= remaining calories × overshoot
//	           nutrient · x  <= ceiling       (each auxiliary ceiling)
//	           min servings  <= x <= max servings
//
// remaining must already have defaults applied and intake subtracted.
func (b *ConstraintBuilder) Build(snap *Snapshot, remaining nutrition.Targets, constraints mealplan.Constraints) (*linprog.Problem, error) {
	if snap == nil || snap.Matrix == nil {
		return nil, fmt.Errorf("%w: missing catalog snapshot", mealplan.ErrConstraintBuild)
	}

	rows, cols := snap.Matrix.Dims()
	bounds := make([]linprog.Bound, len(snap.Profiles))
	for i := range bounds {
		bounds[i] = linprog.Bound{Lower: b.opts.MinServings, Upper: b.opts.MaxServings}
	}
	if rows != len(bounds) {
		return nil, fmt.Errorf("%w: nutrient matrix has %d rows but %d recipes are bounded", mealplan.ErrConstraintBuild, rows, len(bounds))
	}
	if cols != nutrition.NutrientCount {
		return nil, fmt.Errorf("%w: nutrient matrix has %d columns, want %d", mealplan.ErrConstraintBuild, cols, nutrition.NutrientCount)
	}
	if err := constraints.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", mealplan.ErrConstraintBuild, err)
	}

	problem := &linprog.Problem{
		Cost:   snap.Column(nutrition.Calories),
		Bounds: bounds,
	}

	for _, n := range minimumNutrients {
		target := remaining[n]
		if target <= 0 {
			continue
		}
		problem.AddInequality("min_"+n.String(), negate(snap.Column(n)), -target)
	}

	problem.AddInequality("max_calories", snap.Column(nutrition.Calories), remaining[nutrition.Calories]*b.opts.CalorieOvershoot)

	for _, n := range constraints.SortedCeilings() {
		limit, _ := constraints.Ceiling(n)
		problem.AddInequality("max_"+n.String(), snap.Column(n), limit)
	}

	if err := problem.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", mealplan.ErrConstraintBuild, err)
	}
	return problem, nil
}

func negate(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = -v
	}
	return out
}

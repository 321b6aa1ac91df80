// Package mealplan contains the optimization inputs and outputs that sit on
// top of the nutrient model: user constraints, priority strategies, plan
// entries and results.
package mealplan

import (
	"fmt"
	"math"
	"sort"

	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// Constraints are optional auxiliary limits layered over the baseline
// nutrient minimums and calorie ceiling. They only ever add rows.
type Constraints struct {
	Ceilings           map[nutrition.Nutrient]float64
	MinDistinctRecipes int
}

// Ceiling returns the configured upper limit for a nutrient.
func (c Constraints) Ceiling(n nutrition.Nutrient) (float64, bool) {
	v, ok := c.Ceilings[n]
	return v, ok
}

// SortedCeilings returns the ceiling nutrients in canonical order so that
// constraint rows are emitted deterministically.
func (c Constraints) SortedCeilings() []nutrition.Nutrient {
	keys := make([]nutrition.Nutrient, 0, len(c.Ceilings))
	for n := range c.Ceilings {
		keys = append(keys, n)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Validate rejects negative limits and unknown nutrients.
func (c Constraints) Validate() error {
	for n, limit := range c.Ceilings {
		if !n.Valid() {
			return fmt.Errorf("%w: %d", nutrition.ErrInvalidNutrient, int(n))
		}
		if limit < 0 || math.IsNaN(limit) {
			return fmt.Errorf("%w: %s", ErrNegativeCeiling, n)
		}
	}
	if c.MinDistinctRecipes < 0 {
		return ErrNegativeMinRecipes
	}
	return nil
}

// Clone returns an independent copy.
func (c Constraints) Clone() Constraints {
	out := Constraints{MinDistinctRecipes: c.MinDistinctRecipes}
	if c.Ceilings != nil {
		out.Ceilings = make(map[nutrition.Nutrient]float64, len(c.Ceilings))
		for n, v := range c.Ceilings {
			out.Ceilings[n] = v
		}
	}
	return out
}

// ConstraintsBuilder assembles Constraints fluently.
type ConstraintsBuilder struct {
	c Constraints
}

// NewConstraintsBuilder starts from no auxiliary limits.
func NewConstraintsBuilder() *ConstraintsBuilder {
	return &ConstraintsBuilder{}
}

// From starts the builder from a copy of existing constraints.
func (b *ConstraintsBuilder) From(c Constraints) *ConstraintsBuilder {
	b.c = c.Clone()
	return b
}

// WithCeiling caps the plan total of one nutrient. A repeated call keeps the tighter limit.
func (b *ConstraintsBuilder) WithCeiling(n nutrition.Nutrient, limit float64) *ConstraintsBuilder {
	if b.c.Ceilings == nil {
		b.c.Ceilings = make(map[nutrition.Nutrient]float64)
	}
	if existing, ok := b.c.Ceilings[n]; ok && existing <= limit {
		return b
	}
	b.c.Ceilings[n] = limit
	return b
}

// WithSodiumCeiling caps total sodium in milligrams.
func (b *ConstraintsBuilder) WithSodiumCeiling(maxSodium float64) *ConstraintsBuilder {
	return b.WithCeiling(nutrition.Sodium, maxSodium)
}

// WithMinDistinctRecipes requests a minimum number of distinct recipes in the plan.
// The count is checked after solving and reported as a warning, never solved for.
func (b *ConstraintsBuilder) WithMinDistinctRecipes(count int) *ConstraintsBuilder {
	b.c.MinDistinctRecipes = count
	return b
}

// Build validates and returns the constraints.
func (b *ConstraintsBuilder) Build() (Constraints, error) {
	if err := b.c.Validate(); err != nil {
		return Constraints{}, err
	}
	return b.c.Clone(), nil
}

package nutrition

import (
	"fmt"
	"math"
)

// Targets maps nutrients to required daily amounts. A nutrient that is absent
// has no caller-specified target; WithDefaults fills the baseline ones.
type Targets map[Nutrient]float64

// Intake has the same shape as Targets and records what was already consumed.
type Intake map[Nutrient]float64

// BaselineNutrients always receive a target, either from the caller or a default.
var BaselineNutrients = []Nutrient{Protein, Fat, Carbohydrate, Calories}

// DefaultTargets are the domain defaults used when a baseline target is missing.
func DefaultTargets() Targets {
	return Targets{
		Protein:      70,
		Fat:          65,
		Carbohydrate: 300,
		Calories:     2000,
	}
}

// Validate rejects unknown nutrients and negative or non-finite amounts.
func (t Targets) Validate() error {
	for n, amount := range t {
		if !n.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidNutrient, int(n))
		}
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidQuantity, n)
		}
		if amount < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeTarget, n)
		}
	}
	return nil
}

// Get returns the target for n and whether it was set.
func (t Targets) Get(n Nutrient) (float64, bool) {
	v, ok := t[n]
	return v, ok
}

// Clone returns an independent copy.
func (t Targets) Clone() Targets {
	out := make(Targets, len(t))
	for n, v := range t {
		out[n] = v
	}
	return out
}

// WithDefaults returns a copy where every missing baseline nutrient takes its default.
// Defaults that are themselves missing fall back to DefaultTargets, so a baseline
// target is never left unbounded.
func (t Targets) WithDefaults(defaults Targets) Targets {
	out := t.Clone()
	builtin := DefaultTargets()
	for _, n := range BaselineNutrients {
		if _, ok := out[n]; ok {
			continue
		}
		if v, ok := defaults[n]; ok {
			out[n] = v
			continue
		}
		out[n] = builtin[n]
	}
	return out
}

// Vector returns the targets in canonical order; absent nutrients are 0.
func (t Targets) Vector() Vector {
	var v Vector
	for n, amount := range t {
		if n.Valid() {
			v[n] = amount
		}
	}
	return v
}

// Vector returns the intake in canonical order.
func (i Intake) Vector() Vector {
	return Targets(i).Vector()
}

// Remaining computes max(0, target - intake) for every nutrient in targets.
// A nil intake leaves the targets unchanged.
func Remaining(targets Targets, intake Intake) Targets {
	out := make(Targets, len(targets))
	for n, target := range targets {
		remaining := target - intake[n]
		if remaining < 0 || math.IsNaN(remaining) {
			remaining = 0
		}
		out[n] = remaining
	}
	return out
}

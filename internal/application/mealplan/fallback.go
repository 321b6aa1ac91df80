package mealplan

import (
	"sort"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// fallbackQuantity is the fixed serving count assigned to every heuristic pick.
const fallbackQuantity = 1.0

// Fallback builds a deterministic plan when the linear program has no usable
// solution: for the largest remaining targets it picks the richest recipes
// not chosen yet.
type Fallback struct {
	opts        Options
	interpreter *Interpreter
}

// NewFallback creates the heuristic.
func NewFallback(opts Options, interpreter *Interpreter) *Fallback {
	return &Fallback{opts: opts.withDefaults(), interpreter: interpreter}
}

// Plan never fails on a non-empty snapshot. remaining drives the ranking;
// targets are used for achievement like the exact path.
func (f *Fallback) Plan(snap *Snapshot, remaining, targets nutrition.Targets, constraints mealplan.Constraints, status linprog.Status, message string) *mealplan.Result {
	chosen := make(map[int]bool)
	var entries []mealplan.Entry

	for _, n := range f.rankNutrients(remaining) {
		for _, i := range f.richestRecipes(snap, n, chosen) {
			chosen[i] = true
			entries = append(entries, mealplan.NewEntry(snap.Profiles[i], fallbackQuantity, "selected to cover "+n.String()))
		}
	}

	result := f.interpreter.compose(entries, targets, constraints)
	result.IsFallback = true
	result.SolverStatus = status
	result.Message = message
	return result
}

// rankNutrients orders positive remaining targets by descending amount, ties
// in canonical order, and keeps the configured number.
func (f *Fallback) rankNutrients(remaining nutrition.Targets) []nutrition.Nutrient {
	ranked := make([]nutrition.Nutrient, 0, len(remaining))
	for n := range remaining {
		if n.Valid() {
			ranked = append(ranked, n)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := remaining[ranked[i]], remaining[ranked[j]]
		if a != b {
			return a > b
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > f.opts.FallbackNutrients {
		ranked = ranked[:f.opts.FallbackNutrients]
	}

	out := ranked[:0]
	for _, n := range ranked {
		if remaining[n] > 0 {
			out = append(out, n)
		}
	}
	return out
}

// richestRecipes returns catalog indexes with the highest positive amount of
// n, skipping ones already chosen; ties keep catalog order.
func (f *Fallback) richestRecipes(snap *Snapshot, n nutrition.Nutrient, chosen map[int]bool) []int {
	column := snap.Column(n)
	candidates := make([]int, 0, len(column))
	for i, v := range column {
		if !chosen[i] && v > 0 {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return column[candidates[a]] > column[candidates[b]]
	})
	if len(candidates) > f.opts.FallbackRecipesPerNutrient {
		candidates = candidates[:f.opts.FallbackRecipesPerNutrient]
	}
	return candidates
}

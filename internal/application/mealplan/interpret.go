package mealplan

import (
	"fmt"
	"math"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// Interpreter turns a raw solution vector into a plan.
type Interpreter struct {
	opts Options
}

// NewInterpreter creates an interpreter.
func NewInterpreter(opts Options) *Interpreter {
	return &Interpreter{opts: opts.withDefaults()}
}

// Interpret keeps significant quantities, rounds them, and computes totals and
// achievement. Achievement compares the plan totals alone with targets.
func (in *Interpreter) Interpret(snap *Snapshot, sol *linprog.Solution, targets nutrition.Targets, constraints mealplan.Constraints) *mealplan.Result {
	entries := make([]mealplan.Entry, 0, len(sol.X))
	for i, q := range sol.X {
		if i >= snap.Size() || q < in.opts.SignificanceThreshold {
			continue
		}
		quantity := in.roundQuantity(q)
		if quantity <= 0 {
			continue
		}
		entries = append(entries, mealplan.NewEntry(snap.Profiles[i], quantity, ""))
	}

	result := in.compose(entries, targets, constraints)
	result.SolverStatus = sol.Status
	result.Message = mealplan.BandMessage(result.AverageAchievement())
	return result
}

// compose fills totals, achievement and warnings for a list of entries.
func (in *Interpreter) compose(entries []mealplan.Entry, targets nutrition.Targets, constraints mealplan.Constraints) *mealplan.Result {
	totals, achievement := mealplan.Accumulate(entries, targets)
	result := &mealplan.Result{
		Entries:     entries,
		Totals:      totals,
		Achievement: achievement,
	}

	if want := constraints.MinDistinctRecipes; want > 0 {
		if got := result.DistinctRecipes(); got < want {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("plan uses %d distinct recipes but %d were requested; the minimum is not enforced by the optimizer", got, want))
		}
	}
	return result
}

func (in *Interpreter) roundQuantity(q float64) float64 {
	scale := math.Pow(10, float64(in.opts.QuantityPrecision))
	rounded := math.Round(q*scale) / scale
	return math.Min(math.Max(rounded, in.opts.MinServings), in.opts.MaxServings)
}

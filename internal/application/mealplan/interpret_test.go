package mealplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/test/testutils"
)

type plannedEntry struct {
	title    string
	quantity float64
	reason   string
}

func entriesOf(result *mealplan.Result) []plannedEntry {
	out := make([]plannedEntry, 0, len(result.Entries))
	for _, e := range result.Entries {
		out = append(out, plannedEntry{title: e.Recipe.Title(), quantity: e.Quantity, reason: e.Reason})
	}
	return out
}

func newTestSnapshot(t *testing.T, profiles ...nutrition.Profile) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(profiles, 1)
	require.NoError(t, err)
	return snap
}

func TestInterpret(t *testing.T) {
	snap := newTestSnapshot(t,
		testutils.NewProfile("A", 10, 1, 1, 100),
		testutils.NewProfile("B", 20, 2, 2, 200),
		testutils.NewProfile("C", 30, 3, 3, 300),
	)
	interpreter := NewInterpreter(DefaultOptions())

	tests := []struct {
		name string
		x    []float64
		want []plannedEntry
	}{
		{
			name: "threshold drops 0.049 and keeps 0.05",
			x:    []float64{0.049, 0.05, 0},
			want: []plannedEntry{{title: "B", quantity: 0.05}},
		},
		{
			name: "rounds to two decimals",
			x:    []float64{1.234, 0.876, 0.5},
			want: []plannedEntry{{"A", 1.23, ""}, {"B", 0.88, ""}, {"C", 0.5, ""}},
		},
		{
			name: "clamps to the upper bound",
			x:    []float64{2.3, 1.996, 2.004},
			want: []plannedEntry{{"A", 2, ""}, {"B", 2, ""}, {"C", 2, ""}},
		},
		{
			name: "drops negative noise",
			x:    []float64{-1e-9, -0.4, 1},
			want: []plannedEntry{{"C", 1, ""}},
		},
		{
			name: "ignores values past the catalog",
			x:    []float64{1, 0, 0, 1},
			want: []plannedEntry{{"A", 1, ""}},
		},
	}

	targets := nutrition.Targets{nutrition.Protein: 40, nutrition.Fat: 0}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol := &linprog.Solution{Status: linprog.StatusOptimal, X: tt.x}
			result := interpreter.Interpret(snap, sol, targets, mealplan.Constraints{})

			assert.Equal(t, tt.want, entriesOf(result))
			assert.Equal(t, linprog.StatusOptimal, result.SolverStatus)
			assert.False(t, result.IsFallback)

			plans := testutils.NewPlanAssertions(t)
			plans.QuantitiesWithin(result, 0, 2)
			plans.ContributionsExact(result)
			plans.AchievementConsistent(result, targets)
			assert.Equal(t, mealplan.BandMessage(result.AverageAchievement()), result.Message)
		})
	}
}

func TestInterpretMinDistinctWarning(t *testing.T) {
	snap := newTestSnapshot(t,
		testutils.NewProfile("A", 10, 1, 1, 100),
		testutils.NewProfile("B", 20, 2, 2, 200),
	)
	interpreter := NewInterpreter(DefaultOptions())
	sol := &linprog.Solution{Status: linprog.StatusOptimal, X: []float64{1, 0}}

	result := interpreter.Interpret(snap, sol, nil, mealplan.Constraints{MinDistinctRecipes: 2})
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "1 distinct recipes but 2")

	result = interpreter.Interpret(snap, sol, nil, mealplan.Constraints{MinDistinctRecipes: 1})
	assert.Empty(t, result.Warnings)
}

func TestFallbackPlan(t *testing.T) {
	tests := []struct {
		name      string
		profiles  []nutrition.Profile
		remaining nutrition.Targets
		want      []plannedEntry
	}{
		{
			name: "recipes chosen for one nutrient are skipped for the next",
			profiles: []nutrition.Profile{
				testutils.NewProfile("A", 50, 30, 0, 400),
				testutils.NewProfile("B", 40, 0, 0, 200),
				testutils.NewProfile("C", 1, 20, 0, 200),
				testutils.NewProfile("D", 0, 10, 0, 100),
			},
			remaining: nutrition.Targets{nutrition.Protein: 100, nutrition.Fat: 60},
			want: []plannedEntry{
				{"A", 1, "selected to cover protein"},
				{"B", 1, "selected to cover protein"},
				{"C", 1, "selected to cover fat"},
				{"D", 1, "selected to cover fat"},
			},
		},
		{
			name: "equal amounts keep catalog order",
			profiles: []nutrition.Profile{
				testutils.NewProfile("X", 10, 0, 0, 100),
				testutils.NewProfile("Y", 10, 0, 0, 100),
				testutils.NewProfile("Z", 10, 0, 0, 100),
			},
			remaining: nutrition.Targets{nutrition.Protein: 50},
			want: []plannedEntry{
				{"X", 1, "selected to cover protein"},
				{"Y", 1, "selected to cover protein"},
			},
		},
		{
			name: "equal targets rank in canonical order",
			profiles: []nutrition.Profile{
				testutils.NewProfile("A", 0, 5, 0, 100),
				testutils.NewProfile("B", 0, 0, 5, 100),
				testutils.NewProfile("C", 0, 1, 1, 100),
			},
			remaining: nutrition.Targets{nutrition.Carbohydrate: 20, nutrition.Fat: 20},
			want: []plannedEntry{
				{"A", 1, "selected to cover fat"},
				{"C", 1, "selected to cover fat"},
				{"B", 1, "selected to cover carbohydrate"},
			},
		},
		{
			name: "met targets are skipped",
			profiles: []nutrition.Profile{
				testutils.NewProfile("A", 50, 1, 0, 300),
				testutils.NewProfile("B", 0, 5, 0, 50),
			},
			remaining: nutrition.Targets{nutrition.Protein: 0, nutrition.Fat: 20},
			want: []plannedEntry{
				{"B", 1, "selected to cover fat"},
				{"A", 1, "selected to cover fat"},
			},
		},
		{
			name: "only the largest targets are used",
			profiles: []nutrition.Profile{
				testutils.NewProfile("P", 10, 0, 0, 0),
				testutils.NewProfile("F", 0, 10, 0, 0),
				testutils.NewProfile("Cb", 0, 0, 10, 0),
				testutils.NewProfile("K", 0, 0, 0, 10),
			},
			remaining: nutrition.Targets{
				nutrition.Protein:      10,
				nutrition.Fat:          20,
				nutrition.Carbohydrate: 30,
				nutrition.Calories:     40,
			},
			want: []plannedEntry{
				{"K", 1, "selected to cover calories"},
				{"Cb", 1, "selected to cover carbohydrate"},
				{"F", 1, "selected to cover fat"},
			},
		},
	}

	opts := DefaultOptions()
	fallback := NewFallback(opts, NewInterpreter(opts))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := newTestSnapshot(t, tt.profiles...)
			result := fallback.Plan(snap, tt.remaining, tt.remaining, mealplan.Constraints{}, linprog.StatusInfeasible, mealplan.FallbackMessage)

			assert.Equal(t, tt.want, entriesOf(result))
			assert.True(t, result.IsFallback)
			assert.Equal(t, linprog.StatusInfeasible, result.SolverStatus)
			assert.Equal(t, mealplan.FallbackMessage, result.Message)

			plans := testutils.NewPlanAssertions(t)
			plans.ContributionsExact(result)
			plans.AchievementConsistent(result, tt.remaining)
		})
	}
}

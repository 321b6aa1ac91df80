// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// PlanAssertions provides plan-specific assertion methods
type PlanAssertions struct {
	t *testing.T
}

// NewPlanAssertions creates a new plan assertions helper
func NewPlanAssertions(t *testing.T) *PlanAssertions {
	return &PlanAssertions{t: t}
}

// QuantitiesWithin asserts every entry quantity lies in [lower, upper].
func (pa *PlanAssertions) QuantitiesWithin(result *mealplan.Result, lower, upper float64) {
	require.NotNil(pa.t, result, "Result should not be nil")
	for _, e := range result.Entries {
		assert.GreaterOrEqual(pa.t, e.Quantity, lower, "quantity of %s", e.Recipe.Title())
		assert.LessOrEqual(pa.t, e.Quantity, upper, "quantity of %s", e.Recipe.Title())
	}
}

// ContributionsExact asserts contribution == quantity × vector for every entry
// and that totals are the sum of contributions.
func (pa *PlanAssertions) ContributionsExact(result *mealplan.Result) {
	require.NotNil(pa.t, result, "Result should not be nil")
	var sum nutrition.Vector
	for _, e := range result.Entries {
		assert.Equal(pa.t, e.Recipe.Nutrients().Scale(e.Quantity), e.Contribution, "contribution of %s", e.Recipe.Title())
		sum = sum.Add(e.Contribution)
	}
	assert.Equal(pa.t, sum, result.Totals)
}

// AchievementConsistent asserts achievement = round(total / target × 100) for
// positive targets and that zero targets are absent.
func (pa *PlanAssertions) AchievementConsistent(result *mealplan.Result, targets nutrition.Targets) {
	require.NotNil(pa.t, result, "Result should not be nil")
	for n, target := range targets {
		rate, ok := result.Achievement[n]
		if target <= 0 {
			assert.False(pa.t, ok, "%s has a zero target and must not appear", n)
			continue
		}
		require.True(pa.t, ok, "%s should have an achievement rate", n)
		assert.Equal(pa.t, mealplan.AchievementRates(result.Totals, nutrition.Targets{n: target})[n], rate)
	}
}

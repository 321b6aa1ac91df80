package mealplan

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// Entry is one selected recipe and what it contributes to the plan.
type Entry struct {
	Recipe       nutrition.Profile
	Quantity     float64
	Contribution nutrition.Vector
	Reason       string
}

// NewEntry computes the contribution as quantity times the recipe vector.
func NewEntry(recipe nutrition.Profile, quantity float64, reason string) Entry {
	return Entry{
		Recipe:       recipe,
		Quantity:     quantity,
		Contribution: recipe.Nutrients().Scale(quantity),
		Reason:       reason,
	}
}

// Result is the outcome of one optimization call.
type Result struct {
	ID           uuid.UUID
	Entries      []Entry
	Totals       nutrition.Vector
	Achievement  map[nutrition.Nutrient]float64
	Message      string
	IsFallback   bool
	SolverStatus linprog.Status
	Warnings     []string
}

// DistinctRecipes counts the distinct recipes in the plan.
func (r *Result) DistinctRecipes() int {
	seen := make(map[string]struct{}, len(r.Entries))
	for _, e := range r.Entries {
		seen[e.Recipe.ID().String()] = struct{}{}
	}
	return len(seen)
}

// AverageAchievement is the mean over the achievement map, or 100 when it is empty.
func (r *Result) AverageAchievement() float64 {
	return averageAchievement(r.Achievement)
}

// Accumulate sums entry contributions and computes achievement rates against
// targets. Only nutrients with a positive target appear in the map.
func Accumulate(entries []Entry, targets nutrition.Targets) (nutrition.Vector, map[nutrition.Nutrient]float64) {
	var totals nutrition.Vector
	for _, e := range entries {
		totals = totals.Add(e.Contribution)
	}
	return totals, AchievementRates(totals, targets)
}

// AchievementRates computes round(achieved / target × 100) for every nutrient
// with a positive target.
func AchievementRates(achieved nutrition.Vector, targets nutrition.Targets) map[nutrition.Nutrient]float64 {
	rates := make(map[nutrition.Nutrient]float64, len(targets))
	for n, target := range targets {
		if target <= 0 || !n.Valid() {
			continue
		}
		rates[n] = math.Round(achieved.Get(n) / target * 100)
	}
	return rates
}

// Band is a coarse classification of average achievement.
type Band string

const (
	BandNearPerfect Band = "near_perfect"
	BandApproximate Band = "approximate"
	BandBasic       Band = "basic"
	BandDifficult   Band = "difficult"
)

// ClassifyAchievement places an average achievement percentage into its band.
func ClassifyAchievement(avg float64) Band {
	switch {
	case avg >= 95:
		return BandNearPerfect
	case avg >= 80:
		return BandApproximate
	case avg >= 60:
		return BandBasic
	default:
		return BandDifficult
	}
}

// BandMessage renders the canonical status message for an average achievement.
func BandMessage(avg float64) string {
	switch ClassifyAchievement(avg) {
	case BandNearPerfect:
		return "Near-perfect plan: nutrient targets are met."
	case BandApproximate:
		return fmt.Sprintf("Approximately %.0f%% of nutrient targets achieved.", avg)
	case BandBasic:
		return "Basic nutrient coverage; the plan may need adjustment."
	default:
		return "Targets are difficult to reach with the current recipe catalog."
	}
}

// Fallback status messages.
const (
	FallbackMessage           = "No exact optimum was found; showing a heuristic plan that covers the largest remaining targets."
	OptimizationFailedMessage = "Optimization failed; showing a heuristic plan instead."
)

func averageAchievement(achievement map[nutrition.Nutrient]float64) float64 {
	if len(achievement) == 0 {
		return 100
	}
	var sum float64
	for _, v := range achievement {
		sum += v
	}
	return sum / float64(len(achievement))
}

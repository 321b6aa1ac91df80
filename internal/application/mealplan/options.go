// Package mealplan implements the meal-plan optimization use cases: catalog
// snapshots, linear-program construction, result interpretation and the
// deterministic fallback.
package mealplan

import (
	"time"

	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// Options are the tunable constants of the optimizer.
type Options struct {
	CalorieOvershoot           float64
	SignificanceThreshold      float64
	MinServings                float64
	MaxServings                float64
	QuantityPrecision          int
	SolveTimeout               time.Duration
	FallbackNutrients          int
	FallbackRecipesPerNutrient int
	BatchWorkers               int
	DefaultTargets             nutrition.Targets
	SnapshotTTL                time.Duration
}

// DefaultOptions returns the historical defaults: 20% calorie overshoot,
// 0.05 serving significance, [0, 2] servings per recipe.
func DefaultOptions() Options {
	return Options{
		CalorieOvershoot:           1.2,
		SignificanceThreshold:      0.05,
		MinServings:                0,
		MaxServings:                2,
		QuantityPrecision:          2,
		SolveTimeout:               5 * time.Second,
		FallbackNutrients:          3,
		FallbackRecipesPerNutrient: 2,
		BatchWorkers:               4,
		DefaultTargets:             nutrition.DefaultTargets(),
		SnapshotTTL:                10 * time.Minute,
	}
}

// withDefaults fills zero values so a partially populated Options is usable.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CalorieOvershoot <= 0 {
		o.CalorieOvershoot = d.CalorieOvershoot
	}
	if o.SignificanceThreshold <= 0 {
		o.SignificanceThreshold = d.SignificanceThreshold
	}
	if o.MaxServings <= 0 {
		o.MaxServings = d.MaxServings
	}
	if o.QuantityPrecision <= 0 {
		o.QuantityPrecision = d.QuantityPrecision
	}
	if o.SolveTimeout <= 0 {
		o.SolveTimeout = d.SolveTimeout
	}
	if o.FallbackNutrients <= 0 {
		o.FallbackNutrients = d.FallbackNutrients
	}
	if o.FallbackRecipesPerNutrient <= 0 {
		o.FallbackRecipesPerNutrient = d.FallbackRecipesPerNutrient
	}
	if o.BatchWorkers <= 0 {
		o.BatchWorkers = d.BatchWorkers
	}
	if len(o.DefaultTargets) == 0 {
		o.DefaultTargets = d.DefaultTargets
	}
	if o.SnapshotTTL <= 0 {
		o.SnapshotTTL = d.SnapshotTTL
	}
	return o
}

package container

import (
	"fmt"

	appmealplan "github.com/alchemorsel/nutriplan/internal/application/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
)

// OptimizerOptions translates the optimizer and cache sections into service options
func OptimizerOptions(cfg *config.Config) (appmealplan.Options, error) {
	o := cfg.Optimizer
	opts := appmealplan.DefaultOptions()
	opts.CalorieOvershoot = o.CalorieOvershoot
	opts.SignificanceThreshold = o.SignificanceThreshold
	opts.MinServings = o.MinServings
	opts.MaxServings = o.MaxServings
	opts.QuantityPrecision = o.QuantityPrecision
	opts.SolveTimeout = o.SolveTimeout
	opts.FallbackNutrients = o.FallbackNutrients
	opts.FallbackRecipesPerNutrient = o.FallbackRecipesPerNutrient
	opts.BatchWorkers = o.BatchWorkers
	if cfg.Cache.SnapshotTTL > 0 {
		opts.SnapshotTTL = cfg.Cache.SnapshotTTL
	}

	if len(o.DefaultTargets) > 0 {
		targets := make(nutrition.Targets, len(o.DefaultTargets))
		for name, amount := range o.DefaultTargets {
			n, err := nutrition.ParseNutrient(name)
			if err != nil {
				return appmealplan.Options{}, fmt.Errorf("optimizer.default_targets: %w", err)
			}
			targets[n] = amount
		}
		opts.DefaultTargets = targets
	}
	return opts, nil
}

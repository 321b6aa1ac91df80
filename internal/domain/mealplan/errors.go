package mealplan

import "errors"

// Domain errors for meal-plan optimization
var (
	// ErrEmptyCatalog means there are no candidate recipes; no plan can be produced.
	ErrEmptyCatalog = errors.New("recipe catalog is empty")

	// ErrConstraintBuild signals that catalog rows, matrix rows and variable bounds disagree.
	ErrConstraintBuild = errors.New("failed to build optimization constraints")

	ErrInvalidPriority    = errors.New("unknown nutrition priority")
	ErrNegativeCeiling    = errors.New("nutrient ceiling must not be negative")
	ErrNegativeMinRecipes = errors.New("minimum distinct recipe count must not be negative")
)

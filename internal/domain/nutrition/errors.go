package nutrition

import "errors"

// Domain errors for nutrient data
var (
	ErrInvalidNutrient = errors.New("unknown nutrient")
	ErrInvalidQuantity = errors.New("nutrient quantity must be a finite, non-negative number")
	ErrNegativeTarget  = errors.New("nutrient target must not be negative")
	ErrTitleRequired   = errors.New("recipe title is required")
)

// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// ProfileFactory creates recipe nutrient profiles from a seeded faker, so a
// given seed always yields the same catalog.
type ProfileFactory struct {
	faker *gofakeit.Faker
}

// NewProfileFactory creates a new profile factory with seeded faker
func NewProfileFactory(seed int64) *ProfileFactory {
	return &ProfileFactory{faker: gofakeit.New(seed)}
}

// Profile returns one plausible recipe profile.
func (f *ProfileFactory) Profile() nutrition.Profile {
	protein := f.faker.Float64Range(0, 45)
	fat := f.faker.Float64Range(0, 30)
	carb := f.faker.Float64Range(0, 80)
	calories := protein*4 + fat*9 + carb*4

	v := nutrition.Vector{}.
		With(nutrition.Protein, protein).
		With(nutrition.Fat, fat).
		With(nutrition.Carbohydrate, carb).
		With(nutrition.Calories, calories).
		With(nutrition.Fiber, f.faker.Float64Range(0, 12)).
		With(nutrition.Sodium, f.faker.Float64Range(0, 1500)).
		With(nutrition.Sugar, f.faker.Float64Range(0, 25)).
		With(nutrition.Calcium, f.faker.Float64Range(0, 300)).
		With(nutrition.Iron, f.faker.Float64Range(0, 8)).
		With(nutrition.VitaminC, f.faker.Float64Range(0, 60))

	id, err := uuid.Parse(f.faker.UUID())
	if err != nil {
		id = uuid.New()
	}
	return nutrition.MustProfile(id, f.faker.Dessert()+" "+f.faker.Noun(), v)
}

// Catalog returns n profiles.
func (f *ProfileFactory) Catalog(n int) []nutrition.Profile {
	out := make([]nutrition.Profile, n)
	for i := range out {
		out[i] = f.Profile()
	}
	return out
}

// NewProfile is a shorthand for fixtures: protein, fat, carbohydrate, calories per serving.
func NewProfile(title string, protein, fat, carb, calories float64) nutrition.Profile {
	return nutrition.MustProfile(uuid.New(), title, nutrition.VectorFromSlice([]float64{protein, fat, carb, calories}))
}

// TwoRecipeCatalog is the chicken-and-rice catalog used by the reference scenarios.
func TwoRecipeCatalog() []nutrition.Profile {
	return []nutrition.Profile{
		NewProfile("Grilled Chicken Breast", 35, 5, 2, 200),
		NewProfile("Brown Rice", 3, 1, 30, 150),
	}
}

// DemoCatalog is the five-recipe demo catalog.
func DemoCatalog() []nutrition.Profile {
	return []nutrition.Profile{
		NewProfile("Grilled Chicken Breast", 35, 5, 2, 200),
		NewProfile("Brown Rice", 3, 1, 30, 150),
		NewProfile("Garden Salad", 2, 8, 10, 50),
		NewProfile("Salmon Steak", 25, 15, 0, 250),
		NewProfile("Avocado Toast", 6, 12, 15, 180),
	}
}

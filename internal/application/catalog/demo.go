package catalog

import (
	"github.com/google/uuid"

	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
)

// demoNamespace derives stable recipe ids from demo titles.
var demoNamespace = uuid.MustParse("6f1d2c3e-8a4b-5c6d-9e0f-1a2b3c4d5e6f")

type demoRecipe struct {
	title string
	// protein, fat, carbohydrate, calories, fiber, sodium, sugar, calcium, iron, vitamin_c
	values [nutrition.NutrientCount]float64
}

var demoRecipes = []demoRecipe{
	{"Grilled Chicken Breast", [nutrition.NutrientCount]float64{35, 5, 2, 200, 0, 85, 0, 15, 1.0, 0}},
	{"Brown Rice", [nutrition.NutrientCount]float64{3, 1, 30, 150, 2, 5, 0.5, 10, 0.6, 0}},
	{"Garden Salad", [nutrition.NutrientCount]float64{2, 8, 10, 50, 3, 40, 4, 40, 1.2, 25}},
	{"Salmon Steak", [nutrition.NutrientCount]float64{25, 15, 0, 250, 0, 60, 0, 12, 0.5, 0}},
	{"Avocado Toast", [nutrition.NutrientCount]float64{6, 12, 15, 180, 7, 260, 2, 30, 1.5, 10}},
	{"Greek Yogurt Bowl", [nutrition.NutrientCount]float64{17, 4, 20, 180, 2, 65, 14, 200, 0.2, 3}},
	{"Lentil Soup", [nutrition.NutrientCount]float64{13, 3, 30, 210, 11, 480, 4, 45, 3.8, 6}},
	{"Oatmeal with Berries", [nutrition.NutrientCount]float64{6, 4, 40, 220, 6, 10, 12, 30, 2.1, 15}},
	{"Tofu Stir-Fry", [nutrition.NutrientCount]float64{18, 12, 15, 250, 4, 620, 6, 250, 3.0, 40}},
	{"Scrambled Eggs", [nutrition.NutrientCount]float64{13, 11, 1, 160, 0, 190, 1, 55, 1.8, 0}},
	{"Whole Wheat Pasta", [nutrition.NutrientCount]float64{8, 1.5, 42, 200, 6, 5, 1.5, 20, 2.0, 0}},
	{"Banana", [nutrition.NutrientCount]float64{1.3, 0.4, 27, 105, 3, 1, 14, 6, 0.3, 10}},
}

// DemoRecipes returns the demo catalog. Ids are stable across calls.
func DemoRecipes() []nutrition.Profile {
	out := make([]nutrition.Profile, 0, len(demoRecipes))
	for _, r := range demoRecipes {
		id := uuid.NewSHA1(demoNamespace, []byte(r.title))
		out = append(out, nutrition.MustProfile(id, r.title, nutrition.Vector(r.values)))
	}
	return out
}

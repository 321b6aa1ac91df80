package nutrition

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNutrient(t *testing.T) {
	tests := []struct {
		input    string
		expected Nutrient
	}{
		{"protein", Protein},
		{"Fat", Fat},
		{"carbs", Carbohydrate},
		{"carbohydrates", Carbohydrate},
		{"vitamin_c", VitaminC},
		{"vitamin-c", VitaminC},
		{" calories ", Calories},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, err := ParseNutrient(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}

	_, err := ParseNutrient("caffeine")
	assert.ErrorIs(t, err, ErrInvalidNutrient)
}

func TestCanonicalOrder(t *testing.T) {
	names := make([]string, 0, NutrientCount)
	for _, n := range AllNutrients() {
		names = append(names, n.String())
	}
	assert.Equal(t, []string{
		"protein", "fat", "carbohydrate", "calories", "fiber",
		"sodium", "sugar", "calcium", "iron", "vitamin_c",
	}, names)
}

func TestVectorOperations(t *testing.T) {
	v := VectorFromSlice([]float64{35, 5, 2, 200})
	assert.Equal(t, 35.0, v.Get(Protein))
	assert.Equal(t, 0.0, v.Get(Sodium))

	doubled := v.Scale(2)
	assert.Equal(t, 70.0, doubled.Get(Protein))
	assert.Equal(t, 35.0, v.Get(Protein), "scale must not mutate the receiver")

	sum := v.Add(v.With(Sodium, 120))
	assert.Equal(t, 400.0, sum.Get(Calories))
	assert.Equal(t, 120.0, sum.Get(Sodium))

	assert.Equal(t, map[Nutrient]float64{Protein: 35, Fat: 5, Carbohydrate: 2, Calories: 200}, v.Map())
}

func TestVectorValidate(t *testing.T) {
	assert.NoError(t, Vector{}.Validate())
	assert.ErrorIs(t, Vector{}.With(Fat, -1).Validate(), ErrInvalidQuantity)
	assert.ErrorIs(t, Vector{}.With(Iron, math.NaN()).Validate(), ErrInvalidQuantity)
	assert.ErrorIs(t, Vector{}.With(Sugar, math.Inf(1)).Validate(), ErrInvalidQuantity)
}

func TestVectorJSON(t *testing.T) {
	v := Vector{}.With(Protein, 25).With(VitaminC, 12)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"vitamin_c":12`)

	var decoded Vector
	require.NoError(t, json.Unmarshal([]byte(`{"protein":25,"carbs":40}`), &decoded))
	assert.Equal(t, 25.0, decoded.Get(Protein))
	assert.Equal(t, 40.0, decoded.Get(Carbohydrate))

	assert.Error(t, json.Unmarshal([]byte(`{"gluten":1}`), &decoded))
}

func TestNewProfile(t *testing.T) {
	id := uuid.New()
	p, err := NewProfile(id, "  Grilled Chicken ", Vector{}.With(Protein, 35))
	require.NoError(t, err)
	assert.Equal(t, id, p.ID())
	assert.Equal(t, "Grilled Chicken", p.Title())
	assert.Equal(t, 35.0, p.Amount(Protein))

	generated, err := NewProfile(uuid.Nil, "Rice", Vector{})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, generated.ID())

	_, err = NewProfile(id, "", Vector{})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = NewProfile(id, "Broken", Vector{}.With(Fat, -2))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestTargetsWithDefaults(t *testing.T) {
	targets := Targets{Protein: 35}.WithDefaults(Targets{Fat: 50})

	assert.Equal(t, 35.0, targets[Protein])
	assert.Equal(t, 50.0, targets[Fat])
	assert.Equal(t, 300.0, targets[Carbohydrate])
	assert.Equal(t, 2000.0, targets[Calories])
	_, hasSodium := targets[Sodium]
	assert.False(t, hasSodium)
}

func TestTargetsValidate(t *testing.T) {
	assert.NoError(t, Targets{Protein: 0, Calories: 1800}.Validate())
	assert.ErrorIs(t, Targets{Protein: -1}.Validate(), ErrNegativeTarget)
	assert.ErrorIs(t, Targets{Nutrient(42): 1}.Validate(), ErrInvalidNutrient)
}

func TestRemainingClampsAtZero(t *testing.T) {
	remaining := Remaining(
		Targets{Protein: 70, Fat: 65, Calories: 2000},
		Intake{Protein: 80, Fat: 20},
	)

	assert.Equal(t, 0.0, remaining[Protein])
	assert.Equal(t, 45.0, remaining[Fat])
	assert.Equal(t, 2000.0, remaining[Calories])
	assert.Equal(t, Targets{Protein: 35}, Remaining(Targets{Protein: 35}, nil))
}

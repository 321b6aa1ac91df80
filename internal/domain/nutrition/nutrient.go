// Package nutrition holds the nutrient vector model shared by the catalog,
// the optimizer and the transports.
package nutrition

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Nutrient identifies one position of the fixed nutrient vector.
type Nutrient int

// Canonical nutrient order. Matrix columns follow this order.
const (
	Protein Nutrient = iota
	Fat
	Carbohydrate
	Calories
	Fiber
	Sodium
	Sugar
	Calcium
	Iron
	VitaminC
)

// NutrientCount is the length of every nutrient vector.
const NutrientCount = 10

var nutrientNames = [NutrientCount]string{
	"protein",
	"fat",
	"carbohydrate",
	"calories",
	"fiber",
	"sodium",
	"sugar",
	"calcium",
	"iron",
	"vitamin_c",
}

var nutrientAliases = map[string]Nutrient{
	"carbs":         Carbohydrate,
	"carbohydrates": Carbohydrate,
	"kcal":          Calories,
	"energy":        Calories,
	"vitaminc":      VitaminC,
}

// AllNutrients returns the nutrients in canonical order.
func AllNutrients() []Nutrient {
	all := make([]Nutrient, NutrientCount)
	for i := range all {
		all[i] = Nutrient(i)
	}
	return all
}

// Valid reports whether n is one of the ten known nutrients.
func (n Nutrient) Valid() bool {
	return n >= 0 && int(n) < NutrientCount
}

// String returns the canonical snake_case name.
func (n Nutrient) String() string {
	if !n.Valid() {
		return fmt.Sprintf("nutrient(%d)", int(n))
	}
	return nutrientNames[n]
}

// Unit returns the measurement unit used for the nutrient.
func (n Nutrient) Unit() string {
	switch n {
	case Calories:
		return "kcal"
	case Sodium, Calcium, Iron, VitaminC:
		return "mg"
	default:
		return "g"
	}
}

// MarshalText encodes the nutrient by name, which also makes it usable as a JSON map key.
func (n Nutrient) MarshalText() ([]byte, error) {
	if !n.Valid() {
		return nil, ErrInvalidNutrient
	}
	return []byte(n.String()), nil
}

// UnmarshalText decodes a nutrient name.
func (n *Nutrient) UnmarshalText(text []byte) error {
	parsed, err := ParseNutrient(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// ParseNutrient resolves a nutrient from its canonical name or a common alias.
func ParseNutrient(name string) (Nutrient, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	for i, candidate := range nutrientNames {
		if candidate == key {
			return Nutrient(i), nil
		}
	}
	if n, ok := nutrientAliases[strings.ReplaceAll(key, "_", "")]; ok {
		return n, nil
	}
	if n, ok := nutrientAliases[key]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidNutrient, name)
}

// Vector is a fixed-order tuple of nutrient quantities per serving.
type Vector [NutrientCount]float64

// VectorFromSlice copies up to NutrientCount values into a vector; missing positions stay 0.
func VectorFromSlice(values []float64) Vector {
	var v Vector
	copy(v[:], values)
	return v
}

// Get returns the quantity of a nutrient.
func (v Vector) Get(n Nutrient) float64 {
	if !n.Valid() {
		return 0
	}
	return v[n]
}

// With returns a copy of v with one nutrient replaced.
func (v Vector) With(n Nutrient, amount float64) Vector {
	if n.Valid() {
		v[n] = amount
	}
	return v
}

// Add returns the component-wise sum.
func (v Vector) Add(other Vector) Vector {
	for i := range v {
		v[i] += other[i]
	}
	return v
}

// Scale returns v multiplied by factor.
func (v Vector) Scale(factor float64) Vector {
	for i := range v {
		v[i] *= factor
	}
	return v
}

// Slice returns the vector as a newly allocated slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, NutrientCount)
	copy(out, v[:])
	return out
}

// Validate rejects negative and non-finite quantities.
func (v Vector) Validate() error {
	for i, value := range v {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidQuantity, Nutrient(i))
		}
		if value < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidQuantity, Nutrient(i))
		}
	}
	return nil
}

// Map returns the non-zero entries keyed by nutrient.
func (v Vector) Map() map[Nutrient]float64 {
	out := make(map[Nutrient]float64)
	for i, value := range v {
		if value != 0 {
			out[Nutrient(i)] = value
		}
	}
	return out
}

// MarshalJSON encodes the vector as an object keyed by nutrient name.
func (v Vector) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, NutrientCount)
	for i, value := range v {
		out[nutrientNames[i]] = value
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an object keyed by nutrient name. Unknown keys are rejected.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Vector
	for name, value := range raw {
		n, err := ParseNutrient(name)
		if err != nil {
			return err
		}
		out[n] = value
	}
	*v = out
	return nil
}

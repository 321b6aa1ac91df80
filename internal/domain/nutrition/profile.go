package nutrition

import (
	"strings"

	"github.com/google/uuid"
)

// Profile is the read-only nutrient record of one recipe, per serving.
// The optimizer borrows profiles from a catalog snapshot and never mutates them.
type Profile struct {
	id        uuid.UUID
	title     string
	nutrients Vector
}

// NewProfile validates and builds a recipe nutrient profile.
func NewProfile(id uuid.UUID, title string, nutrients Vector) (Profile, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Profile{}, ErrTitleRequired
	}
	if err := nutrients.Validate(); err != nil {
		return Profile{}, err
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return Profile{id: id, title: title, nutrients: nutrients}, nil
}

// MustProfile is NewProfile for static data; it panics on invalid input.
func MustProfile(id uuid.UUID, title string, nutrients Vector) Profile {
	p, err := NewProfile(id, title, nutrients)
	if err != nil {
		panic(err)
	}
	return p
}

// ID returns the recipe identifier.
func (p Profile) ID() uuid.UUID { return p.id }

// Title returns the display title.
func (p Profile) Title() string { return p.title }

// Nutrients returns a copy of the nutrient vector.
func (p Profile) Nutrients() Vector { return p.nutrients }

// Amount returns the per-serving quantity of one nutrient.
func (p Profile) Amount(n Nutrient) float64 { return p.nutrients.Get(n) }

package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// RecipeRepository is a process-local recipe catalog. Profiles keep their
// insertion order, and every successful write bumps the version.
type RecipeRepository struct {
	mutex    sync.RWMutex
	profiles []nutrition.Profile
	index    map[uuid.UUID]int
	version  int64
}

var _ outbound.RecipeRepository = (*RecipeRepository)(nil)

// NewRecipeRepository creates a repository preloaded with profiles.
func NewRecipeRepository(profiles ...nutrition.Profile) (*RecipeRepository, error) {
	r := &RecipeRepository{index: make(map[uuid.UUID]int)}
	if len(profiles) > 0 {
		if err := r.BulkCreate(context.Background(), profiles); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ListProfiles returns a copy of the catalog in insertion order.
func (r *RecipeRepository) ListProfiles(ctx context.Context) ([]nutrition.Profile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]nutrition.Profile, len(r.profiles))
	copy(out, r.profiles)
	return out, nil
}

// Version returns the current catalog version.
func (r *RecipeRepository) Version(ctx context.Context) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.version, nil
}

// Create appends a profile.
func (r *RecipeRepository) Create(ctx context.Context, profile nutrition.Profile) error {
	return r.BulkCreate(ctx, []nutrition.Profile{profile})
}

// BulkCreate appends all profiles or none.
func (r *RecipeRepository) BulkCreate(ctx context.Context, profiles []nutrition.Profile) error {
	if len(profiles) == 0 {
		return nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(profiles))
	for _, p := range profiles {
		if _, ok := r.index[p.ID()]; ok {
			return fmt.Errorf("%w: %s", outbound.ErrRecipeExists, p.ID())
		}
		if _, ok := seen[p.ID()]; ok {
			return fmt.Errorf("%w: %s", outbound.ErrRecipeExists, p.ID())
		}
		seen[p.ID()] = struct{}{}
	}

	for _, p := range profiles {
		r.index[p.ID()] = len(r.profiles)
		r.profiles = append(r.profiles, p)
	}
	r.version++
	return nil
}

// Update replaces a profile in place.
func (r *RecipeRepository) Update(ctx context.Context, profile nutrition.Profile) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	i, ok := r.index[profile.ID()]
	if !ok {
		return outbound.ErrRecipeNotFound
	}
	r.profiles[i] = profile
	r.version++
	return nil
}

// Delete removes a profile, preserving the order of the rest.
func (r *RecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	i, ok := r.index[id]
	if !ok {
		return outbound.ErrRecipeNotFound
	}
	r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.profiles); j++ {
		r.index[r.profiles[j].ID()] = j
	}
	r.version++
	return nil
}

// FindByID looks up one profile.
func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (nutrition.Profile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nutrition.Profile{}, outbound.ErrRecipeNotFound
	}
	return r.profiles[i], nil
}

// Count returns the number of profiles.
func (r *RecipeRepository) Count(ctx context.Context) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return int64(len(r.profiles)), nil
}

package mealplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// Snapshot is a read-only view of the catalog for one optimization call.
// Row i of Matrix is the nutrient vector of Profiles[i] in canonical order.
type Snapshot struct {
	Profiles []nutrition.Profile
	Matrix   *mat.Dense
	Version  int64
}

// NewSnapshot builds the nutrient matrix for profiles.
func NewSnapshot(profiles []nutrition.Profile, version int64) (*Snapshot, error) {
	if len(profiles) == 0 {
		return nil, mealplan.ErrEmptyCatalog
	}
	data := make([]float64, 0, len(profiles)*nutrition.NutrientCount)
	for _, p := range profiles {
		v := p.Nutrients()
		data = append(data, v[:]...)
	}
	return &Snapshot{
		Profiles: profiles,
		Matrix:   mat.NewDense(len(profiles), nutrition.NutrientCount, data),
		Version:  version,
	}, nil
}

// Column returns one nutrient across all recipes.
func (s *Snapshot) Column(n nutrition.Nutrient) []float64 {
	return mat.Col(nil, int(n), s.Matrix)
}

// Size returns the number of recipes.
func (s *Snapshot) Size() int {
	return len(s.Profiles)
}

// CatalogLoader snapshots the recipe catalog, memoizing the result per catalog version.
type CatalogLoader struct {
	catalog outbound.RecipeCatalog
	cache   outbound.CacheRepository
	opts    Options
	logger  *zap.Logger
}

// NewCatalogLoader creates a loader. cache may be nil to disable memoization.
func NewCatalogLoader(catalog outbound.RecipeCatalog, cache outbound.CacheRepository, opts Options, logger *zap.Logger) *CatalogLoader {
	return &CatalogLoader{
		catalog: catalog,
		cache:   cache,
		opts:    opts.withDefaults(),
		logger:  logger.Named("catalog-loader"),
	}
}

// SnapshotCacheKey is the cache key of the snapshot for one catalog version.
func SnapshotCacheKey(version int64) string {
	return fmt.Sprintf("nutriplan:catalog:snapshot:v%d", version)
}

// Load returns the current catalog snapshot or mealplan.ErrEmptyCatalog.
func (l *CatalogLoader) Load(ctx context.Context) (*Snapshot, error) {
	version, err := l.catalog.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("read catalog version: %w", err)
	}

	if snap, ok := l.fromCache(ctx, version); ok {
		return snap, nil
	}

	profiles, err := l.catalog.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog profiles: %w", err)
	}

	snap, err := NewSnapshot(profiles, version)
	if err != nil {
		return nil, err
	}

	l.toCache(ctx, snap)
	return snap, nil
}

// cachedProfile is the serialized form of a profile inside a cached snapshot.
type cachedProfile struct {
	ID        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	Nutrients nutrition.Vector `json:"nutrients"`
}

func (l *CatalogLoader) fromCache(ctx context.Context, version int64) (*Snapshot, bool) {
	if l.cache == nil {
		return nil, false
	}
	data, err := l.cache.Get(ctx, SnapshotCacheKey(version))
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			l.logger.Warn("Snapshot cache read failed", zap.Int64("version", version), zap.Error(err))
		}
		return nil, false
	}

	var cached []cachedProfile
	if err := json.Unmarshal(data, &cached); err != nil {
		l.logger.Warn("Discarding corrupt cached snapshot", zap.Int64("version", version), zap.Error(err))
		return nil, false
	}

	profiles := make([]nutrition.Profile, 0, len(cached))
	for _, c := range cached {
		p, err := nutrition.NewProfile(c.ID, c.Title, c.Nutrients)
		if err != nil {
			l.logger.Warn("Discarding invalid cached profile", zap.String("recipe_id", c.ID.String()), zap.Error(err))
			return nil, false
		}
		profiles = append(profiles, p)
	}

	snap, err := NewSnapshot(profiles, version)
	if err != nil {
		return nil, false
	}
	l.logger.Debug("Catalog snapshot served from cache", zap.Int64("version", version), zap.Int("recipes", snap.Size()))
	return snap, true
}

func (l *CatalogLoader) toCache(ctx context.Context, snap *Snapshot) {
	if l.cache == nil {
		return
	}
	cached := make([]cachedProfile, 0, snap.Size())
	for _, p := range snap.Profiles {
		cached = append(cached, cachedProfile{ID: p.ID(), Title: p.Title(), Nutrients: p.Nutrients()})
	}
	data, err := json.Marshal(cached)
	if err != nil {
		l.logger.Warn("Failed to encode snapshot", zap.Error(err))
		return
	}
	if err := l.cache.Set(ctx, SnapshotCacheKey(snap.Version), data, l.opts.SnapshotTTL); err != nil {
		l.logger.Warn("Snapshot cache write failed", zap.Int64("version", snap.Version), zap.Error(err))
	}
}

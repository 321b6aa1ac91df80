package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// bulkBatchSize bounds the rows per INSERT statement.
const bulkBatchSize = 100

// RecipeRepository implements the recipe repository interface using GORM.
// Listing order is the insertion order, and every write bumps the catalog
// version in the same transaction.
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

var _ outbound.RecipeRepository = (*RecipeRepository)(nil)

// ListProfiles returns every recipe in insertion order
func (r *RecipeRepository) ListProfiles(ctx context.Context) ([]nutrition.Profile, error) {
	var models []RecipeModel
	result := r.db.WithContext(ctx).
		Order("position ASC").
		Order("id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("list recipes: %w", result.Error)
	}

	profiles := make([]nutrition.Profile, 0, len(models))
	for i := range models {
		p, err := ModelToProfile(&models[i])
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Version returns the catalog version, 0 for a catalog that was never written
func (r *RecipeRepository) Version(ctx context.Context) (int64, error) {
	var state CatalogStateModel
	result := r.db.WithContext(ctx).Limit(1).Find(&state, "id = ?", catalogStateID)
	if result.Error != nil {
		return 0, fmt.Errorf("read catalog version: %w", result.Error)
	}
	return state.Version, nil
}

// Create creates a new recipe
func (r *RecipeRepository) Create(ctx context.Context, profile nutrition.Profile) error {
	return r.BulkCreate(ctx, []nutrition.Profile{profile})
}

// BulkCreate inserts all profiles in one transaction
func (r *RecipeRepository) BulkCreate(ctx context.Context, profiles []nutrition.Profile) error {
	if len(profiles) == 0 {
		return nil
	}

	ids := make([]string, 0, len(profiles))
	seen := make(map[uuid.UUID]struct{}, len(profiles))
	for _, p := range profiles {
		if _, dup := seen[p.ID()]; dup {
			return fmt.Errorf("%w: %s", outbound.ErrRecipeExists, p.ID())
		}
		seen[p.ID()] = struct{}{}
		ids = append(ids, p.ID().String())
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&RecipeModel{}).Where("id IN ?", ids).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: %d of %d ids already stored", outbound.ErrRecipeExists, existing, len(ids))
		}

		var maxPosition int64
		if err := tx.Model(&RecipeModel{}).Select("COALESCE(MAX(position), 0)").Scan(&maxPosition).Error; err != nil {
			return err
		}

		models := make([]*RecipeModel, 0, len(profiles))
		for i, p := range profiles {
			m := ProfileToModel(p)
			m.Position = maxPosition + int64(i) + 1
			models = append(models, m)
		}
		if err := tx.CreateInBatches(models, bulkBatchSize).Error; err != nil {
			return fmt.Errorf("insert recipes: %w", err)
		}
		return bumpVersion(tx)
	})
}

// Update replaces the title and nutrients of an existing recipe
func (r *RecipeRepository) Update(ctx context.Context, profile nutrition.Profile) error {
	m := ProfileToModel(profile)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&RecipeModel{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
			"title":        m.Title,
			"protein":      m.Protein,
			"fat":          m.Fat,
			"carbohydrate": m.Carbohydrate,
			"calories":     m.Calories,
			"fiber":        m.Fiber,
			"sodium":       m.Sodium,
			"sugar":        m.Sugar,
			"calcium":      m.Calcium,
			"iron":         m.Iron,
			"vitamin_c":    m.VitaminC,
			"updated_at":   time.Now(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return outbound.ErrRecipeNotFound
		}
		return bumpVersion(tx)
	})
}

// Delete deletes a recipe by ID
func (r *RecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&RecipeModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return outbound.ErrRecipeNotFound
		}
		return bumpVersion(tx)
	})
}

// FindByID finds a recipe by ID
func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (nutrition.Profile, error) {
	var model RecipeModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nutrition.Profile{}, outbound.ErrRecipeNotFound
		}
		return nutrition.Profile{}, result.Error
	}
	return ModelToProfile(&model)
}

// Count returns the number of recipes
func (r *RecipeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RecipeModel{}).Count(&count).Error
	return count, err
}

// bumpVersion increments the catalog version, creating the row on first use
func bumpVersion(tx *gorm.DB) error {
	result := tx.Model(&CatalogStateModel{}).
		Where("id = ?", catalogStateID).
		Updates(map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("bump catalog version: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return tx.Create(&CatalogStateModel{ID: catalogStateID, Version: 1}).Error
}

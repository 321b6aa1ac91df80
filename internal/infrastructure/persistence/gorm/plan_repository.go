package gorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// PlanRepository stores generated plans
type PlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

var _ outbound.PlanRepository = (*PlanRepository)(nil)

// Save stores a plan; saving the same plan twice is a no-op
func (r *PlanRepository) Save(ctx context.Context, plan mealplan.PlanGeneratedEvent) error {
	model, err := EventToModel(plan)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error
}

// FindByID finds a plan by ID
func (r *PlanRepository) FindByID(ctx context.Context, id uuid.UUID) (mealplan.PlanGeneratedEvent, error) {
	var model PlanModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return mealplan.PlanGeneratedEvent{}, outbound.ErrPlanNotFound
		}
		return mealplan.PlanGeneratedEvent{}, err
	}
	return ModelToEvent(&model)
}

// ListRecent returns the newest plans first
func (r *PlanRepository) ListRecent(ctx context.Context, limit int) ([]mealplan.PlanGeneratedEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var models []PlanModel
	err := r.db.WithContext(ctx).
		Order("generated_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	plans := make([]mealplan.PlanGeneratedEvent, 0, len(models))
	for i := range models {
		plan, err := ModelToEvent(&models[i])
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/domain/shared"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// PlanRecorder stores every generated plan in the plan history
type PlanRecorder struct {
	plans  outbound.PlanRepository
	logger *zap.Logger
}

// NewPlanRecorder creates a plan recorder
func NewPlanRecorder(plans outbound.PlanRepository, logger *zap.Logger) *PlanRecorder {
	return &PlanRecorder{plans: plans, logger: logger.Named("plan-recorder")}
}

// Handle is a shared.EventHandler for mealplan.generated
func (r *PlanRecorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	plan, err := planEvent(event)
	if err != nil {
		return err
	}
	if err := r.plans.Save(ctx, plan); err != nil {
		return fmt.Errorf("record plan %s: %w", plan.PlanID, err)
	}
	r.logger.Debug("Plan recorded",
		zap.String("plan_id", plan.PlanID.String()),
		zap.Int("recipes", plan.RecipeCount()),
		zap.Bool("fallback", plan.IsFallback),
	)
	return nil
}

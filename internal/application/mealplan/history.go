package mealplan

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
	apperrors "github.com/alchemorsel/nutriplan/pkg/errors"
)

// maxRecentPlans caps RecentPlans.
const maxRecentPlans = 100

// HistoryService reads previously generated plans
type HistoryService struct {
	plans outbound.PlanRepository
}

// NewHistoryService creates a plan history service
func NewHistoryService(plans outbound.PlanRepository) *HistoryService {
	return &HistoryService{plans: plans}
}

var _ inbound.PlanHistoryService = (*HistoryService)(nil)

// GetPlan returns one stored plan
func (h *HistoryService) GetPlan(ctx context.Context, id uuid.UUID) (*mealplan.PlanGeneratedEvent, error) {
	plan, err := h.plans.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, outbound.ErrPlanNotFound) {
			return nil, apperrors.NewPlanNotFoundError(id.String()).WithCause(err)
		}
		return nil, apperrors.NewDatabaseError("find plan", err)
	}
	return &plan, nil
}

// RecentPlans returns up to limit plans, newest first
func (h *HistoryService) RecentPlans(ctx context.Context, limit int) ([]mealplan.PlanGeneratedEvent, error) {
	if limit <= 0 || limit > maxRecentPlans {
		limit = maxRecentPlans
	}
	plans, err := h.plans.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list plans", err)
	}
	return plans, nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// PlanRepository keeps generated plans in memory, bounded by capacity.
// When full, the oldest plan is evicted.
type PlanRepository struct {
	mu       sync.RWMutex
	plans    map[uuid.UUID]mealplan.PlanGeneratedEvent
	order    []uuid.UUID
	capacity int
}

// NewPlanRepository creates a plan repository. capacity <= 0 means 1000.
func NewPlanRepository(capacity int) *PlanRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &PlanRepository{
		plans:    make(map[uuid.UUID]mealplan.PlanGeneratedEvent),
		capacity: capacity,
	}
}

var _ outbound.PlanRepository = (*PlanRepository)(nil)

// Save stores a plan; saving the same plan twice is a no-op
func (r *PlanRepository) Save(ctx context.Context, plan mealplan.PlanGeneratedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plans[plan.PlanID]; ok {
		return nil
	}
	if len(r.order) >= r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.plans, oldest)
	}
	r.plans[plan.PlanID] = plan
	r.order = append(r.order, plan.PlanID)
	return nil
}

// FindByID finds a plan by ID
func (r *PlanRepository) FindByID(ctx context.Context, id uuid.UUID) (mealplan.PlanGeneratedEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, ok := r.plans[id]
	if !ok {
		return mealplan.PlanGeneratedEvent{}, outbound.ErrPlanNotFound
	}
	return plan, nil
}

// ListRecent returns the newest plans first
func (r *PlanRepository) ListRecent(ctx context.Context, limit int) ([]mealplan.PlanGeneratedEvent, error) {
	r.mu.RLock()
	plans := make([]mealplan.PlanGeneratedEvent, 0, len(r.plans))
	for _, id := range r.order {
		plans = append(plans, r.plans[id])
	}
	r.mu.RUnlock()

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].GeneratedAt.After(plans[j].GeneratedAt)
	})
	if limit > 0 && len(plans) > limit {
		plans = plans[:limit]
	}
	return plans, nil
}

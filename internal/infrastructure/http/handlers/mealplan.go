package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/pkg/errors"
)

// Optimize handles POST /api/v1/meal-plans/optimize
func (h *APIHandlers) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, message, err := h.mealPlans.Optimize(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    PlanResponse{Plan: inbound.NewPlanDTO(result), Message: message},
		Message: message,
	})
}

// OptimizeBatch handles POST /api/v1/meal-plans/batch
func (h *APIHandlers) OptimizeBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []OptimizeRequest
	if err := h.decode(r, &reqs); err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(reqs) == 0 {
		h.writeError(w, r, errors.NewBadRequestError("batch must contain at least one request"))
		return
	}
	if len(reqs) > h.maxBatchSize {
		h.writeError(w, r, errors.NewBadRequestError(
			fmt.Sprintf("batch of %d exceeds the limit of %d", len(reqs), h.maxBatchSize),
		))
		return
	}

	cmds := make([]inbound.OptimizeCommand, 0, len(reqs))
	for i := range reqs {
		if err := h.check(&reqs[i]); err != nil {
			h.writeError(w, r, toAppError(err).WithMetadata("index", i))
			return
		}
		cmd, err := reqs[i].ToCommand()
		if err != nil {
			h.writeError(w, r, toAppError(err).WithMetadata("index", i))
			return
		}
		cmds = append(cmds, cmd)
	}

	outcomes, err := h.mealPlans.OptimizeBatch(r.Context(), cmds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]BatchItemResponse, 0, len(outcomes))
	for _, o := range outcomes {
		item := BatchItemResponse{Plan: inbound.NewPlanDTO(o.Result), Message: o.Message}
		if o.Err != nil {
			appErr := toAppError(o.Err)
			item.Error = &BatchItemError{Code: string(appErr.Code), Message: appErr.Message}
		}
		items = append(items, item)
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: items})
}

// Suggest handles POST /api/v1/meal-plans/suggestions
func (h *APIHandlers) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	query, err := req.ToQuery()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	suggestions, err := h.mealPlans.SuggestRecipes(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: inbound.NewSuggestionDTOs(suggestions)})
}

// GetPlan handles GET /api/v1/meal-plans/{id}
func (h *APIHandlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	plan, err := h.history.GetPlan(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: plan})
}

// ListPlans handles GET /api/v1/meal-plans?limit=n
func (h *APIHandlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, r, errors.NewBadRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}
	plans, err := h.history.RecentPlans(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: plans})
}

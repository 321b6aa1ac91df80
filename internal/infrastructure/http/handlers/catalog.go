package handlers

import (
	"fmt"
	"net/http"

	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
)

// ListRecipes handles GET /api/v1/recipes
func (h *APIHandlers) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.catalog.ListRecipes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: recipes})
}

// GetRecipe handles GET /api/v1/recipes/{id}
func (h *APIHandlers) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recipe, err := h.catalog.GetRecipe(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: recipe})
}

// CreateRecipe handles POST /api/v1/recipes
func (h *APIHandlers) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.RecipeCommand
	if err := h.decode(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	recipe, err := h.catalog.CreateRecipe(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    recipe,
		Message: "Recipe created successfully",
	})
}

// UpdateRecipe handles PUT /api/v1/recipes/{id}
func (h *APIHandlers) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var cmd inbound.RecipeCommand
	if err := h.decode(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	recipe, err := h.catalog.UpdateRecipe(r.Context(), id, cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    recipe,
		Message: "Recipe updated successfully",
	})
}

// DeleteRecipe handles DELETE /api/v1/recipes/{id}
func (h *APIHandlers) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.DeleteRecipe(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportRecipes handles POST /api/v1/recipes/import
func (h *APIHandlers) ImportRecipes(w http.ResponseWriter, r *http.Request) {
	var cmds []inbound.RecipeCommand
	if err := h.decode(r, &cmds); err != nil {
		h.writeError(w, r, err)
		return
	}
	for i := range cmds {
		if err := h.check(&cmds[i]); err != nil {
			h.writeError(w, r, toAppError(err).WithMetadata("index", i))
			return
		}
	}

	count, err := h.catalog.ImportRecipes(r.Context(), cmds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    map[string]int{"imported": count},
		Message: fmt.Sprintf("%d recipes imported", count),
	})
}

// SeedDemo handles POST /api/v1/recipes/seed
func (h *APIHandlers) SeedDemo(w http.ResponseWriter, r *http.Request) {
	count, err := h.catalog.SeedDemo(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if count == 0 {
		h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Catalog already populated"})
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    map[string]int{"seeded": count},
		Message: fmt.Sprintf("%d demo recipes seeded", count),
	})
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the v1 API on r. solveMiddleware wraps only the
// endpoints that run the optimizer.
func (h *APIHandlers) RegisterRoutes(r chi.Router, solveMiddleware ...func(http.Handler) http.Handler) {
	r.Route("/meal-plans", func(r chi.Router) {
		r.Get("/", h.ListPlans)
		r.Get("/{id}", h.GetPlan)

		r.Group(func(r chi.Router) {
			r.Use(solveMiddleware...)
			r.Post("/optimize", h.Optimize)
			r.Post("/batch", h.OptimizeBatch)
			r.Post("/suggestions", h.Suggest)
		})
	})

	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", h.ListRecipes)
		r.Post("/", h.CreateRecipe)
		r.Post("/import", h.ImportRecipes)
		r.Post("/seed", h.SeedDemo)
		r.Get("/{id}", h.GetRecipe)
		r.Put("/{id}", h.UpdateRecipe)
		r.Delete("/{id}", h.DeleteRecipe)
	})
}

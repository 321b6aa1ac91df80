// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/pkg/errors"
)

// APIHandlers handles REST API requests
type APIHandlers struct {
	mealPlans    inbound.MealPlanService
	catalog      inbound.CatalogService
	history      inbound.PlanHistoryService
	validate     *validator.Validate
	maxBatchSize int
	logger       *zap.Logger
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(
	mealPlans inbound.MealPlanService,
	catalog inbound.CatalogService,
	history inbound.PlanHistoryService,
	maxBatchSize int,
	logger *zap.Logger,
) *APIHandlers {
	if maxBatchSize <= 0 {
		maxBatchSize = 50
	}
	return &APIHandlers{
		mealPlans:    mealPlans,
		catalog:      catalog,
		history:      history,
		validate:     NewValidator(),
		maxBatchSize: maxBatchSize,
		logger:       logger.Named("api-handlers"),
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// NewValidator returns a validator that reports JSON field names
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst. Struct bodies are validated here; slice
// bodies are validated element by element by the caller.
func (h *APIHandlers) decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case stderrors.As(err, &maxBytes):
			return errors.NewBadRequestError(fmt.Sprintf("request body exceeds %d bytes", maxBytes.Limit))
		case stderrors.Is(err, io.EOF):
			return errors.NewBadRequestError("request body is empty")
		default:
			return errors.NewBadRequestError("invalid JSON body").WithCause(err)
		}
	}
	if reflect.Indirect(reflect.ValueOf(dst)).Kind() != reflect.Struct {
		return nil
	}
	return h.check(dst)
}

// check runs struct validation and converts failures to an AppError
func (h *APIHandlers) check(v interface{}) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewValidationError(err.Error())
	}
	out := make([]errors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, errors.ValidationError{
			Field:   fe.Namespace(),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: fmt.Sprintf("%s failed on the '%s' rule", fe.Namespace(), fe.Tag()),
		})
	}
	return errors.NewValidationErrors(out)
}

// toAppError maps service and domain errors onto API error codes
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, mealplan.ErrEmptyCatalog):
		return errors.NewEmptyCatalogError(err)
	case stderrors.Is(err, mealplan.ErrConstraintBuild):
		return errors.NewConstraintBuildError(err)
	case stderrors.Is(err, nutrition.ErrInvalidNutrient),
		stderrors.Is(err, nutrition.ErrInvalidQuantity),
		stderrors.Is(err, nutrition.ErrNegativeTarget),
		stderrors.Is(err, nutrition.ErrTitleRequired),
		stderrors.Is(err, mealplan.ErrInvalidPriority),
		stderrors.Is(err, mealplan.ErrNegativeCeiling),
		stderrors.Is(err, mealplan.ErrNegativeMinRecipes):
		return errors.NewValidationError(err.Error()).WithCause(err)
	default:
		return errors.Wrap(err, "An unexpected error occurred")
	}
}

// writeJSON writes a JSON response
func (h *APIHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes an error response
func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(err)
	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}
	h.writeJSON(w, status, errors.ToErrorResponse(appErr, chimiddleware.GetReqID(r.Context())))
}

// pathID parses the {id} URL parameter
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.NewBadRequestError(fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

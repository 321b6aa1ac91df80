package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/application/catalog"
	appmealplan "github.com/alchemorsel/nutriplan/internal/application/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/domain/shared"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/events"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/solver"
	"github.com/alchemorsel/nutriplan/test/testutils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   struct {
		Code     string                 `json:"code"`
		Message  string                 `json:"message"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"error"`
}

// APIHandlersTestSuite drives the REST API against in-memory adapters and the real solver
type APIHandlersTestSuite struct {
	suite.Suite
	recipes *memory.RecipeRepository
	plans   *memory.PlanRepository
	router  chi.Router
}

func (s *APIHandlersTestSuite) SetupTest() {
	s.setup(testutils.DemoCatalog()...)
}

func (s *APIHandlersTestSuite) setup(seed ...nutrition.Profile) {
	logger := zap.NewNop()

	recipes, err := memory.NewRecipeRepository(seed...)
	s.Require().NoError(err)
	s.recipes = recipes
	s.plans = memory.NewPlanRepository(10)

	publisher := events.NewPublisher(shared.NewEventDispatcher(), time.Second, logger)
	publisher.Subscribe(mealplan.PlanGeneratedEvent{}.EventName(), events.NewPlanRecorder(s.plans, logger).Handle)

	cache := memory.NewCacheRepository(0)
	mealPlans := appmealplan.NewService(recipes, cache, solver.NewSimplex(), publisher, nil, appmealplan.DefaultOptions(), logger)
	h := NewAPIHandlers(
		mealPlans,
		catalog.NewService(recipes, cache, logger),
		appmealplan.NewHistoryService(s.plans),
		2,
		logger,
	)

	s.router = chi.NewRouter()
	s.router.Route("/api/v1", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
}

func (s *APIHandlersTestSuite) do(method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (s *APIHandlersTestSuite) TestOptimize_RecordsPlanHistory() {
	rec, env := s.do(http.MethodPost, "/api/v1/meal-plans/optimize",
		`{"targets":{"protein":60,"calories":600},"priority":"protein_first"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.True(env.Success)

	var payload PlanResponse
	s.Require().NoError(json.Unmarshal(env.Data, &payload))
	s.Require().NotNil(payload.Plan)
	s.NotEqual(uuid.Nil, payload.Plan.ID)
	s.NotEmpty(payload.Message)
	s.Contains(payload.Plan.Achievement, "protein")

	rec, env = s.do(http.MethodGet, "/api/v1/meal-plans/"+payload.Plan.ID.String(), "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var stored mealplan.PlanGeneratedEvent
	s.Require().NoError(json.Unmarshal(env.Data, &stored))
	s.Equal(payload.Plan.ID, stored.PlanID)

	rec, env = s.do(http.MethodGet, "/api/v1/meal-plans?limit=5", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var recent []mealplan.PlanGeneratedEvent
	s.Require().NoError(json.Unmarshal(env.Data, &recent))
	s.Len(recent, 1)
}

func (s *APIHandlersTestSuite) TestOptimize_EmptyCatalog() {
	s.setup()

	rec, env := s.do(http.MethodPost, "/api/v1/meal-plans/optimize", `{"targets":{"protein":60}}`)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Equal("EMPTY_CATALOG", env.Error.Code)
}

func (s *APIHandlersTestSuite) TestOptimize_RejectsBadInput() {
	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "unknown priority", body: `{"targets":{"protein":60},"priority":"bulk"}`, code: "VALIDATION_FAILED"},
		{name: "negative target", body: `{"targets":{"protein":-1}}`, code: "VALIDATION_FAILED"},
		{name: "missing targets", body: `{}`, code: "VALIDATION_FAILED"},
		{name: "unknown nutrient", body: `{"targets":{"unobtainium":5}}`, code: "VALIDATION_FAILED"},
		{name: "unknown field", body: `{"targets":{"protein":60},"diet":"keto"}`, code: "BAD_REQUEST"},
		{name: "malformed", body: `{"targets":`, code: "BAD_REQUEST"},
		{name: "empty body", body: ``, code: "BAD_REQUEST"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec, env := s.do(http.MethodPost, "/api/v1/meal-plans/optimize", tt.body)
			s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
			s.Equal(tt.code, env.Error.Code)
		})
	}
}

func (s *APIHandlersTestSuite) TestOptimizeBatch() {
	rec, env := s.do(http.MethodPost, "/api/v1/meal-plans/batch",
		`[{"targets":{"protein":60}},{"targets":{"calories":800},"priority":"low_calorie"}]`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var items []BatchItemResponse
	s.Require().NoError(json.Unmarshal(env.Data, &items))
	s.Require().Len(items, 2)
	for _, item := range items {
		s.Nil(item.Error)
		s.NotNil(item.Plan)
	}
}

func (s *APIHandlersTestSuite) TestOptimizeBatch_Limits() {
	rec, env := s.do(http.MethodPost, "/api/v1/meal-plans/batch", `[]`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("BAD_REQUEST", env.Error.Code)

	rec, env = s.do(http.MethodPost, "/api/v1/meal-plans/batch",
		`[{"targets":{"protein":1}},{"targets":{"protein":2}},{"targets":{"protein":3}}]`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(env.Error.Message, "exceeds the limit of 2")

	rec, env = s.do(http.MethodPost, "/api/v1/meal-plans/batch",
		`[{"targets":{"protein":1}},{"targets":{"protein":-2}}]`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_FAILED", env.Error.Code)
	s.EqualValues(1, env.Error.Metadata["index"])
}

func (s *APIHandlersTestSuite) TestSuggest() {
	rec, env := s.do(http.MethodPost, "/api/v1/meal-plans/suggestions",
		`{"targets":{"protein":100},"current_intake":{"protein":20},"limit":2}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var suggestions []map[string]interface{}
	s.Require().NoError(json.Unmarshal(env.Data, &suggestions))
	s.NotEmpty(suggestions)
	s.LessOrEqual(len(suggestions), 2)
}

func (s *APIHandlersTestSuite) TestGetPlan_Errors() {
	rec, env := s.do(http.MethodGet, "/api/v1/meal-plans/not-a-uuid", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("BAD_REQUEST", env.Error.Code)

	rec, env = s.do(http.MethodGet, "/api/v1/meal-plans/"+uuid.NewString(), "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("PLAN_NOT_FOUND", env.Error.Code)

	rec, _ = s.do(http.MethodGet, "/api/v1/meal-plans?limit=zero", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APIHandlersTestSuite) TestRecipeLifecycle() {
	rec, env := s.do(http.MethodPost, "/api/v1/recipes",
		`{"title":"Lentil Soup","nutrients":{"protein":18,"carbs":40,"kcal":230,"fiber":15}}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID        uuid.UUID          `json:"id"`
		Title     string             `json:"title"`
		Nutrients map[string]float64 `json:"nutrients"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &created))
	s.NotEqual(uuid.Nil, created.ID)
	s.Equal(40.0, created.Nutrients["carbohydrate"])
	s.Equal(230.0, created.Nutrients["calories"])

	path := "/api/v1/recipes/" + created.ID.String()

	rec, _ = s.do(http.MethodGet, path, "")
	s.Equal(http.StatusOK, rec.Code)

	rec, env = s.do(http.MethodPut, path, `{"title":"Red Lentil Soup","nutrients":{"protein":20}}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Contains(string(env.Data), "Red Lentil Soup")

	rec, env = s.do(http.MethodGet, "/api/v1/recipes", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var all []json.RawMessage
	s.Require().NoError(json.Unmarshal(env.Data, &all))
	s.Len(all, len(testutils.DemoCatalog())+1)

	rec, _ = s.do(http.MethodDelete, path, "")
	s.Equal(http.StatusNoContent, rec.Code)

	rec, env = s.do(http.MethodGet, path, "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("RECIPE_NOT_FOUND", env.Error.Code)
}

func (s *APIHandlersTestSuite) TestCreateRecipe_Validation() {
	rec, env := s.do(http.MethodPost, "/api/v1/recipes", `{"title":"","nutrients":{}}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_FAILED", env.Error.Code)
	s.Contains(env.Error.Metadata, "validation_errors")
}

func (s *APIHandlersTestSuite) TestImportAndSeed() {
	s.setup()

	rec, env := s.do(http.MethodPost, "/api/v1/recipes/import",
		`[{"title":"Oatmeal","nutrients":{"protein":5,"carbs":27}},{"title":"Egg","nutrients":{"protein":6,"fat":5}}]`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Contains(string(env.Data), `"imported":2`)

	// a populated catalog is left alone
	rec, env = s.do(http.MethodPost, "/api/v1/recipes/seed", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Catalog already populated", env.Message)

	assert.Equal(s.T(), 2, s.mustCount())
}

func (s *APIHandlersTestSuite) TestSeedDemo() {
	s.setup()

	rec, env := s.do(http.MethodPost, "/api/v1/recipes/seed", "")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.True(strings.HasSuffix(env.Message, "demo recipes seeded"))
	s.Len(catalog.DemoRecipes(), s.mustCount())
}

func (s *APIHandlersTestSuite) mustCount() int {
	count, err := s.recipes.Count(context.Background())
	s.Require().NoError(err)
	return int(count)
}

func TestAPIHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(APIHandlersTestSuite))
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nakedpantry/backend/config"
	"github.com/nakedpantry/backend/internal/domain"
	"github.com/nakedpantry/backend/internal/infrastructure/cache"
	"github.com/nakedpantry/backend/internal/metrics"
	"github.com/nakedpantry/backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeStore is an in-memory domain.Store used to drive the real services
type fakeStore struct {
	foods  map[string]domain.Food
	aisles []domain.Aisle
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		aisles: []domain.Aisle{
			{ID: "1", Name: "Produce"},
			{ID: "2", Name: "Fruit", ParentID: "1"},
			{ID: "3", Name: "Berries", ParentID: "2"},
			{ID: "4", Name: "Bakery"},
		},
		foods: map[string]domain.Food{
			"f1": {ID: "f1", Name: "Apples", Category: "Fruit, Apples", AisleID: "2", Status: domain.FoodStatusApproved},
			"f2": {ID: "f2", Name: "Pears", Category: "Fruit", AisleID: "2", Status: domain.FoodStatusApproved},
			"f3": {ID: "f3", Name: "Blueberries", Category: "Fruit, Berries", AisleID: "3", Status: domain.FoodStatusApproved},
			"f4": {ID: "f4", Name: "Pending Plums", Category: "Fruit", AisleID: "2", Status: "pending"},
			"f5": {ID: "f5", Name: "Sourdough", Category: "Bread", AisleID: "4", Status: domain.FoodStatusApproved},
		},
	}
}

func (s *fakeStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.foods))
	for id := range s.foods {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *fakeStore) GetFood(_ context.Context, id string) (*domain.Food, error) {
	if s.err != nil {
		return nil, s.err
	}
	food, ok := s.foods[id]
	if !ok {
		return nil, domain.ErrFoodNotFound
	}
	return &food, nil
}

func (s *fakeStore) AisleIDsForFood(_ context.Context, foodID string) ([]string, error) {
	if food, ok := s.foods[foodID]; ok && food.AisleID != "" {
		return []string{food.AisleID}, nil
	}
	return nil, s.err
}

func (s *fakeStore) FindRelatedCandidates(_ context.Context, q domain.RelatedQuery) ([]domain.RelatedFood, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.RelatedFood
	for _, id := range s.sortedIDs() {
		food := s.foods[id]
		if food.Status != domain.FoodStatusApproved || food.ID == q.ExcludeID {
			continue
		}
		if len(q.AisleIDs) > 0 && !contains(q.AisleIDs, food.AisleID) {
			continue
		}
		if len(q.CategoryTags) > 0 && !categoryMatches(food.Category, q.CategoryTags) {
			continue
		}
		out = append(out, domain.RelatedFood{ID: food.ID, Name: food.Name, Category: food.Category})
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) ListAisles(context.Context) ([]domain.Aisle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.aisles, nil
}

func (s *fakeStore) DescendantAisles(_ context.Context, parentID string) ([]domain.Aisle, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Aisle
	frontier := []string{parentID}
	for len(frontier) > 0 {
		var next []string
		for _, a := range s.aisles {
			if contains(frontier, a.ParentID) {
				out = append(out, a)
				next = append(next, a.ID)
			}
		}
		frontier = next
	}
	return out, nil
}

func (s *fakeStore) FoodIDsInAisles(_ context.Context, aisleIDs []string) ([]string, error) {
	var ids []string
	for _, id := range s.sortedIDs() {
		if contains(aisleIDs, s.foods[id].AisleID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeStore) ApprovedFoodsByIDs(_ context.Context, ids []string) ([]domain.Food, error) {
	var out []domain.Food
	for _, id := range ids {
		if food, ok := s.foods[id]; ok && food.Status == domain.FoodStatusApproved {
			out = append(out, food)
		}
	}
	return out, nil
}

func (s *fakeStore) ListIndicators(context.Context) ([]string, error) { return nil, nil }
func (s *fakeStore) Close() error                                     { return nil }

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func categoryMatches(category string, tags []string) bool {
	lower := strings.ToLower(category)
	for _, tag := range tags {
		if strings.Contains(lower, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:8081"},
		},
		RateLimit: config.RateLimitConfig{PerIP: 1000, Burst: 1000},
	}
}

// setupTestRouter wires the real services over the fake store
func setupTestRouter(t *testing.T, store *fakeStore, cfg *config.Config) (*gin.Engine, *metrics.Metrics) {
	t.Helper()

	m := metrics.New()
	memCache := cache.NewMemoryCache()
	handler := NewHandler(
		usecase.NewNovaClassifier(usecase.ClassifierConfig{Metrics: m}),
		usecase.NewRelatedFoodsService(store, memCache, usecase.RelatedFoodsConfig{Metrics: m}),
		usecase.NewAisleService(store, memCache, usecase.AisleServiceConfig{Metrics: m}),
		nil,
	)

	router := SetupRouter(cfg, handler, nil, m)
	require.NotNil(t, router)
	return router, m
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), "body: %s", w.Body.String())
}

func TestHealthCheckEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, newFakeStore(), testConfig())

	t.Run("returns healthy status", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		decodeBody(t, w, &response)
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, serviceName, response["service"])
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			w := doRequest(router, method, "/health", "")
			assert.Equal(t, http.StatusNotFound, w.Code, "method %s", method)
		}
	})

	t.Run("echoes inbound request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	})
}

func TestClassifyEndpoint(t *testing.T) {
	router, m := setupTestRouter(t, newFakeStore(), testConfig())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantGroup  domain.NovaGroup
	}{
		{
			name:       "ultra-processed listing",
			body:       `{"ingredients":"Ingredients: sugar, palm oil, soy lecithin, natural flavor, high fructose corn syrup"}`,
			wantStatus: http.StatusOK,
			wantGroup:  domain.NovaUltraProcessed,
		},
		{
			name:       "single whole food",
			body:       `{"ingredients":"rolled oats"}`,
			wantStatus: http.StatusOK,
			wantGroup:  domain.NovaUnprocessed,
		},
		{
			name:       "empty ingredients fall back",
			body:       `{"ingredients":""}`,
			wantStatus: http.StatusOK,
			wantGroup:  domain.NovaProcessed,
		},
		{
			name:       "malformed json",
			body:       `{"ingredients":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "oversized listing",
			body:       `{"ingredients":"` + strings.Repeat("a", 20001) + `"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/v1/nova/classify", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, "body: %s", w.Body.String())

			if tt.wantStatus != http.StatusOK {
				var response map[string]interface{}
				decodeBody(t, w, &response)
				assert.NotEmpty(t, response["error"])
				return
			}

			var result domain.ClassificationResult
			decodeBody(t, w, &result)
			assert.Equal(t, tt.wantGroup, result.NovaGroup)
			assert.NotEmpty(t, result.Explanation)
		})
	}

	metricsResp := doRequest(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, metricsResp.Code)
	assert.Contains(t, metricsResp.Body.String(), "nakedpantry_classifications_total")
	assert.Contains(t, metricsResp.Body.String(), `route="/api/v1/nova/classify"`)
	assert.NotNil(t, m.Registry())
}

func TestRelatedFoodsEndpoint(t *testing.T) {
	t.Run("returns related approved foods", func(t *testing.T) {
		router, _ := setupTestRouter(t, newFakeStore(), testConfig())

		w := doRequest(router, http.MethodGet, "/api/v1/foods/f1/related", "")
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Foods []domain.RelatedFood `json:"foods"`
		}
		decodeBody(t, w, &response)

		ids := make([]string, 0, len(response.Foods))
		for _, f := range response.Foods {
			ids = append(ids, f.ID)
		}
		assert.ElementsMatch(t, []string{"f2", "f3"}, ids)
	})

	t.Run("food without signals returns empty list", func(t *testing.T) {
		store := newFakeStore()
		store.foods["f9"] = domain.Food{ID: "f9", Name: "Mystery", Status: domain.FoodStatusApproved}
		router, _ := setupTestRouter(t, store, testConfig())

		w := doRequest(router, http.MethodGet, "/api/v1/foods/f9/related", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"foods":[]}`, w.Body.String())
	})

	t.Run("unknown food is not found", func(t *testing.T) {
		router, _ := setupTestRouter(t, newFakeStore(), testConfig())

		w := doRequest(router, http.MethodGet, "/api/v1/foods/missing/related", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("store failure is a bad gateway", func(t *testing.T) {
		store := newFakeStore()
		store.err = errors.New("connection refused")
		router, _ := setupTestRouter(t, store, testConfig())

		w := doRequest(router, http.MethodGet, "/api/v1/foods/f1/related", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestAisleEndpoints(t *testing.T) {
	t.Run("returns sorted tree", func(t *testing.T) {
		router, _ := setupTestRouter(t, newFakeStore(), testConfig())

		w := doRequest(router, http.MethodGet, "/api/v1/aisles", "")
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Aisles []*domain.AisleNode `json:"aisles"`
		}
		decodeBody(t, w, &response)
		require.Len(t, response.Aisles, 2)
		assert.Equal(t, "Bakery", response.Aisles[0].Name)
		assert.Equal(t, "Produce", response.Aisles[1].Name)
		require.Len(t, response.Aisles[1].Children, 1)
		assert.Equal(t, "Berries", response.Aisles[1].Children[0].Children[0].Name)
	})

	t.Run("returns approved foods in aisle and descendants", func(t *testing.T) {
		router, _ := setupTestRouter(t, newFakeStore(), testConfig())

		w := doRequest(router, http.MethodGet, "/api/v1/aisles/1/foods", "")
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Foods []domain.Food `json:"foods"`
		}
		decodeBody(t, w, &response)

		names := make([]string, 0, len(response.Foods))
		for _, f := range response.Foods {
			names = append(names, f.Name)
		}
		assert.ElementsMatch(t, []string{"Apples", "Pears", "Blueberries"}, names)
	})

	t.Run("empty aisle returns empty list", func(t *testing.T) {
		store := newFakeStore()
		store.aisles = append(store.aisles, domain.Aisle{ID: "5", Name: "Frozen"})
		router, _ := setupTestRouter(t, store, testConfig())

		w := doRequest(router, http.MethodGet, "/api/v1/aisles/5/foods", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"foods":[]}`, w.Body.String())
	})

	t.Run("cache invalidation picks up new aisles", func(t *testing.T) {
		store := newFakeStore()
		router, _ := setupTestRouter(t, store, testConfig())

		require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/api/v1/aisles", "").Code)
		store.aisles = append(store.aisles, domain.Aisle{ID: "5", Name: "Frozen"})

		var cached struct {
			Aisles []*domain.AisleNode `json:"aisles"`
		}
		decodeBody(t, doRequest(router, http.MethodGet, "/api/v1/aisles", ""), &cached)
		assert.Len(t, cached.Aisles, 2)

		w := doRequest(router, http.MethodDelete, "/api/v1/aisles/cache", "")
		require.Equal(t, http.StatusNoContent, w.Code)

		var fresh struct {
			Aisles []*domain.AisleNode `json:"aisles"`
		}
		decodeBody(t, doRequest(router, http.MethodGet, "/api/v1/aisles", ""), &fresh)
		assert.Len(t, fresh.Aisles, 3)
	})

	t.Run("store failure is a bad gateway", func(t *testing.T) {
		store := newFakeStore()
		store.err = errors.New("timeout")
		router, _ := setupTestRouter(t, store, testConfig())

		w := doRequest(router, http.MethodGet, "/api/v1/aisles", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestRateLimitedRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{PerIP: 0.001, Burst: 2}
	router, _ := setupTestRouter(t, newFakeStore(), cfg)

	for i := 0; i < 2; i++ {
		w := doRequest(router, http.MethodPost, "/api/v1/nova/classify", `{"ingredients":"apples"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(router, http.MethodPost, "/api/v1/nova/classify", `{"ingredients":"apples"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// health is outside the limited group
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", "").Code)
}

func TestUnconfiguredServices(t *testing.T) {
	router := SetupRouter(testConfig(), NewHandler(nil, nil, nil, nil), nil, nil)

	paths := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/nova/classify", `{"ingredients":"apples"}`},
		{http.MethodGet, "/api/v1/foods/f1/related", ""},
		{http.MethodGet, "/api/v1/aisles", ""},
		{http.MethodGet, "/api/v1/aisles/1/foods", ""},
		{http.MethodDelete, "/api/v1/aisles/cache", ""},
	}

	for _, p := range paths {
		w := doRequest(router, p.method, p.path, p.body)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, "%s %s", p.method, p.path)
		assert.Contains(t, w.Body.String(), "not configured")
	}

	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/metrics", "").Code)
}

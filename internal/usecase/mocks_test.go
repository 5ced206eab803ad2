package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nakedpantry/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string][]byte
	getError error
	setError error
	gets     int
	sets     int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockFoodStore is a mock implementation of domain.FoodStore that records every call
type MockFoodStore struct {
	mu sync.Mutex

	foods         map[string]*domain.Food
	getFoodError  error
	aisleIDs      map[string][]string
	aisleIDsError error

	// tierResults is consulted by query shape; see queryShape
	tierResults map[string][]domain.RelatedFood
	tierErrors  map[string]error
	block       chan struct{}

	getFoodCalls int
	aisleCalls   int
	queries      []domain.RelatedQuery
}

func NewMockFoodStore() *MockFoodStore {
	return &MockFoodStore{
		foods:       make(map[string]*domain.Food),
		aisleIDs:    make(map[string][]string),
		tierResults: make(map[string][]domain.RelatedFood),
		tierErrors:  make(map[string]error),
	}
}

// queryShape names the tier a query belongs to
func queryShape(q domain.RelatedQuery) string {
	switch {
	case len(q.AisleIDs) > 0 && len(q.CategoryTags) > 0:
		return "category_aisle"
	case len(q.AisleIDs) > 0:
		return "aisle"
	case len(q.CategoryTags) > 0:
		return "category"
	default:
		return "none"
	}
}

func (m *MockFoodStore) GetFood(ctx context.Context, id string) (*domain.Food, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getFoodCalls++
	if m.getFoodError != nil {
		return nil, m.getFoodError
	}
	food, ok := m.foods[id]
	if !ok {
		return nil, domain.ErrFoodNotFound
	}
	return food, nil
}

func (m *MockFoodStore) AisleIDsForFood(ctx context.Context, foodID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aisleCalls++
	if m.aisleIDsError != nil {
		return nil, m.aisleIDsError
	}
	return m.aisleIDs[foodID], nil
}

func (m *MockFoodStore) FindRelatedCandidates(ctx context.Context, query domain.RelatedQuery) ([]domain.RelatedFood, error) {
	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	shape := queryShape(query)
	if err := m.tierErrors[shape]; err != nil {
		return nil, err
	}
	return m.tierResults[shape], nil
}

func (m *MockFoodStore) networkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getFoodCalls + m.aisleCalls + len(m.queries)
}

func (m *MockFoodStore) queriedShapes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	shapes := make([]string, 0, len(m.queries))
	for _, q := range m.queries {
		shapes = append(shapes, queryShape(q))
	}
	return shapes
}

// MockAisleStore is a mock implementation of domain.AisleStore
type MockAisleStore struct {
	mu sync.Mutex

	aisles        []domain.Aisle
	listError     error
	descendants   map[string][]domain.Aisle
	descError     error
	membership    map[string][]string // aisle id -> food ids
	membershipErr error
	foods         map[string]domain.Food
	foodsErr      error

	listCalls        int
	descendantCalls  int
	membershipCalls  int
	foodsCalls       int
	lastMembershipIn []string
	lastFoodsIn      []string
}

func NewMockAisleStore() *MockAisleStore {
	return &MockAisleStore{
		descendants: make(map[string][]domain.Aisle),
		membership:  make(map[string][]string),
		foods:       make(map[string]domain.Food),
	}
}

func (m *MockAisleStore) ListAisles(ctx context.Context) ([]domain.Aisle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listError != nil {
		return nil, m.listError
	}
	return m.aisles, nil
}

func (m *MockAisleStore) DescendantAisles(ctx context.Context, parentID string) ([]domain.Aisle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descendantCalls++
	if m.descError != nil {
		return nil, m.descError
	}
	return m.descendants[parentID], nil
}

func (m *MockAisleStore) FoodIDsInAisles(ctx context.Context, aisleIDs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.membershipCalls++
	m.lastMembershipIn = aisleIDs
	if m.membershipErr != nil {
		return nil, m.membershipErr
	}
	var ids []string
	for _, aisleID := range aisleIDs {
		ids = append(ids, m.membership[aisleID]...)
	}
	return ids, nil
}

func (m *MockAisleStore) ApprovedFoodsByIDs(ctx context.Context, ids []string) ([]domain.Food, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.foodsCalls++
	m.lastFoodsIn = ids
	if m.foodsErr != nil {
		return nil, m.foodsErr
	}
	var foods []domain.Food
	for _, id := range ids {
		if f, ok := m.foods[id]; ok {
			foods = append(foods, f)
		}
	}
	return foods, nil
}

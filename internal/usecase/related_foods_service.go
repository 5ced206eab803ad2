package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nakedpantry/backend/internal/domain"
	"github.com/nakedpantry/backend/internal/logger"
	"github.com/nakedpantry/backend/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	relatedCachePrefix    = "related:"
	relatedCacheName      = "related"
	defaultMaxRelated     = 4
	defaultRelatedFoodTTL = 10 * time.Minute
)

// relatedSignals are the similarity inputs derived from the current food
type relatedSignals struct {
	excludeID    string
	categoryTags []string
	aisleIDs     []string
}

// relatedTier is one relaxation step of the related-foods lookup
type relatedTier struct {
	name  string
	ready func(s *relatedSignals) bool
	query func(s *relatedSignals, limit int) domain.RelatedQuery
}

// relatedTiers run in order; each only runs while the result list has room
var relatedTiers = []relatedTier{
	{
		name:  "category_aisle",
		ready: func(s *relatedSignals) bool { return len(s.categoryTags) > 0 && len(s.aisleIDs) > 0 },
		query: func(s *relatedSignals, limit int) domain.RelatedQuery {
			return domain.RelatedQuery{ExcludeID: s.excludeID, AisleIDs: s.aisleIDs, CategoryTags: s.categoryTags, Limit: limit}
		},
	},
	{
		name:  "aisle",
		ready: func(s *relatedSignals) bool { return len(s.aisleIDs) > 0 },
		query: func(s *relatedSignals, limit int) domain.RelatedQuery {
			return domain.RelatedQuery{ExcludeID: s.excludeID, AisleIDs: s.aisleIDs, Limit: limit}
		},
	},
	{
		name:  "category",
		ready: func(s *relatedSignals) bool { return len(s.categoryTags) > 0 },
		query: func(s *relatedSignals, limit int) domain.RelatedQuery {
			return domain.RelatedQuery{ExcludeID: s.excludeID, CategoryTags: s.categoryTags, Limit: limit}
		},
	},
}

// RelatedFoodsConfig holds configuration for the related-foods service
type RelatedFoodsConfig struct {
	CacheTTL   time.Duration
	MaxResults int
	Logger     logger.Logger
	Metrics    *metrics.Metrics
}

// RelatedFoodsService finds approved foods similar to a given food,
// relaxing the similarity criteria tier by tier.
type RelatedFoodsService struct {
	store      domain.FoodStore
	cache      domain.CacheRepository
	cacheTTL   time.Duration
	maxResults int
	tiers      []relatedTier
	group      singleflight.Group
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewRelatedFoodsService creates a new related-foods service with dependencies
func NewRelatedFoodsService(
	store domain.FoodStore,
	cache domain.CacheRepository,
	config RelatedFoodsConfig,
) *RelatedFoodsService {
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultRelatedFoodTTL
	}
	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxRelated
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &RelatedFoodsService{
		store:      store,
		cache:      cache,
		cacheTTL:   cacheTTL,
		maxResults: maxResults,
		tiers:      relatedTiers,
		logger:     log.With(logger.String("component", "related_foods")),
		metrics:    config.Metrics,
	}
}

// GetRelatedFoods returns up to MaxResults approved foods related to food.
// It never fails: store errors degrade to fewer (or zero) results.
// Flow: cache -> aisle resolution -> signal check -> tiers -> cache -> return
func (s *RelatedFoodsService) GetRelatedFoods(ctx context.Context, food *domain.Food) (related []domain.RelatedFood) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("related foods lookup panicked", logger.Any("panic", r))
			related = []domain.RelatedFood{}
		}
	}()

	if food == nil || food.ID == "" {
		return []domain.RelatedFood{}
	}

	categoryTags := food.CategoryTags()
	directAisles := food.DirectAisleIDs()

	if cached, ok := s.getFromCache(ctx, food.ID); ok {
		return cached
	}

	v, _, _ := s.group.Do(food.ID, func() (interface{}, error) {
		return s.resolve(ctx, food.ID, categoryTags, directAisles), nil
	})
	shared, _ := v.([]domain.RelatedFood)

	related = make([]domain.RelatedFood, len(shared))
	copy(related, shared)
	return related
}

// GetRelatedFoodsByID loads the food and resolves its related foods
func (s *RelatedFoodsService) GetRelatedFoodsByID(ctx context.Context, foodID string) ([]domain.RelatedFood, error) {
	if foodID == "" {
		return nil, domain.ErrInvalidRequest
	}

	food, err := s.store.GetFood(ctx, foodID)
	if err != nil {
		if errors.Is(err, domain.ErrFoodNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	return s.GetRelatedFoods(ctx, food), nil
}

// Invalidate drops the cached related list for a food
func (s *RelatedFoodsService) Invalidate(ctx context.Context, foodID string) error {
	return s.cache.Delete(ctx, relatedCachePrefix+foodID)
}

func (s *RelatedFoodsService) resolve(ctx context.Context, foodID string, categoryTags, directAisles []string) []domain.RelatedFood {
	signals := &relatedSignals{
		excludeID:    foodID,
		categoryTags: categoryTags,
		aisleIDs:     s.resolveAisleIDs(ctx, foodID, directAisles),
	}

	results := make([]domain.RelatedFood, 0, s.maxResults)
	if len(signals.categoryTags) == 0 && len(signals.aisleIDs) == 0 {
		s.logger.Debug("related foods skipped, no category or aisle", logger.String("food_id", foodID))
		if ctx.Err() == nil {
			s.setInCache(ctx, foodID, results)
		}
		return results
	}

	seen := map[string]bool{foodID: true}

	for _, tier := range s.tiers {
		if len(results) >= s.maxResults {
			break
		}
		if !tier.ready(signals) {
			continue
		}

		candidates, err := s.store.FindRelatedCandidates(ctx, tier.query(signals, s.maxResults))
		if err != nil {
			s.logger.Warn("related foods tier failed",
				logger.String("tier", tier.name),
				logger.String("food_id", foodID),
				logger.Error(err))
			s.metrics.ObserveTier(tier.name, metrics.OutcomeError)
			continue
		}

		added := 0
		for _, candidate := range candidates {
			if len(results) >= s.maxResults {
				break
			}
			if candidate.ID == "" || seen[candidate.ID] {
				continue
			}
			seen[candidate.ID] = true
			results = append(results, candidate)
			added++
		}

		outcome := metrics.OutcomeHit
		if added == 0 {
			outcome = metrics.OutcomeEmpty
		}
		s.metrics.ObserveTier(tier.name, outcome)
		s.logger.Debug("related foods tier finished",
			logger.String("tier", tier.name),
			logger.String("food_id", foodID),
			logger.Int("candidates", len(candidates)),
			logger.Int("added", added))
	}

	s.metrics.ObserveRelatedResult(len(results))

	// A cancelled request may have cut tiers short; don't pin that for the TTL.
	if ctx.Err() == nil {
		s.setInCache(ctx, foodID, results)
	}
	return results
}

// resolveAisleIDs prefers aisles carried on the record, falling back to the membership table
func (s *RelatedFoodsService) resolveAisleIDs(ctx context.Context, foodID string, direct []string) []string {
	if len(direct) > 0 {
		return direct
	}

	ids, err := s.store.AisleIDsForFood(ctx, foodID)
	if err != nil {
		s.logger.Warn("aisle lookup failed",
			logger.String("food_id", foodID),
			logger.Error(err))
		return nil
	}
	return domain.UniqueStrings(ids)
}

func (s *RelatedFoodsService) getFromCache(ctx context.Context, foodID string) ([]domain.RelatedFood, bool) {
	data, err := s.cache.Get(ctx, relatedCachePrefix+foodID)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn("related foods cache read failed", logger.Error(err))
		}
		s.metrics.ObserveCache(relatedCacheName, false)
		return nil, false
	}

	var related []domain.RelatedFood
	if err := json.Unmarshal(data, &related); err != nil {
		s.logger.Warn("related foods cache entry unreadable",
			logger.String("food_id", foodID),
			logger.Error(err))
		s.metrics.ObserveCache(relatedCacheName, false)
		return nil, false
	}

	s.metrics.ObserveCache(relatedCacheName, true)
	if related == nil {
		related = []domain.RelatedFood{}
	}
	return related, true
}

func (s *RelatedFoodsService) setInCache(ctx context.Context, foodID string, related []domain.RelatedFood) {
	data, err := json.Marshal(related)
	if err != nil {
		s.logger.Warn("related foods cache encode failed", logger.Error(err))
		return
	}
	if err := s.cache.Set(ctx, relatedCachePrefix+foodID, data, s.cacheTTL); err != nil {
		s.logger.Warn("related foods cache write failed", logger.Error(err))
	}
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nakedpantry/backend/internal/domain"
	"github.com/nakedpantry/backend/internal/logger"
	"github.com/nakedpantry/backend/internal/metrics"
)

const (
	aisleCachePrefix     = "aisles:"
	aisleTreeCacheKey    = aisleCachePrefix + "tree"
	aisleFoodsCacheKey   = aisleCachePrefix + "foods:"
	aisleCacheName       = "aisles"
	defaultAisleCacheTTL = 5 * time.Minute
)

// AisleServiceConfig holds configuration for the aisle service
type AisleServiceConfig struct {
	CacheTTL time.Duration
	Logger   logger.Logger
	Metrics  *metrics.Metrics
}

// AisleService serves the aisle hierarchy and the foods shelved under each aisle
type AisleService struct {
	store    domain.AisleStore
	cache    domain.CacheRepository
	cacheTTL time.Duration
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewAisleService creates a new aisle service with dependencies
func NewAisleService(store domain.AisleStore, cache domain.CacheRepository, config AisleServiceConfig) *AisleService {
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultAisleCacheTTL
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &AisleService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log.With(logger.String("component", "aisles")),
		metrics:  config.Metrics,
	}
}

// BuildAisleTree turns flat aisle rows into a name-sorted forest.
// Rows whose parent is missing from the input become roots. Duplicate ids
// keep their first row, and each parent cycle is broken at its first row.
func BuildAisleTree(rows []domain.Aisle) []*domain.AisleNode {
	nodes := make(map[string]*domain.AisleNode, len(rows))
	ordered := make([]*domain.AisleNode, 0, len(rows))
	for _, row := range rows {
		if _, dup := nodes[row.ID]; dup {
			continue
		}
		node := &domain.AisleNode{Aisle: row, Children: []*domain.AisleNode{}}
		nodes[row.ID] = node
		ordered = append(ordered, node)
	}

	roots := make([]*domain.AisleNode, 0)
	for _, node := range ordered {
		parent, ok := nodes[node.ParentID]
		if node.ParentID == "" || !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	reached := make(map[*domain.AisleNode]bool, len(ordered))
	for _, root := range roots {
		markReached(root, reached)
	}
	for _, node := range ordered {
		if reached[node] {
			continue
		}
		parent := nodes[node.ParentID]
		parent.Children = removeNode(parent.Children, node)
		roots = append(roots, node)
		markReached(node, reached)
	}

	sortAisleNodes(roots)
	return roots
}

func markReached(node *domain.AisleNode, reached map[*domain.AisleNode]bool) {
	if reached[node] {
		return
	}
	reached[node] = true
	for _, child := range node.Children {
		markReached(child, reached)
	}
}

func removeNode(nodes []*domain.AisleNode, target *domain.AisleNode) []*domain.AisleNode {
	for i, n := range nodes {
		if n == target {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}

func sortAisleNodes(nodes []*domain.AisleNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
	for _, n := range nodes {
		sortAisleNodes(n.Children)
	}
}

// GetAisleHierarchy returns the aisle tree, cached for the configured TTL
func (s *AisleService) GetAisleHierarchy(ctx context.Context) ([]*domain.AisleNode, error) {
	var tree []*domain.AisleNode
	if s.readCache(ctx, aisleTreeCacheKey, &tree) {
		return tree, nil
	}

	rows, err := s.store.ListAisles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list aisles: %v", domain.ErrStoreFailure, err)
	}

	tree = BuildAisleTree(rows)
	s.writeCache(ctx, aisleTreeCacheKey, tree)
	return tree, nil
}

// GetFoodsForAisle returns approved foods shelved in the aisle or any of
// its descendants, cached per aisle id.
func (s *AisleService) GetFoodsForAisle(ctx context.Context, aisleID string) ([]domain.Food, error) {
	if aisleID == "" {
		return nil, domain.ErrInvalidRequest
	}

	key := aisleFoodsCacheKey + aisleID
	var foods []domain.Food
	if s.readCache(ctx, key, &foods) {
		return foods, nil
	}

	descendants, err := s.store.DescendantAisles(ctx, aisleID)
	if err != nil {
		return nil, fmt.Errorf("%w: descendants of %s: %v", domain.ErrStoreFailure, aisleID, err)
	}

	aisleIDs := make([]string, 0, len(descendants)+1)
	aisleIDs = append(aisleIDs, aisleID)
	for _, d := range descendants {
		aisleIDs = append(aisleIDs, d.ID)
	}
	aisleIDs = domain.UniqueStrings(aisleIDs)

	foodIDs, err := s.store.FoodIDsInAisles(ctx, aisleIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: aisle membership: %v", domain.ErrStoreFailure, err)
	}
	foodIDs = domain.UniqueStrings(foodIDs)

	foods = []domain.Food{}
	if len(foodIDs) > 0 {
		foods, err = s.store.ApprovedFoodsByIDs(ctx, foodIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: foods by id: %v", domain.ErrStoreFailure, err)
		}
		if foods == nil {
			foods = []domain.Food{}
		}
	}

	s.logger.Debug("resolved aisle foods",
		logger.String("aisle_id", aisleID),
		logger.Int("aisles", len(aisleIDs)),
		logger.Int("foods", len(foods)))

	s.writeCache(ctx, key, foods)
	return foods, nil
}

// InvalidateAisle drops the cached food list for one aisle
func (s *AisleService) InvalidateAisle(ctx context.Context, aisleID string) error {
	return s.cache.Delete(ctx, aisleFoodsCacheKey+aisleID)
}

// InvalidateAll drops the cached tree and every cached aisle food list
func (s *AisleService) InvalidateAll(ctx context.Context) error {
	return s.cache.DeletePrefix(ctx, aisleCachePrefix)
}

func (s *AisleService) readCache(ctx context.Context, key string, dest interface{}) bool {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn("aisle cache read failed", logger.String("key", key), logger.Error(err))
		}
		s.metrics.ObserveCache(aisleCacheName, false)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Warn("aisle cache entry unreadable", logger.String("key", key), logger.Error(err))
		s.metrics.ObserveCache(aisleCacheName, false)
		return false
	}
	s.metrics.ObserveCache(aisleCacheName, true)
	return true
}

func (s *AisleService) writeCache(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("aisle cache encode failed", logger.String("key", key), logger.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("aisle cache write failed", logger.String("key", key), logger.Error(err))
	}
}

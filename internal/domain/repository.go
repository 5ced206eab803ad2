package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque bytes; callers own serialization.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// FoodStore defines the food queries used by the related-foods resolver
type FoodStore interface {
	GetFood(ctx context.Context, id string) (*Food, error)
	AisleIDsForFood(ctx context.Context, foodID string) ([]string, error)
	FindRelatedCandidates(ctx context.Context, query RelatedQuery) ([]RelatedFood, error)
}

// AisleStore defines the aisle queries used by the aisle service
type AisleStore interface {
	ListAisles(ctx context.Context) ([]Aisle, error)
	// DescendantAisles returns every aisle below parentID, excluding parentID itself
	DescendantAisles(ctx context.Context, parentID string) ([]Aisle, error)
	FoodIDsInAisles(ctx context.Context, aisleIDs []string) ([]string, error)
	ApprovedFoodsByIDs(ctx context.Context, ids []string) ([]Food, error)
}

// IndicatorStore supplies additional ultra-processed marker phrases
type IndicatorStore interface {
	ListIndicators(ctx context.Context) ([]string, error)
}

// Store is implemented by backends that serve every query family
type Store interface {
	FoodStore
	AisleStore
	IndicatorStore
	Close() error
}

package rest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nakedpantry/backend/internal/domain"
)

const (
	foodSelect    = "id,name,brand,category,ingredients,nova_group,image_url,status,aisle_id,aisle:aisles!aisle_id(id,name)"
	relatedSelect = "id,name,brand,category,nova_group,image_url"
	aisleSelect   = "id,name,slug,parent_id"

	descendantsRPC = "get_aisle_descendants"
)

// Store serves every store interface through the REST client
type Store struct {
	client *Client
}

// NewStore wraps a client as a store
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// Close releases the client's idle connections
func (s *Store) Close() error {
	return s.client.Close()
}

// GetFood retrieves a food by id, whatever its status
func (s *Store) GetFood(ctx context.Context, id string) (*domain.Food, error) {
	params := url.Values{}
	params.Set("select", foodSelect)
	params.Set("id", "eq."+id)
	params.Set("limit", "1")

	var foods []domain.Food
	if err := s.client.get(ctx, "foods", params, &foods); err != nil {
		return nil, fmt.Errorf("failed to get food: %w", err)
	}
	if len(foods) == 0 {
		return nil, domain.ErrFoodNotFound
	}
	return &foods[0], nil
}

// AisleIDsForFood lists the aisles a food is shelved in
func (s *Store) AisleIDsForFood(ctx context.Context, foodID string) ([]string, error) {
	params := url.Values{}
	params.Set("select", "aisle_id")
	params.Set("food_id", "eq."+foodID)

	var rows []struct {
		AisleID string `json:"aisle_id"`
	}
	if err := s.client.get(ctx, "food_aisles", params, &rows); err != nil {
		return nil, fmt.Errorf("failed to list food aisles: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.AisleID)
	}
	return ids, nil
}

// FindRelatedCandidates runs one related-foods tier query.
// Approved status and self exclusion are always applied.
func (s *Store) FindRelatedCandidates(ctx context.Context, q domain.RelatedQuery) ([]domain.RelatedFood, error) {
	var foods []domain.RelatedFood
	if err := s.client.get(ctx, "foods", relatedParams(q), &foods); err != nil {
		return nil, fmt.Errorf("failed to find related foods: %w", err)
	}
	return foods, nil
}

func relatedParams(q domain.RelatedQuery) url.Values {
	params := url.Values{}
	sel := relatedSelect
	if len(q.AisleIDs) > 0 {
		sel += ",food_aisles!inner(aisle_id)"
		params.Set("food_aisles.aisle_id", inList(q.AisleIDs))
	}
	params.Set("select", sel)
	params.Set("status", "eq."+domain.FoodStatusApproved)
	params.Set("id", "neq."+q.ExcludeID)

	if len(q.CategoryTags) > 0 {
		conds := make([]string, 0, len(q.CategoryTags))
		for _, tag := range q.CategoryTags {
			conds = append(conds, "category.ilike."+quote("*"+tag+"*"))
		}
		params.Set("or", "("+strings.Join(conds, ",")+")")
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}

// ListAisles returns every aisle row
func (s *Store) ListAisles(ctx context.Context) ([]domain.Aisle, error) {
	params := url.Values{}
	params.Set("select", aisleSelect)

	var aisles []domain.Aisle
	if err := s.client.get(ctx, "aisles", params, &aisles); err != nil {
		return nil, fmt.Errorf("failed to list aisles: %w", err)
	}
	return aisles, nil
}

// DescendantAisles calls the server-side recursive descendant function
func (s *Store) DescendantAisles(ctx context.Context, parentID string) ([]domain.Aisle, error) {
	args := map[string]string{"parent_id": parentID}

	var aisles []domain.Aisle
	if err := s.client.rpc(ctx, descendantsRPC, args, &aisles); err != nil {
		return nil, fmt.Errorf("failed to list descendant aisles: %w", err)
	}
	return aisles, nil
}

// FoodIDsInAisles returns the food ids shelved in any of the aisles
func (s *Store) FoodIDsInAisles(ctx context.Context, aisleIDs []string) ([]string, error) {
	if len(aisleIDs) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("select", "food_id")
	params.Set("aisle_id", inList(aisleIDs))

	var rows []struct {
		FoodID string `json:"food_id"`
	}
	if err := s.client.get(ctx, "food_aisles", params, &rows); err != nil {
		return nil, fmt.Errorf("failed to list aisle members: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.FoodID)
	}
	return ids, nil
}

// foodWithSupermarkets is a food row with its nested supermarket join
type foodWithSupermarkets struct {
	domain.Food
	FoodSupermarkets []struct {
		Supermarket struct {
			Name string `json:"name"`
		} `json:"supermarkets"`
	} `json:"food_supermarkets"`
}

// ApprovedFoodsByIDs loads approved foods with their supermarket names
func (s *Store) ApprovedFoodsByIDs(ctx context.Context, ids []string) ([]domain.Food, error) {
	if len(ids) == 0 {
		return []domain.Food{}, nil
	}

	params := url.Values{}
	params.Set("select", foodSelect+",food_supermarkets(supermarkets(name))")
	params.Set("status", "eq."+domain.FoodStatusApproved)
	params.Set("id", inList(ids))
	params.Set("order", "name.asc")

	var rows []foodWithSupermarkets
	if err := s.client.get(ctx, "foods", params, &rows); err != nil {
		return nil, fmt.Errorf("failed to load foods: %w", err)
	}

	foods := make([]domain.Food, 0, len(rows))
	for _, r := range rows {
		food := r.Food
		for _, fs := range r.FoodSupermarkets {
			if fs.Supermarket.Name != "" {
				food.Supermarkets = append(food.Supermarkets, fs.Supermarket.Name)
			}
		}
		foods = append(foods, food)
	}
	return foods, nil
}

// ListIndicators returns the active ultra-processed marker phrases
func (s *Store) ListIndicators(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("select", "phrase")
	params.Set("active", "is.true")
	params.Set("order", "phrase.asc")

	var rows []struct {
		Phrase string `json:"phrase"`
	}
	if err := s.client.get(ctx, "ultra_processed_indicators", params, &rows); err != nil {
		return nil, fmt.Errorf("failed to list indicators: %w", err)
	}

	phrases := make([]string, 0, len(rows))
	for _, r := range rows {
		phrases = append(phrases, r.Phrase)
	}
	return phrases, nil
}

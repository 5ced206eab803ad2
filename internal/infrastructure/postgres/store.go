package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/nakedpantry/backend/internal/domain"
)

const foodColumns = `
	f.id::text AS id,
	f.name,
	COALESCE(f.brand, '') AS brand,
	COALESCE(f.category, '') AS category,
	COALESCE(f.ingredients, '') AS ingredients,
	COALESCE(f.nova_group, 0) AS nova_group,
	COALESCE(f.image_url, '') AS image_url,
	f.status,
	COALESCE(f.aisle_id::text, '') AS aisle_id`

const relatedColumns = `
	f.id::text AS id,
	f.name,
	COALESCE(f.brand, '') AS brand,
	COALESCE(f.category, '') AS category,
	COALESCE(f.nova_group, 0) AS nova_group,
	COALESCE(f.image_url, '') AS image_url`

// Store serves every store interface from one Postgres database
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new Postgres-backed store
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// GetFood retrieves a food by id, whatever its status
func (s *Store) GetFood(ctx context.Context, id string) (*domain.Food, error) {
	var food domain.Food
	query := `SELECT` + foodColumns + `
		FROM foods f
		WHERE f.id::text = $1`

	if err := s.db.GetContext(ctx, &food, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFoodNotFound
		}
		return nil, fmt.Errorf("failed to get food: %w", err)
	}
	return &food, nil
}

// AisleIDsForFood lists the aisles a food is shelved in
func (s *Store) AisleIDsForFood(ctx context.Context, foodID string) ([]string, error) {
	var ids []string
	query := `SELECT aisle_id::text FROM food_aisles WHERE food_id::text = $1`

	if err := s.db.SelectContext(ctx, &ids, query, foodID); err != nil {
		return nil, fmt.Errorf("failed to list food aisles: %w", err)
	}
	return ids, nil
}

// FindRelatedCandidates runs one related-foods tier query.
// Approved status and self exclusion are always applied.
func (s *Store) FindRelatedCandidates(ctx context.Context, q domain.RelatedQuery) ([]domain.RelatedFood, error) {
	query, args := buildRelatedQuery(q)

	var foods []domain.RelatedFood
	if err := s.db.SelectContext(ctx, &foods, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find related foods: %w", err)
	}
	return foods, nil
}

func buildRelatedQuery(q domain.RelatedQuery) (string, []interface{}) {
	args := []interface{}{domain.FoodStatusApproved, q.ExcludeID}

	var b strings.Builder
	b.WriteString(`SELECT DISTINCT` + relatedColumns + `
		FROM foods f`)
	if len(q.AisleIDs) > 0 {
		b.WriteString(`
		JOIN food_aisles fa ON fa.food_id = f.id`)
	}
	b.WriteString(`
		WHERE f.status = $1 AND f.id::text <> $2`)

	if len(q.AisleIDs) > 0 {
		args = append(args, pq.Array(q.AisleIDs))
		fmt.Fprintf(&b, ` AND fa.aisle_id::text = ANY($%d)`, len(args))
	}
	if len(q.CategoryTags) > 0 {
		args = append(args, pq.Array(likePatterns(q.CategoryTags)))
		fmt.Fprintf(&b, ` AND f.category ILIKE ANY($%d)`, len(args))
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	return b.String(), args
}

// likePatterns wraps each tag as a substring ILIKE pattern, escaping wildcards
func likePatterns(tags []string) []string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	patterns := make([]string, 0, len(tags))
	for _, tag := range tags {
		patterns = append(patterns, "%"+escaper.Replace(tag)+"%")
	}
	return patterns
}

// ListAisles returns every aisle row
func (s *Store) ListAisles(ctx context.Context) ([]domain.Aisle, error) {
	var aisles []domain.Aisle
	query := `
		SELECT id::text AS id, name, COALESCE(slug, '') AS slug, COALESCE(parent_id::text, '') AS parent_id
		FROM aisles`

	if err := s.db.SelectContext(ctx, &aisles, query); err != nil {
		return nil, fmt.Errorf("failed to list aisles: %w", err)
	}
	return aisles, nil
}

// DescendantAisles walks the aisle tree below parentID
func (s *Store) DescendantAisles(ctx context.Context, parentID string) ([]domain.Aisle, error) {
	var aisles []domain.Aisle
	query := `
		WITH RECURSIVE descendants AS (
			SELECT id, name, slug, parent_id FROM aisles WHERE parent_id::text = $1
			UNION
			SELECT a.id, a.name, a.slug, a.parent_id
			FROM aisles a
			JOIN descendants d ON a.parent_id = d.id
		)
		SELECT id::text AS id, name, COALESCE(slug, '') AS slug, COALESCE(parent_id::text, '') AS parent_id
		FROM descendants`

	if err := s.db.SelectContext(ctx, &aisles, query, parentID); err != nil {
		return nil, fmt.Errorf("failed to list descendant aisles: %w", err)
	}
	return aisles, nil
}

// FoodIDsInAisles returns the food ids shelved in any of the aisles
func (s *Store) FoodIDsInAisles(ctx context.Context, aisleIDs []string) ([]string, error) {
	if len(aisleIDs) == 0 {
		return nil, nil
	}

	var ids []string
	query := `SELECT food_id::text FROM food_aisles WHERE aisle_id::text = ANY($1)`

	if err := s.db.SelectContext(ctx, &ids, query, pq.Array(aisleIDs)); err != nil {
		return nil, fmt.Errorf("failed to list aisle members: %w", err)
	}
	return ids, nil
}

type supermarketRow struct {
	FoodID string `db:"food_id"`
	Name   string `db:"name"`
}

// ApprovedFoodsByIDs loads approved foods with their supermarket names
func (s *Store) ApprovedFoodsByIDs(ctx context.Context, ids []string) ([]domain.Food, error) {
	if len(ids) == 0 {
		return []domain.Food{}, nil
	}

	var foods []domain.Food
	query := `SELECT` + foodColumns + `
		FROM foods f
		WHERE f.status = $1 AND f.id::text = ANY($2)
		ORDER BY f.name`

	if err := s.db.SelectContext(ctx, &foods, query, domain.FoodStatusApproved, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to load foods: %w", err)
	}
	if len(foods) == 0 {
		return []domain.Food{}, nil
	}

	var rows []supermarketRow
	smQuery := `
		SELECT fs.food_id::text AS food_id, sm.name
		FROM food_supermarkets fs
		JOIN supermarkets sm ON sm.id = fs.supermarket_id
		WHERE fs.food_id::text = ANY($1)
		ORDER BY sm.name`

	if err := s.db.SelectContext(ctx, &rows, smQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to load food supermarkets: %w", err)
	}

	byFood := make(map[string][]string, len(foods))
	for _, r := range rows {
		byFood[r.FoodID] = append(byFood[r.FoodID], r.Name)
	}
	for i := range foods {
		foods[i].Supermarkets = byFood[foods[i].ID]
	}
	return foods, nil
}

// ListIndicators returns the active ultra-processed marker phrases
func (s *Store) ListIndicators(ctx context.Context) ([]string, error) {
	var phrases []string
	query := `SELECT phrase FROM ultra_processed_indicators WHERE active ORDER BY phrase`

	if err := s.db.SelectContext(ctx, &phrases, query); err != nil {
		return nil, fmt.Errorf("failed to list indicators: %w", err)
	}
	return phrases, nil
}

package domain

import "strings"

// FoodStatusApproved is the moderation status of foods visible to users
const FoodStatusApproved = "approved"

// AisleRef is the embedded aisle object some food rows carry
type AisleRef struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name,omitempty" db:"name"`
}

// Food represents a submitted food record.
// Category is a free-text, comma-separated tag list.
type Food struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Brand        string    `json:"brand,omitempty" db:"brand"`
	Category     string    `json:"category,omitempty" db:"category"`
	Ingredients  string    `json:"ingredients,omitempty" db:"ingredients"`
	NovaGroup    int       `json:"nova_group,omitempty" db:"nova_group"`
	ImageURL     string    `json:"image_url,omitempty" db:"image_url"`
	Status       string    `json:"status,omitempty" db:"status"`
	AisleID      string    `json:"aisle_id,omitempty" db:"aisle_id"`
	Aisle        *AisleRef `json:"aisle,omitempty" db:"-"`
	AisleIDs     []string  `json:"aisle_ids,omitempty" db:"-"`
	Supermarkets []string  `json:"supermarkets,omitempty" db:"-"`
}

// CategoryTags splits the category field on commas, trimming and dropping empties
func (f *Food) CategoryTags() []string {
	if f == nil || f.Category == "" {
		return nil
	}
	parts := strings.Split(f.Category, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// DirectAisleIDs returns the deduplicated aisle ids carried on the record
// itself (aisle_id, the embedded aisle, embedded membership rows), without
// consulting the membership table.
func (f *Food) DirectAisleIDs() []string {
	if f == nil {
		return nil
	}
	candidates := make([]string, 0, len(f.AisleIDs)+2)
	candidates = append(candidates, f.AisleID)
	if f.Aisle != nil {
		candidates = append(candidates, f.Aisle.ID)
	}
	candidates = append(candidates, f.AisleIDs...)
	return UniqueStrings(candidates)
}

// UniqueStrings returns the non-empty values of in, first occurrence wins
func UniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// RelatedFood is the trimmed food projection shown in "related" lists
type RelatedFood struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Brand     string `json:"brand,omitempty" db:"brand"`
	Category  string `json:"category,omitempty" db:"category"`
	NovaGroup int    `json:"nova_group,omitempty" db:"nova_group"`
	ImageURL  string `json:"image_url,omitempty" db:"image_url"`
}

// RelatedQuery describes one candidate lookup against the food store.
// Empty AisleIDs means no aisle constraint; empty CategoryTags means no
// category constraint. Approved status is always required.
type RelatedQuery struct {
	ExcludeID    string
	AisleIDs     []string
	CategoryTags []string
	Limit        int
}

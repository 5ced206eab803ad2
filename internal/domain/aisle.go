package domain

// Aisle is a flat aisle row. ParentID is empty for top-level aisles.
type Aisle struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Slug     string `json:"slug,omitempty" db:"slug"`
	ParentID string `json:"parent_id,omitempty" db:"parent_id"`
}

// AisleNode is an aisle with its resolved children
type AisleNode struct {
	Aisle
	Children []*AisleNode `json:"children"`
}

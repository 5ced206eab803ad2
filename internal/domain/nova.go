package domain

// NovaGroup is the 1-4 ordinal food-processing level
type NovaGroup int

const (
	NovaUnprocessed    NovaGroup = 1
	NovaCulinary       NovaGroup = 2
	NovaProcessed      NovaGroup = 3
	NovaUltraProcessed NovaGroup = 4
)

// String returns the human-readable label for the group
func (g NovaGroup) String() string {
	switch g {
	case NovaUnprocessed:
		return "unprocessed"
	case NovaCulinary:
		return "culinary ingredient"
	case NovaProcessed:
		return "processed"
	case NovaUltraProcessed:
		return "ultra-processed"
	default:
		return "unknown"
	}
}

// ClassificationDetails carries the evidence behind a classification
type ClassificationDetails struct {
	FoundIndicators []string `json:"foundIndicators"`
	CriticalCount   int      `json:"criticalCount"`
	IngredientCount int      `json:"ingredientCount"`
	Confidence      float64  `json:"confidence"`
}

// ClassificationResult is the outcome of classifying an ingredient list
type ClassificationResult struct {
	NovaGroup        NovaGroup             `json:"novaGroup"`
	Explanation      string                `json:"explanation"`
	Details          ClassificationDetails `json:"details"`
	ContainsSeedOils bool                  `json:"containsSeedOils"`
	Confidence       float64               `json:"confidence"`
}

// ClassifyRequest represents a classification request body
type ClassifyRequest struct {
	Ingredients string `json:"ingredients" binding:"max=20000"`
}

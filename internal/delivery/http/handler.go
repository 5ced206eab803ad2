package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nakedpantry/backend/internal/domain"
	"github.com/nakedpantry/backend/internal/logger"
)

const (
	serviceName    = "nakedpantry-backend"
	serviceVersion = "1.0.0"
)

// Classifier assigns NOVA groups to ingredient text
type Classifier interface {
	Classify(text string) domain.ClassificationResult
}

// RelatedFoodsFinder resolves related foods by food id
type RelatedFoodsFinder interface {
	GetRelatedFoodsByID(ctx context.Context, foodID string) ([]domain.RelatedFood, error)
}

// AisleBrowser serves the aisle tree and aisle food lists
type AisleBrowser interface {
	GetAisleHierarchy(ctx context.Context) ([]*domain.AisleNode, error)
	GetFoodsForAisle(ctx context.Context, aisleID string) ([]domain.Food, error)
	InvalidateAll(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	classifier Classifier
	related    RelatedFoodsFinder
	aisles     AisleBrowser
	log        logger.Logger
}

// NewHandler creates a new HTTP handler. Nil services answer 503.
func NewHandler(classifier Classifier, related RelatedFoodsFinder, aisles AisleBrowser, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		classifier: classifier,
		related:    related,
		aisles:     aisles,
		log:        log,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// ClassifyIngredients handles NOVA classification requests
func (h *Handler) ClassifyIngredients(c *gin.Context) {
	if h.classifier == nil {
		h.notConfigured(c, "classifier")
		return
	}

	var req domain.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	c.JSON(http.StatusOK, h.classifier.Classify(req.Ingredients))
}

// GetRelatedFoods handles related-food lookups for a food
func (h *Handler) GetRelatedFoods(c *gin.Context) {
	if h.related == nil {
		h.notConfigured(c, "related foods")
		return
	}

	foods, err := h.related.GetRelatedFoodsByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if foods == nil {
		foods = []domain.RelatedFood{}
	}

	c.JSON(http.StatusOK, gin.H{"foods": foods})
}

// GetAisles returns the aisle tree
func (h *Handler) GetAisles(c *gin.Context) {
	if h.aisles == nil {
		h.notConfigured(c, "aisles")
		return
	}

	tree, err := h.aisles.GetAisleHierarchy(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"aisles": tree})
}

// GetAisleFoods returns the approved foods in an aisle and its descendants
func (h *Handler) GetAisleFoods(c *gin.Context) {
	if h.aisles == nil {
		h.notConfigured(c, "aisles")
		return
	}

	foods, err := h.aisles.GetFoodsForAisle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if foods == nil {
		foods = []domain.Food{}
	}

	c.JSON(http.StatusOK, gin.H{"foods": foods})
}

// InvalidateAisleCache drops every cached aisle tree and aisle food list
func (h *Handler) InvalidateAisleCache(c *gin.Context) {
	if h.aisles == nil {
		h.notConfigured(c, "aisles")
		return
	}

	if err := h.aisles.InvalidateAll(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) notConfigured(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":      what + " service not configured",
		"request_id": requestID(c),
	})
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	_ = c.Error(err)

	message := http.StatusText(status)
	switch status {
	case http.StatusBadRequest, http.StatusNotFound:
		message = err.Error()
	}

	c.JSON(status, gin.H{
		"error":      message,
		"request_id": requestID(c),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFoodNotFound), errors.Is(err, domain.ErrAisleNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrStoreFailure), errors.Is(err, domain.ErrCacheUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

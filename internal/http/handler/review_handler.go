package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

// ReviewService fetches and stores reviews.
type ReviewService interface {
	Fetch(ctx context.Context) ([]integration.Review, error)
	Sync(ctx context.Context) (int, error)
	List(ctx context.Context, limit int) ([]integration.Review, error)
}

// ReviewHandler serves review endpoints.
type ReviewHandler struct {
	Reviews ReviewService
	Logger  *zap.Logger
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(reviews ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews, Logger: logger}
}

// Sync pulls live reviews into storage.
func (h *ReviewHandler) Sync(c *gin.Context) {
	n, err := h.Reviews.Sync(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": n})
}

// Preview returns live reviews without storing them.
func (h *ReviewHandler) Preview(c *gin.Context) {
	reviews, err := h.Reviews.Fetch(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// List returns stored reviews for the public site.
func (h *ReviewHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "limit must be a positive integer."})
			return
		}
		limit = n
	}
	reviews, err := h.Reviews.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

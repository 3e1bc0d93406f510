package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LocationResolver resolves the Square location to charge against.
type LocationResolver interface {
	ResolveLocationID(ctx context.Context, accessToken string) (string, error)
}

// PaymentHandler serves payment configuration endpoints.
type PaymentHandler struct {
	Resolver LocationResolver
	Logger   *zap.Logger
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(resolver LocationResolver, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Resolver: resolver, Logger: logger}
}

// Location returns the resolved Square location id.
func (h *PaymentHandler) Location(c *gin.Context) {
	id, err := h.Resolver.ResolveLocationID(c.Request.Context(), "")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location_id": id})
}

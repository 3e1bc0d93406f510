package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/service/integration"
)

// ConnectService runs the OAuth connect flows.
type ConnectService interface {
	StartGoogle(ctx context.Context) (string, error)
	CompleteGoogle(ctx context.Context, state, code string) error
	StartSquare(ctx context.Context) (string, error)
	CompleteSquare(ctx context.Context, state, code string) error
	Status(ctx context.Context, service string) (integration.Status, error)
}

// IntegrationHandler serves the admin integration endpoints.
type IntegrationHandler struct {
	Connect ConnectService
	Logger  *zap.Logger
}

// NewIntegrationHandler constructs an IntegrationHandler.
func NewIntegrationHandler(connect ConnectService, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{Connect: connect, Logger: logger}
}

// GoogleConnect redirects the admin to Google's consent screen.
func (h *IntegrationHandler) GoogleConnect(c *gin.Context) {
	h.redirect(c, h.Connect.StartGoogle)
}

// GoogleCallback completes the Google connect flow.
func (h *IntegrationHandler) GoogleCallback(c *gin.Context) {
	h.callback(c, h.Connect.CompleteGoogle)
}

// SquareConnect redirects the admin to Square's consent screen.
func (h *IntegrationHandler) SquareConnect(c *gin.Context) {
	h.redirect(c, h.Connect.StartSquare)
}

// SquareCallback completes the Square connect flow.
func (h *IntegrationHandler) SquareCallback(c *gin.Context) {
	h.callback(c, h.Connect.CompleteSquare)
}

func (h *IntegrationHandler) redirect(c *gin.Context, start func(context.Context) (string, error)) {
	authURL, err := start(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

func (h *IntegrationHandler) callback(c *gin.Context, complete func(ctx context.Context, state, code string) error) {
	if errCode := c.Query("error"); errCode != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access_denied", "error_description": errCode})
		return
	}
	if err := complete(c.Request.Context(), c.Query("state"), c.Query("code")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

// Status reports a service connection.
func (h *IntegrationHandler) Status(c *gin.Context) {
	status, err := h.Connect.Status(c.Request.Context(), c.Param("service"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/credential"
	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

// respondError maps integration failures onto HTTP responses. Not-found
// conditions, re-authorization and upstream failures stay distinguishable so
// the admin UI can tell "connect again" from "try later".
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if logger == nil {
		logger = zap.L()
	}
	var upstream *integration.UpstreamError
	switch {
	case errors.Is(err, integration.ErrInvalidState), errors.Is(err, integration.ErrInvalidRequest):
		logger.Warn("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
	case errors.Is(err, integration.ErrTokenNotFound), errors.Is(err, integration.ErrNoRefreshToken):
		logger.Warn("integration not connected", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "not_connected", "error_description": err.Error()})
	case errors.Is(err, integration.ErrDataUnavailable):
		logger.Warn("integration data unavailable", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "data_unavailable", "error_description": err.Error()})
	case errors.Is(err, integration.ErrReauthorizationRequired):
		logger.Warn("integration needs reauthorization", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "reauthorization_required", "error_description": "Reconnect the integration."})
	case errors.As(err, &upstream):
		logger.Error("upstream api failure", zap.String("provider", upstream.Provider), zap.Int("upstream_status", upstream.Status), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_error", "error_description": upstream.Message, "upstream_status": upstream.Status})
	case errors.Is(err, integration.ErrUnexpectedResponse):
		logger.Error("unexpected upstream response", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_error", "error_description": "Unexpected response from provider."})
	case errors.Is(err, integration.ErrNotConfigured), errors.Is(err, credential.ErrInvalidKey):
		logger.Error("integration not configured", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "not_configured", "error_description": err.Error()})
	case errors.Is(err, credential.ErrMalformedSecret), errors.Is(err, credential.ErrDecrypt):
		logger.Error("stored credential unreadable", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credential_error", "error_description": "Stored credential could not be decrypted."})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
	}
}

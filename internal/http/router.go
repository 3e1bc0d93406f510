package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/config"
	"github.com/smallbiznis/homeservice-site/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/homeservice-site/internal/http/middleware"
	"github.com/smallbiznis/homeservice-site/internal/middleware"
)

// Handlers groups the route handlers.
type Handlers struct {
	Integrations *handler.IntegrationHandler
	Reviews      *handler.ReviewHandler
	Payments     *handler.PaymentHandler
	Uploads      *handler.UploadHandler
}

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, h Handlers, auth *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/reviews", h.Reviews.List)

	admin := r.Group("/admin", auth.RequireAdmin)
	{
		integrations := admin.Group("/integrations")
		{
			integrations.GET("/google/connect", h.Integrations.GoogleConnect)
			integrations.GET("/square/connect", h.Integrations.SquareConnect)
			integrations.GET("/:service/status", h.Integrations.Status)
		}

		reviews := admin.Group("/reviews")
		{
			reviews.POST("/sync", h.Reviews.Sync)
			reviews.GET("/preview", h.Reviews.Preview)
		}

		admin.GET("/payments/location", h.Payments.Location)
		admin.POST("/uploads", h.Uploads.Upload)
	}

	// Providers redirect the browser here without the admin bearer token; the
	// single-use state value binds the callback to a connect started by an admin.
	r.GET("/admin/integrations/google/callback", h.Integrations.GoogleCallback)
	r.GET("/admin/integrations/square/callback", h.Integrations.SquareCallback)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}

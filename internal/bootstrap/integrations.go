// Package bootstrap reports integration readiness when the process starts.
// Integration secrets are validated lazily, so nothing here fails startup.
package bootstrap

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/config"
	"github.com/smallbiznis/homeservice-site/internal/credential"
	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
	"github.com/smallbiznis/homeservice-site/internal/repository"
)

// KeyValidator reports whether the encryption key is usable.
type KeyValidator interface {
	Validate() error
}

// Finding is one readiness observation.
type Finding struct {
	Component string
	Message   string
}

// ReportIntegrations logs readiness findings on start.
func ReportIntegrations(lc fx.Lifecycle, cfg config.Config, cipher *credential.Cipher, tokens repository.TokenRepository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			findings := Check(ctx, cfg, cipher, tokens, time.Now())
			for _, f := range findings {
				logger.Warn("integration not ready", zap.String("component", f.Component), zap.String("detail", f.Message))
			}
			if len(findings) == 0 {
				logger.Info("integrations ready")
			}
			return nil
		},
	})
}

// Check inspects configuration and stored tokens.
func Check(ctx context.Context, cfg config.Config, cipher KeyValidator, tokens repository.TokenRepository, now time.Time) []Finding {
	var out []Finding
	add := func(component, msg string) {
		out = append(out, Finding{Component: component, Message: msg})
	}

	if err := cipher.Validate(); err != nil {
		add("encryption", err.Error())
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" || cfg.GoogleRedirectURI == "" {
		add(integration.ServiceGoogle, "GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URI are required to connect")
	}
	if cfg.SupabaseJWTSecret == "" {
		add("admin_auth", "SUPABASE_JWT_SECRET is not set; admin routes reject every request")
	}
	if cfg.BlobBucket == "" {
		add("uploads", "BLOB_BUCKET is not set; uploads are disabled")
	}

	for _, service := range []string{integration.ServiceGoogle, integration.ServiceSquare} {
		if service == integration.ServiceSquare && cfg.SquareAccessToken != "" {
			continue
		}
		record, err := tokens.Get(ctx, service)
		switch {
		case errors.Is(err, integration.ErrTokenNotFound):
			add(service, "not connected")
		case err != nil:
			add(service, "token lookup failed: "+err.Error())
		case record.Expired(now, 0) && !record.HasRefreshToken():
			add(service, "token expired and cannot be refreshed; reconnect")
		}
	}
	return out
}

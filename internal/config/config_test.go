package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/homeservice-site/internal/config"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/site")
	t.Setenv("SQUARE_ENVIRONMENT", "")
	t.Setenv("REFRESH_SKEW", "")
	t.Setenv("SQUARE_API_VERSION", "")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "")
	t.Setenv("CORS_MAX_AGE", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 1.0, cfg.TelemetrySampleRatio)
	require.Equal(t, 10*time.Minute, cfg.CORSMaxAge)
	require.Equal(t, config.SquareSandbox, cfg.SquareEnvironment)
	require.Equal(t, "https://connect.squareupsandbox.com", cfg.SquareBaseURL())
	require.Equal(t, time.Duration(0), cfg.RefreshSkew)
	require.Equal(t, "2024-10-17", cfg.SquareAPIVersion)
	require.EqualValues(t, 10<<20, cfg.UploadMaxBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/site")
	t.Setenv("SQUARE_ENVIRONMENT", "Production")
	t.Setenv("REFRESH_SKEW", "2m")
	t.Setenv("ADMIN_EMAILS", "owner@example.com, ops@example.com")
	t.Setenv("BLOB_PUBLIC_BASE_URL", "https://media.example.com/")
	t.Setenv("SQUARE_REDIRECT_URI", " https://example.com/admin/integrations/square/callback ")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("CORS_MAX_AGE", "1h")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.SquareProduction, cfg.SquareEnvironment)
	require.Equal(t, "https://connect.squareup.com", cfg.SquareBaseURL())
	require.Equal(t, 2*time.Minute, cfg.RefreshSkew)
	require.Equal(t, []string{"owner@example.com", "ops@example.com"}, cfg.AdminEmails)
	require.Equal(t, "https://media.example.com", cfg.BlobPublicBaseURL)
	require.Equal(t, "https://example.com/admin/integrations/square/callback", cfg.SquareRedirectURI)
	require.Equal(t, 0.25, cfg.TelemetrySampleRatio)
	require.Equal(t, time.Hour, cfg.CORSMaxAge)
}

func TestLoadRejectsOutOfRangeSampleRatio(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/site")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 1.0, cfg.TelemetrySampleRatio)
}

func TestNormalizeSquareEnvironment(t *testing.T) {
	cases := map[string]string{
		"production":   config.SquareProduction,
		"PRODUCTION":   config.SquareProduction,
		" production ": config.SquareProduction,
		"sandbox":      config.SquareSandbox,
		"":             config.SquareSandbox,
		"staging":      config.SquareSandbox,
	}
	for in, want := range cases {
		require.Equal(t, want, config.NormalizeSquareEnvironment(in), in)
	}
}

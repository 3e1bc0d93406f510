package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Square environments.
const (
	SquareSandbox    = "sandbox"
	SquareProduction = "production"
)

// Config contains runtime configuration values.
type Config struct {
	Environment       string
	HTTPPort          string
	DatabaseURL       string
	ServiceName       string
	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool
	// TelemetrySampleRatio is the share of root traces kept, in [0, 1].
	TelemetrySampleRatio float64

	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EncryptionKey is the hex-encoded AES-256 key for tokens at rest. It is
	// validated on first use, not here.
	EncryptionKey string
	RefreshSkew   time.Duration

	SquareAccessToken       string
	SquareLocationID        string
	SquareEnvironment       string
	SquareApplicationID     string
	SquareApplicationSecret string
	SquareRedirectURI       string
	SquareAPIVersion        string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	SupabaseURL       string
	SupabaseJWTSecret string
	AdminEmails       []string

	BlobBucket          string
	BlobRegion          string
	BlobEndpoint        string
	BlobAccessKeyID     string
	BlobSecretAccessKey string
	BlobPublicBaseURL   string
	UploadMaxBytes      int64
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:       getEnv("APP_ENV", "development"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ServiceName:       getEnv("SERVICE_NAME", "homeservice-site"),
		RateLimitRPM:      getInt("RATE_LIMIT_RPM", 300),
		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		TelemetrySampleRatio: getRatio("OTEL_TRACES_SAMPLER_ARG", 1),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", nil),
		CORSAllowedMethods: getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders: getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSMaxAge:         getDuration("CORS_MAX_AGE", 10*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		EncryptionKey: strings.TrimSpace(os.Getenv("ENCRYPTION_KEY")),
		RefreshSkew:   getDuration("REFRESH_SKEW", 0),

		SquareAccessToken:       strings.TrimSpace(os.Getenv("SQUARE_ACCESS_TOKEN")),
		SquareLocationID:        strings.TrimSpace(os.Getenv("SQUARE_LOCATION_ID")),
		SquareEnvironment:       NormalizeSquareEnvironment(os.Getenv("SQUARE_ENVIRONMENT")),
		SquareApplicationID:     strings.TrimSpace(os.Getenv("SQUARE_APPLICATION_ID")),
		SquareApplicationSecret: strings.TrimSpace(os.Getenv("SQUARE_APPLICATION_SECRET")),
		SquareRedirectURI:       strings.TrimSpace(os.Getenv("SQUARE_REDIRECT_URI")),
		SquareAPIVersion:        getEnv("SQUARE_API_VERSION", "2024-10-17"),

		GoogleClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		GoogleRedirectURI:  strings.TrimSpace(os.Getenv("GOOGLE_REDIRECT_URI")),

		SupabaseURL:       strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		AdminEmails:       getList("ADMIN_EMAILS", nil),

		BlobBucket:          strings.TrimSpace(os.Getenv("BLOB_BUCKET")),
		BlobRegion:          getEnv("BLOB_REGION", "auto"),
		BlobEndpoint:        strings.TrimSpace(os.Getenv("BLOB_ENDPOINT")),
		BlobAccessKeyID:     os.Getenv("BLOB_ACCESS_KEY_ID"),
		BlobSecretAccessKey: os.Getenv("BLOB_SECRET_ACCESS_KEY"),
		BlobPublicBaseURL:   strings.TrimRight(strings.TrimSpace(os.Getenv("BLOB_PUBLIC_BASE_URL")), "/"),
		UploadMaxBytes:      int64(getInt("UPLOAD_MAX_BYTES", 10<<20)),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RefreshSkew < 0 {
		cfg.RefreshSkew = 0
	}

	return cfg, nil
}

// NormalizeSquareEnvironment maps the raw selector onto a known environment.
// Anything other than "production" (case-insensitive) selects the sandbox.
func NormalizeSquareEnvironment(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), SquareProduction) {
		return SquareProduction
	}
	return SquareSandbox
}

// SquareBaseURL returns the API host for the configured Square environment.
func (c Config) SquareBaseURL() string {
	if NormalizeSquareEnvironment(c.SquareEnvironment) == SquareProduction {
		return "https://connect.squareup.com"
	}
	return "https://connect.squareupsandbox.com"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

// getRatio reads a float in [0, 1]; anything else yields def.
func getRatio(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && f >= 0 && f <= 1 {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		var cleaned []string
		for _, p := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}

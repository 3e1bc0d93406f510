package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/adapter/blob"
	cacheadapter "github.com/smallbiznis/homeservice-site/internal/adapter/cache"
	"github.com/smallbiznis/homeservice-site/internal/adapter/gbp"
	oauthadapter "github.com/smallbiznis/homeservice-site/internal/adapter/oauth"
	squareadapter "github.com/smallbiznis/homeservice-site/internal/adapter/square"
	"github.com/smallbiznis/homeservice-site/internal/bootstrap"
	"github.com/smallbiznis/homeservice-site/internal/config"
	"github.com/smallbiznis/homeservice-site/internal/credential"
	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
	httptransport "github.com/smallbiznis/homeservice-site/internal/http"
	"github.com/smallbiznis/homeservice-site/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/homeservice-site/internal/http/middleware"
	"github.com/smallbiznis/homeservice-site/internal/jwt"
	apimiddleware "github.com/smallbiznis/homeservice-site/internal/middleware"
	"github.com/smallbiznis/homeservice-site/internal/repository"
	"github.com/smallbiznis/homeservice-site/internal/server"
	integrationsvc "github.com/smallbiznis/homeservice-site/internal/service/integration"
	"github.com/smallbiznis/homeservice-site/internal/service/payments"
	"github.com/smallbiznis/homeservice-site/internal/service/reviews"
	"github.com/smallbiznis/homeservice-site/internal/service/token"
	"github.com/smallbiznis/homeservice-site/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newRedisClient,
			newOutboundHTTPClient,
			newCipher,
			newTokenRepository,
			newReviewRepository,
			newOAuthStateStore,
			newGoogleClient,
			newSquareOAuthClient,
			newTokenManager,
			newBusinessProfileClient,
			newSquareAPIClient,
			newReviewService,
			newPaymentResolver,
			newIntegrationService,
			newBlobStore,
			newHandlers,
			newAuthMiddleware,
			newRateLimiter,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.ReportIntegrations, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	if err := repository.ApplyMigrations(cfg.DatabaseURL); err != nil {
		return nil, err
	}
	logger.Info("database migrations applied")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newOutboundHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

func newCipher(cfg config.Config) *credential.Cipher {
	return credential.NewCipher(cfg.EncryptionKey)
}

func newTokenRepository(pool *pgxpool.Pool, cipher *credential.Cipher, node *snowflake.Node) repository.TokenRepository {
	return repository.NewPostgresTokenRepo(pool, cipher, node)
}

func newReviewRepository(pool *pgxpool.Pool, node *snowflake.Node) repository.ReviewRepository {
	return repository.NewPostgresReviewRepo(pool, node)
}

func newOAuthStateStore(client redis.UniversalClient) repository.OAuthStateStore {
	return cacheadapter.NewRedisStateStore(client)
}

func newGoogleClient(cfg config.Config, httpClient *http.Client) *oauthadapter.GoogleClient {
	return oauthadapter.NewGoogleClient(oauthadapter.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
		HTTPClient:   httpClient,
	})
}

func newSquareOAuthClient(cfg config.Config, httpClient *http.Client) *oauthadapter.SquareClient {
	return oauthadapter.NewSquareClient(oauthadapter.SquareConfig{
		ApplicationID:     cfg.SquareApplicationID,
		ApplicationSecret: cfg.SquareApplicationSecret,
		RedirectURI:       cfg.SquareRedirectURI,
		BaseURL:           cfg.SquareBaseURL(),
		APIVersion:        cfg.SquareAPIVersion,
	}, httpClient)
}

func newTokenManager(cfg config.Config, store repository.TokenRepository, cipher *credential.Cipher, google *oauthadapter.GoogleClient, square *oauthadapter.SquareClient, logger *zap.Logger) *token.Manager {
	refreshers := map[string]token.Refresher{
		integration.ServiceGoogle: google,
	}
	if square.Configured() {
		refreshers[integration.ServiceSquare] = square
	}
	return token.NewManager(store, cipher, refreshers,
		token.WithSkew(cfg.RefreshSkew),
		token.WithLogger(logger),
	)
}

func newBusinessProfileClient(httpClient *http.Client, logger *zap.Logger) *gbp.Client {
	return gbp.NewClient(httpClient, gbp.Endpoints{}, gbp.WithLogger(logger))
}

func newSquareAPIClient(cfg config.Config, httpClient *http.Client) *squareadapter.Client {
	return squareadapter.NewClient(cfg.SquareBaseURL(), cfg.SquareAPIVersion, httpClient)
}

func newReviewService(tokens *token.Manager, profile *gbp.Client, repo repository.ReviewRepository, logger *zap.Logger) *reviews.Service {
	return reviews.NewService(tokens, profile, repo, logger)
}

func newPaymentResolver(cfg config.Config, tokens *token.Manager, locations *squareadapter.Client, logger *zap.Logger) *payments.Resolver {
	return payments.NewResolver(payments.Static{
		AccessToken: cfg.SquareAccessToken,
		LocationID:  cfg.SquareLocationID,
	}, tokens, locations, logger)
}

func newIntegrationService(google *oauthadapter.GoogleClient, square *oauthadapter.SquareClient, locations *squareadapter.Client, states repository.OAuthStateStore, tokens *token.Manager, logger *zap.Logger) *integrationsvc.Service {
	return integrationsvc.NewService(google, square, locations, states, tokens, logger)
}

func newBlobStore(cfg config.Config, node *snowflake.Node) (*blob.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return blob.New(ctx, blob.Config{
		Bucket:          cfg.BlobBucket,
		Region:          cfg.BlobRegion,
		Endpoint:        cfg.BlobEndpoint,
		AccessKeyID:     cfg.BlobAccessKeyID,
		SecretAccessKey: cfg.BlobSecretAccessKey,
		PublicBaseURL:   cfg.BlobPublicBaseURL,
	}, node)
}

func newHandlers(cfg config.Config, connect *integrationsvc.Service, reviewSvc *reviews.Service, resolver *payments.Resolver, store *blob.Store, logger *zap.Logger) httptransport.Handlers {
	return httptransport.Handlers{
		Integrations: handler.NewIntegrationHandler(connect, logger),
		Reviews:      handler.NewReviewHandler(reviewSvc, logger),
		Payments:     handler.NewPaymentHandler(resolver, logger),
		Uploads:      handler.NewUploadHandler(store, cfg.UploadMaxBytes, logger),
	}
}

func newAuthMiddleware(cfg config.Config, logger *zap.Logger) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{
		Verifier:      jwt.NewVerifier(cfg.SupabaseJWTSecret, cfg.SupabaseURL),
		AllowedEmails: cfg.AdminEmails,
		Logger:        logger,
	}
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}

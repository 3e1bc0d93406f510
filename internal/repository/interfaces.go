package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// UpsertTokenParams holds plaintext token material for one service.
// LocationID is left untouched on conflict when nil.
type UpsertTokenParams struct {
	Service      string
	AccessToken  string
	RefreshToken *string
	LocationID   *string
	ExpiresAt    time.Time
}

// TokenRepository persists one encrypted OAuth token record per service.
type TokenRepository interface {
	Upsert(ctx context.Context, params UpsertTokenParams) error
	// Get returns the record with tokens still encrypted, or
	// integration.ErrTokenNotFound.
	Get(ctx context.Context, service string) (integration.OAuthTokenRecord, error)
}

// ReviewRepository stores normalized reviews keyed by external id.
type ReviewRepository interface {
	UpsertMany(ctx context.Context, reviews []integration.Review) (int, error)
	List(ctx context.Context, limit int) ([]integration.Review, error)
}

// OAuthStateStore persists short-lived authorization state values.
type OAuthStateStore interface {
	SaveState(ctx context.Context, key string, data integration.OAuthState, ttl time.Duration) error
	GetState(ctx context.Context, key string) (*integration.OAuthState, error)
	DeleteState(ctx context.Context, key string) error
}

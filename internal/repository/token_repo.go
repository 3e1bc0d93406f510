package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

// SecretCipher encrypts token material before it reaches the database.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
}

// PostgresTokenRepo implements TokenRepository.
type PostgresTokenRepo struct {
	db     DBTX
	cipher SecretCipher
	node   *snowflake.Node
}

var _ TokenRepository = (*PostgresTokenRepo)(nil)

func NewPostgresTokenRepo(db DBTX, cipher SecretCipher, node *snowflake.Node) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db, cipher: cipher, node: node}
}

const upsertTokenSQL = `INSERT INTO oauth_tokens (id, service, access_token, refresh_token, location_id, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (service) DO UPDATE SET
	access_token = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	location_id = COALESCE(EXCLUDED.location_id, oauth_tokens.location_id),
	expires_at = EXCLUDED.expires_at,
	updated_at = now()`

func (r *PostgresTokenRepo) Upsert(ctx context.Context, p UpsertTokenParams) error {
	service := strings.TrimSpace(p.Service)
	if service == "" {
		return fmt.Errorf("upsert token: %w", integration.ErrInvalidRequest)
	}

	access, err := r.cipher.Encrypt(p.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}

	var refresh *string
	if p.RefreshToken != nil {
		enc, err := r.cipher.Encrypt(*p.RefreshToken)
		if err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
		refresh = &enc
	}

	if _, err := r.db.Exec(ctx, upsertTokenSQL,
		r.node.Generate().Int64(),
		service,
		access,
		refresh,
		p.LocationID,
		p.ExpiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

const getTokenSQL = `SELECT id, service, access_token, refresh_token, location_id, expires_at, created_at, updated_at
FROM oauth_tokens WHERE service = $1`

func (r *PostgresTokenRepo) Get(ctx context.Context, service string) (integration.OAuthTokenRecord, error) {
	var rec integration.OAuthTokenRecord
	err := r.db.QueryRow(ctx, getTokenSQL, strings.TrimSpace(service)).Scan(
		&rec.ID,
		&rec.Service,
		&rec.AccessToken,
		&rec.RefreshToken,
		&rec.LocationID,
		&rec.ExpiresAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return integration.OAuthTokenRecord{}, fmt.Errorf("token %s: %w", service, integration.ErrTokenNotFound)
		}
		return integration.OAuthTokenRecord{}, fmt.Errorf("get token: %w", err)
	}
	return rec, nil
}

// Package token keeps stored OAuth credentials usable: it persists new token
// pairs and hands out access tokens, refreshing them once they expire.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
	"github.com/smallbiznis/homeservice-site/internal/repository"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (integration.Token, error)
}

// Decrypter reverses the at-rest encryption of stored secrets.
type Decrypter interface {
	Decrypt(secret string) (string, error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSkew treats tokens as expired skew before their recorded expiry.
func WithSkew(skew time.Duration) Option {
	return func(m *Manager) {
		if skew > 0 {
			m.skew = skew
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager owns the token lifecycle for every connected service.
//
// Each call re-reads storage. Check-then-refresh is not serialized: two
// concurrent callers holding an expired token may both refresh and the last
// write wins.
type Manager struct {
	store      repository.TokenRepository
	cipher     Decrypter
	refreshers map[string]Refresher
	now        func() time.Time
	skew       time.Duration
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewManager wires a Manager. refreshers is keyed by service name; services
// without an entry cannot be refreshed.
func NewManager(store repository.TokenRepository, cipher Decrypter, refreshers map[string]Refresher, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		cipher:     cipher,
		refreshers: refreshers,
		now:        time.Now,
		logger:     zap.L(),
		tracer:     otel.Tracer("github.com/smallbiznis/homeservice-site/internal/service/token"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.refreshers == nil {
		m.refreshers = map[string]Refresher{}
	}
	return m
}

// SaveTokens stores a token pair for service, replacing any previous one.
// A previously stored location id is kept.
func (m *Manager) SaveTokens(ctx context.Context, service, accessToken string, refreshToken *string, expiresAt time.Time) error {
	return m.SaveTokensWithLocation(ctx, service, accessToken, refreshToken, expiresAt, nil)
}

// SaveTokensWithLocation is SaveTokens plus the merchant location bound to the
// connection. A nil locationID leaves the stored one untouched.
func (m *Manager) SaveTokensWithLocation(ctx context.Context, service, accessToken string, refreshToken *string, expiresAt time.Time, locationID *string) error {
	return m.store.Upsert(ctx, repository.UpsertTokenParams{
		Service:      service,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		LocationID:   locationID,
		ExpiresAt:    expiresAt,
	})
}

// GetValidToken returns a plaintext access token for service, refreshing and
// persisting a new one when the stored token has expired.
func (m *Manager) GetValidToken(ctx context.Context, service string) (string, error) {
	record, err := m.store.Get(ctx, service)
	if err != nil {
		return "", err
	}

	if !record.Expired(m.now(), m.skew) {
		access, err := m.cipher.Decrypt(record.AccessToken)
		if err != nil {
			return "", fmt.Errorf("decrypt access token: %w", err)
		}
		return access, nil
	}

	if !record.HasRefreshToken() {
		return "", fmt.Errorf("%s: %w", service, integration.ErrNoRefreshToken)
	}
	refresher, ok := m.refreshers[service]
	if !ok || refresher == nil {
		return "", fmt.Errorf("%s token refresh: %w", service, integration.ErrNotConfigured)
	}

	refreshToken, err := m.cipher.Decrypt(*record.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token: %w", err)
	}

	ctx, span := m.tracer.Start(ctx, "token.refresh", trace.WithAttributes(attribute.String("integration.service", service)))
	defer span.End()

	fresh, err := refresher.Refresh(ctx, refreshToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		if errors.Is(err, integration.ErrReauthorizationRequired) {
			m.logger.Warn("refresh token rejected", zap.String("service", service))
		}
		return "", fmt.Errorf("refresh %s token: %w", service, err)
	}

	next := refreshToken
	if fresh.RefreshToken != "" {
		next = fresh.RefreshToken
	}
	if err := m.SaveTokens(ctx, service, fresh.AccessToken, &next, fresh.ExpiresAt); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}

	m.logger.Info("token refreshed",
		zap.String("service", service),
		zap.Time("expires_at", fresh.ExpiresAt),
	)
	return fresh.AccessToken, nil
}

// Record returns the stored record for service with secrets still encrypted.
func (m *Manager) Record(ctx context.Context, service string) (integration.OAuthTokenRecord, error) {
	return m.store.Get(ctx, service)
}

// DecryptRecord returns a copy of record with its secrets in plaintext.
func (m *Manager) DecryptRecord(record integration.OAuthTokenRecord) (integration.OAuthTokenRecord, error) {
	access, err := m.cipher.Decrypt(record.AccessToken)
	if err != nil {
		return integration.OAuthTokenRecord{}, fmt.Errorf("decrypt access token: %w", err)
	}
	out := record
	out.AccessToken = access
	if record.HasRefreshToken() {
		refresh, err := m.cipher.Decrypt(*record.RefreshToken)
		if err != nil {
			return integration.OAuthTokenRecord{}, fmt.Errorf("decrypt refresh token: %w", err)
		}
		out.RefreshToken = &refresh
	}
	return out, nil
}

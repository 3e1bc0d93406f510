// Package payments resolves credentials for the Square commerce API.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

// TokenSource reads the stored Square token record.
type TokenSource interface {
	GetValidToken(ctx context.Context, service string) (string, error)
	Record(ctx context.Context, service string) (integration.OAuthTokenRecord, error)
}

// LocationLister lists the merchant's business locations.
type LocationLister interface {
	ListLocations(ctx context.Context, accessToken string) ([]integration.PaymentLocation, error)
}

// Static holds operator-provided overrides. Empty values are unset.
type Static struct {
	AccessToken string
	LocationID  string
}

// Resolver picks the access token and location id for Square calls. Static
// configuration wins over stored OAuth tokens.
type Resolver struct {
	static    Static
	tokens    TokenSource
	locations LocationLister
	logger    *zap.Logger
}

// NewResolver wires a Resolver.
func NewResolver(static Static, tokens TokenSource, locations LocationLister, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.L()
	}
	static.AccessToken = strings.TrimSpace(static.AccessToken)
	static.LocationID = strings.TrimSpace(static.LocationID)
	return &Resolver{static: static, tokens: tokens, locations: locations, logger: logger}
}

// ResolveAccessToken returns SQUARE_ACCESS_TOKEN when set, else the stored
// square token.
func (r *Resolver) ResolveAccessToken(ctx context.Context) (string, error) {
	if r.static.AccessToken != "" {
		return r.static.AccessToken, nil
	}

	token, err := r.tokens.GetValidToken(ctx, integration.ServiceSquare)
	if err != nil {
		if errors.Is(err, integration.ErrTokenNotFound) {
			return "", fmt.Errorf("square access token: set SQUARE_ACCESS_TOKEN or connect square: %w", integration.ErrNotConfigured)
		}
		return "", err
	}
	return token, nil
}

// ResolveLocationID returns SQUARE_LOCATION_ID when set, else the location
// stored with the square token, else the first location the API reports.
// accessToken is used for the remote lookup when non-empty.
func (r *Resolver) ResolveLocationID(ctx context.Context, accessToken string) (string, error) {
	if r.static.LocationID != "" {
		return r.static.LocationID, nil
	}

	record, err := r.tokens.Record(ctx, integration.ServiceSquare)
	switch {
	case err == nil:
		if record.LocationID != nil && *record.LocationID != "" {
			return *record.LocationID, nil
		}
	case errors.Is(err, integration.ErrTokenNotFound):
	default:
		return "", err
	}

	if strings.TrimSpace(accessToken) == "" {
		accessToken, err = r.ResolveAccessToken(ctx)
		if err != nil {
			return "", err
		}
	}

	locations, err := r.locations.ListLocations(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("list square locations: %w", err)
	}
	if len(locations) == 0 {
		return "", fmt.Errorf("square returned no locations: %w", integration.ErrDataUnavailable)
	}

	r.logger.Debug("square location resolved remotely", zap.String("location_id", locations[0].ID))
	return locations[0].ID, nil
}

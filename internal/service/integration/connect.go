// Package integration runs the admin-facing OAuth connect flow and reports
// connection status per service.
package integration

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/smallbiznis/homeservice-site/internal/domain/integration"
	"github.com/smallbiznis/homeservice-site/internal/repository"
)

const (
	statePrefix = "oauth:state:"
	stateTTL    = 5 * time.Minute
)

// Authorizer is the provider side of the authorization-code flow.
type Authorizer interface {
	AuthorizationURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (domain.Token, error)
}

// LocationLister lists the merchant locations visible to an access token.
type LocationLister interface {
	ListLocations(ctx context.Context, accessToken string) ([]domain.PaymentLocation, error)
}

// TokenStore persists and reads token records.
type TokenStore interface {
	SaveTokensWithLocation(ctx context.Context, service, accessToken string, refreshToken *string, expiresAt time.Time, locationID *string) error
	Record(ctx context.Context, service string) (domain.OAuthTokenRecord, error)
}

// Status describes a service connection without exposing secrets.
type Status struct {
	Service   string     `json:"service"`
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
	Refreshes bool       `json:"refreshable"`
}

// Service implements the Google and Square connect flows.
type Service struct {
	google    Authorizer
	square    Authorizer
	locations LocationLister
	states    repository.OAuthStateStore
	tokens    TokenStore
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires the connect flows. square and locations may be nil when
// Square OAuth is not in use.
func NewService(google, square Authorizer, locations LocationLister, states repository.OAuthStateStore, tokens TokenStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.L()
	}
	return &Service{
		google:    google,
		square:    square,
		locations: locations,
		states:    states,
		tokens:    tokens,
		now:       time.Now,
		logger:    logger,
	}
}

// StartGoogle records a fresh state value and returns the Google consent URL.
func (s *Service) StartGoogle(ctx context.Context) (string, error) {
	return s.start(ctx, domain.ServiceGoogle, s.google)
}

// StartSquare records a fresh state value and returns the Square consent URL.
func (s *Service) StartSquare(ctx context.Context) (string, error) {
	return s.start(ctx, domain.ServiceSquare, s.square)
}

// CompleteGoogle validates the callback state, exchanges the code and stores
// the resulting tokens. A state value is accepted once.
func (s *Service) CompleteGoogle(ctx context.Context, state, code string) error {
	tok, err := s.exchange(ctx, domain.ServiceGoogle, s.google, state, code)
	if err != nil {
		return err
	}
	if err := s.save(ctx, domain.ServiceGoogle, tok, nil); err != nil {
		return err
	}
	s.logger.Info("google connected", zap.Time("expires_at", tok.ExpiresAt))
	return nil
}

// CompleteSquare validates the callback state, exchanges the code and stores
// the tokens together with the merchant's first location.
func (s *Service) CompleteSquare(ctx context.Context, state, code string) error {
	tok, err := s.exchange(ctx, domain.ServiceSquare, s.square, state, code)
	if err != nil {
		return err
	}

	var locationID *string
	if s.locations != nil {
		locs, err := s.locations.ListLocations(ctx, tok.AccessToken)
		switch {
		case err != nil:
			s.logger.Warn("square locations unavailable; location id left unset", zap.Error(err))
		case len(locs) == 0:
			s.logger.Warn("square merchant has no locations")
		default:
			id := locs[0].ID
			locationID = &id
		}
	}

	if err := s.save(ctx, domain.ServiceSquare, tok, locationID); err != nil {
		return err
	}
	fields := []zap.Field{zap.Time("expires_at", tok.ExpiresAt)}
	if locationID != nil {
		fields = append(fields, zap.String("location_id", *locationID))
	}
	s.logger.Info("square connected", fields...)
	return nil
}

func (s *Service) start(ctx context.Context, service string, auth Authorizer) (string, error) {
	if auth == nil {
		return "", fmt.Errorf("%s oauth: %w", service, domain.ErrNotConfigured)
	}
	state, err := secureRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	authURL, err := auth.AuthorizationURL(state)
	if err != nil {
		return "", err
	}

	payload := domain.OAuthState{
		State:     state,
		Service:   service,
		CreatedAt: s.now().UTC(),
	}
	if err := s.states.SaveState(ctx, buildStateKey(state), payload, stateTTL); err != nil {
		return "", fmt.Errorf("persist state: %w", err)
	}
	return authURL, nil
}

// exchange consumes the state issued for service and trades code for tokens.
func (s *Service) exchange(ctx context.Context, service string, auth Authorizer, state, code string) (domain.Token, error) {
	state = strings.TrimSpace(state)
	code = strings.TrimSpace(code)
	if state == "" || code == "" {
		return domain.Token{}, fmt.Errorf("state and code are required: %w", domain.ErrInvalidRequest)
	}
	if auth == nil {
		return domain.Token{}, fmt.Errorf("%s oauth: %w", service, domain.ErrNotConfigured)
	}

	key := buildStateKey(state)
	stored, err := s.states.GetState(ctx, key)
	if err != nil {
		return domain.Token{}, fmt.Errorf("load state: %w", err)
	}
	if stored == nil || stored.Service != service {
		return domain.Token{}, domain.ErrInvalidState
	}
	if err := s.states.DeleteState(ctx, key); err != nil {
		s.logger.Warn("failed to delete oauth state", zap.String("service", service), zap.Error(err))
	}

	tok, err := auth.ExchangeCode(ctx, code)
	if err != nil {
		return domain.Token{}, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

func (s *Service) save(ctx context.Context, service string, tok domain.Token, locationID *string) error {
	var refresh *string
	if tok.RefreshToken != "" {
		refresh = &tok.RefreshToken
	} else {
		s.logger.Warn("no refresh token returned; the connection will not survive expiry", zap.String("service", service))
	}
	if err := s.tokens.SaveTokensWithLocation(ctx, service, tok.AccessToken, refresh, tok.ExpiresAt, locationID); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

// Status reports whether service has a stored token and whether it expired.
func (s *Service) Status(ctx context.Context, service string) (Status, error) {
	service = strings.ToLower(strings.TrimSpace(service))
	if service != domain.ServiceGoogle && service != domain.ServiceSquare {
		return Status{}, fmt.Errorf("unknown service %q: %w", service, domain.ErrInvalidRequest)
	}

	record, err := s.tokens.Record(ctx, service)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return Status{Service: service}, nil
		}
		return Status{}, err
	}

	expiresAt := record.ExpiresAt
	return Status{
		Service:   service,
		Connected: true,
		ExpiresAt: &expiresAt,
		Expired:   record.Expired(s.now(), 0),
		Refreshes: record.HasRefreshToken(),
	}, nil
}

func buildStateKey(state string) string {
	return statePrefix + strings.TrimSpace(state)
}

func secureRandomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

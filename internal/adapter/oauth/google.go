package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

// BusinessManageScope grants access to Google Business Profile data.
const BusinessManageScope = "https://www.googleapis.com/auth/business.manage"

// defaultTokenLifetime applies when a provider omits expires_in.
const defaultTokenLifetime = time.Hour

// GoogleConfig holds the OAuth client registration for Google.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Endpoint defaults to google.Endpoint.
	Endpoint   oauth2.Endpoint
	HTTPClient *http.Client
}

// GoogleClient drives the authorization-code flow against Google and
// refreshes stored tokens.
type GoogleClient struct {
	cfg        oauth2.Config
	httpClient *http.Client
	configErr  error
}

// NewGoogleClient builds a client. Missing credentials are reported when the
// client is used, not here.
func NewGoogleClient(c GoogleConfig) *GoogleClient {
	endpoint := c.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	var missing []string
	if strings.TrimSpace(c.ClientID) == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URI")
	}
	var configErr error
	if len(missing) > 0 {
		configErr = fmt.Errorf("google oauth: missing %s: %w", strings.Join(missing, ", "), integration.ErrNotConfigured)
	}

	return &GoogleClient{
		cfg: oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Scopes:       []string{BusinessManageScope},
			Endpoint:     endpoint,
		},
		httpClient: c.HTTPClient,
		configErr:  configErr,
	}
}

// AuthorizationURL returns the consent URL. Offline access and forced consent
// make Google issue a refresh token.
func (c *GoogleClient) AuthorizationURL(state string) (string, error) {
	if c.configErr != nil {
		return "", c.configErr
	}
	if strings.TrimSpace(state) == "" {
		return "", integration.ErrInvalidRequest
	}
	return c.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// ExchangeCode trades a one-time authorization code for a token pair.
func (c *GoogleClient) ExchangeCode(ctx context.Context, code string) (integration.Token, error) {
	if c.configErr != nil {
		return integration.Token{}, c.configErr
	}
	if strings.TrimSpace(code) == "" {
		return integration.Token{}, integration.ErrInvalidRequest
	}

	tok, err := c.cfg.Exchange(c.withClient(ctx), code)
	if err != nil {
		return integration.Token{}, fmt.Errorf("exchange code: %w", mapRetrieveError(err))
	}
	if tok.AccessToken == "" {
		return integration.Token{}, fmt.Errorf("exchange code: empty access token: %w", integration.ErrUnexpectedResponse)
	}
	return toToken(tok), nil
}

// Refresh mints a new access token from a refresh token. A revoked refresh
// token yields integration.ErrReauthorizationRequired.
func (c *GoogleClient) Refresh(ctx context.Context, refreshToken string) (integration.Token, error) {
	if c.configErr != nil {
		return integration.Token{}, c.configErr
	}
	if strings.TrimSpace(refreshToken) == "" {
		return integration.Token{}, integration.ErrNoRefreshToken
	}

	src := c.cfg.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return integration.Token{}, fmt.Errorf("refresh token: %w", mapRetrieveError(err))
	}
	if tok.AccessToken == "" {
		return integration.Token{}, fmt.Errorf("refresh token: empty access token: %w", integration.ErrUnexpectedResponse)
	}
	return toToken(tok), nil
}

func (c *GoogleClient) withClient(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func toToken(tok *oauth2.Token) integration.Token {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultTokenLifetime)
	}
	return integration.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt.UTC(),
	}
}

func mapRetrieveError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	if re.ErrorCode == "invalid_grant" {
		return fmt.Errorf("%w: %s", integration.ErrReauthorizationRequired, re.ErrorDescription)
	}
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	msg := strings.TrimSpace(re.ErrorCode + " " + re.ErrorDescription)
	return &integration.UpstreamError{Provider: "google", Status: status, Message: msg}
}

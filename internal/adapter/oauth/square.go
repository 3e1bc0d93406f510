package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

// SquareScopes are the permissions requested when a merchant connects.
var SquareScopes = []string{"MERCHANT_PROFILE_READ", "PAYMENTS_READ", "PAYMENTS_WRITE", "ORDERS_READ", "ORDERS_WRITE", "ITEMS_READ"}

// SquareConfig holds the Square application credentials.
type SquareConfig struct {
	ApplicationID     string
	ApplicationSecret string
	RedirectURI       string
	BaseURL           string
	APIVersion        string
}

// SquareClient runs the Square authorization-code flow and refreshes tokens.
type SquareClient struct {
	cfg        SquareConfig
	httpClient *http.Client
}

// NewSquareClient constructs the Square OAuth client.
func NewSquareClient(cfg SquareConfig, client *http.Client) *SquareClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &SquareClient{cfg: cfg, httpClient: client}
}

// Configured reports whether application credentials are present.
func (c *SquareClient) Configured() bool {
	return strings.TrimSpace(c.cfg.ApplicationID) != "" && strings.TrimSpace(c.cfg.ApplicationSecret) != ""
}

type squareTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

type squareTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
	MerchantID   string `json:"merchant_id"`
	Errors       []struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail"`
	} `json:"errors"`
	Message string `json:"message"`
}

func (c *SquareClient) configErr() error {
	if !c.Configured() {
		return fmt.Errorf("square oauth: missing SQUARE_APPLICATION_ID or SQUARE_APPLICATION_SECRET: %w", integration.ErrNotConfigured)
	}
	return nil
}

// AuthorizationURL returns the Square consent URL for state.
func (c *SquareClient) AuthorizationURL(state string) (string, error) {
	if err := c.configErr(); err != nil {
		return "", err
	}
	params := url.Values{
		"client_id": {c.cfg.ApplicationID},
		"scope":     {strings.Join(SquareScopes, " ")},
		"state":     {state},
	}
	if c.cfg.RedirectURI != "" {
		params.Set("redirect_uri", c.cfg.RedirectURI)
	}
	return c.cfg.BaseURL + "/oauth2/authorize?" + params.Encode(), nil
}

// ExchangeCode performs the authorization_code grant.
func (c *SquareClient) ExchangeCode(ctx context.Context, code string) (integration.Token, error) {
	if err := c.configErr(); err != nil {
		return integration.Token{}, err
	}
	if strings.TrimSpace(code) == "" {
		return integration.Token{}, fmt.Errorf("square oauth: empty code: %w", integration.ErrInvalidRequest)
	}
	return c.token(ctx, squareTokenRequest{
		ClientID:     c.cfg.ApplicationID,
		ClientSecret: c.cfg.ApplicationSecret,
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  c.cfg.RedirectURI,
	})
}

// Refresh performs the refresh_token grant. Square may or may not rotate the
// refresh token; an empty RefreshToken in the result means it was not rotated.
func (c *SquareClient) Refresh(ctx context.Context, refreshToken string) (integration.Token, error) {
	if err := c.configErr(); err != nil {
		return integration.Token{}, err
	}
	if strings.TrimSpace(refreshToken) == "" {
		return integration.Token{}, integration.ErrNoRefreshToken
	}
	return c.token(ctx, squareTokenRequest{
		ClientID:     c.cfg.ApplicationID,
		ClientSecret: c.cfg.ApplicationSecret,
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	})
}

func (c *SquareClient) token(ctx context.Context, in squareTokenRequest) (integration.Token, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return integration.Token{}, fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth2/token", bytes.NewReader(payload))
	if err != nil {
		return integration.Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIVersion != "" {
		req.Header.Set("Square-Version", c.cfg.APIVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return integration.Token{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return integration.Token{}, fmt.Errorf("read token response: %w", err)
	}

	var out squareTokenResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil && resp.StatusCode < 300 {
			return integration.Token{}, fmt.Errorf("decode token response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		msg := out.Message
		if len(out.Errors) > 0 {
			msg = strings.TrimSpace(out.Errors[0].Code + " " + out.Errors[0].Detail)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return integration.Token{}, fmt.Errorf("%w: %s", integration.ErrReauthorizationRequired, msg)
		}
		return integration.Token{}, &integration.UpstreamError{Provider: "square", Status: resp.StatusCode, Message: msg}
	}

	if out.AccessToken == "" {
		return integration.Token{}, fmt.Errorf("square token: missing access_token: %w", integration.ErrUnexpectedResponse)
	}
	expiresAt, err := time.Parse(time.RFC3339, out.ExpiresAt)
	if err != nil {
		return integration.Token{}, fmt.Errorf("square token: bad expires_at %q: %w", out.ExpiresAt, integration.ErrUnexpectedResponse)
	}

	return integration.Token{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    expiresAt.UTC(),
	}, nil
}

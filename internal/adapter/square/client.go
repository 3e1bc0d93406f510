// Package square is a minimal Square Connect API client.
package square

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

// Client calls Square REST endpoints with a caller-supplied access token.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// NewClient constructs a Client for baseURL (sandbox or production host).
func NewClient(baseURL, apiVersion string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		httpClient: httpClient,
	}
}

type listLocationsResponse struct {
	Locations []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"locations"`
	Errors []apiError `json:"errors"`
}

type apiError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

// ListLocations returns the seller's business locations.
func (c *Client) ListLocations(ctx context.Context, accessToken string) ([]integration.PaymentLocation, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, integration.ErrInvalidRequest
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/locations", nil)
	if err != nil {
		return nil, fmt.Errorf("build locations request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if c.apiVersion != "" {
		req.Header.Set("Square-Version", c.apiVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("locations request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}

	var out listLocationsResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode >= 300 {
		msg := ""
		if len(out.Errors) > 0 {
			msg = strings.TrimSpace(out.Errors[0].Code + " " + out.Errors[0].Detail)
		}
		return nil, &integration.UpstreamError{Provider: "square", Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode locations: %w: %v", integration.ErrUnexpectedResponse, decodeErr)
	}

	locations := make([]integration.PaymentLocation, 0, len(out.Locations))
	for i, l := range out.Locations {
		if strings.TrimSpace(l.ID) == "" {
			return nil, fmt.Errorf("location %d: missing id: %w", i, integration.ErrUnexpectedResponse)
		}
		locations = append(locations, integration.PaymentLocation{ID: l.ID, Name: l.Name, Status: l.Status})
	}
	return locations, nil
}

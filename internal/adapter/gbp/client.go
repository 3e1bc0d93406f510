// Package gbp calls the Google Business Profile REST APIs with an
// already-valid access token.
package gbp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

const (
	maxReviewPages = 10
	reviewPageSize = 50
)

// Endpoints are the API roots. Zero values use Google's production hosts.
type Endpoints struct {
	AccountsURL  string
	LocationsURL string
	ReviewsURL   string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.AccountsURL == "" {
		e.AccountsURL = "https://mybusinessaccountmanagement.googleapis.com/v1"
	}
	if e.LocationsURL == "" {
		e.LocationsURL = "https://mybusinessbusinessinformation.googleapis.com/v1"
	}
	if e.ReviewsURL == "" {
		e.ReviewsURL = "https://mybusiness.googleapis.com/v4"
	}
	e.AccountsURL = strings.TrimRight(e.AccountsURL, "/")
	e.LocationsURL = strings.TrimRight(e.LocationsURL, "/")
	e.ReviewsURL = strings.TrimRight(e.ReviewsURL, "/")
	return e
}

// Client is a thin typed client over the three listing endpoints.
type Client struct {
	httpClient *http.Client
	endpoints  Endpoints
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for truncation warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Client.
func NewClient(httpClient *http.Client, endpoints Endpoints, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	c := &Client{httpClient: httpClient, endpoints: endpoints.withDefaults(), logger: zap.L()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountsResponse struct {
	Accounts []struct {
		Name        string `json:"name"`
		AccountName string `json:"accountName"`
	} `json:"accounts"`
}

// ListAccounts returns the accounts the token can manage.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]integration.BusinessAccount, error) {
	var resp accountsResponse
	if err := c.get(ctx, accessToken, c.endpoints.AccountsURL+"/accounts", &resp); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]integration.BusinessAccount, 0, len(resp.Accounts))
	for i, a := range resp.Accounts {
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("account %d: missing name: %w", i, integration.ErrUnexpectedResponse)
		}
		out = append(out, integration.BusinessAccount{Name: a.Name, AccountName: a.AccountName})
	}
	return out, nil
}

type locationsResponse struct {
	Locations []struct {
		Name     string `json:"name"`
		Title    string `json:"title"`
		Metadata struct {
			MapsURI string `json:"mapsUri"`
		} `json:"metadata"`
	} `json:"locations"`
}

// ListLocations returns the locations under account ("accounts/{id}").
func (c *Client) ListLocations(ctx context.Context, accessToken, account string) ([]integration.BusinessLocation, error) {
	if strings.TrimSpace(account) == "" {
		return nil, integration.ErrInvalidRequest
	}
	endpoint := fmt.Sprintf("%s/%s/locations?%s", c.endpoints.LocationsURL, account, url.Values{
		"readMask": {"name,title,metadata"},
	}.Encode())

	var resp locationsResponse
	if err := c.get(ctx, accessToken, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	out := make([]integration.BusinessLocation, 0, len(resp.Locations))
	for i, l := range resp.Locations {
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("location %d: missing name: %w", i, integration.ErrUnexpectedResponse)
		}
		out = append(out, integration.BusinessLocation{Name: l.Name, Title: l.Title, MapsURI: l.Metadata.MapsURI})
	}
	return out, nil
}

type reviewsResponse struct {
	Reviews []struct {
		Name     string `json:"name"`
		ReviewID string `json:"reviewId"`
		Reviewer struct {
			DisplayName string `json:"displayName"`
		} `json:"reviewer"`
		StarRating *string `json:"starRating"`
		Comment    string  `json:"comment"`
		CreateTime string  `json:"createTime"`
	} `json:"reviews"`
	NextPageToken string `json:"nextPageToken"`
}

// ListReviews returns the reviews for location ("locations/{id}") under
// account. At most maxReviewPages pages are read; a listing cut short there is
// returned as is and logged.
func (c *Client) ListReviews(ctx context.Context, accessToken, account, location string) ([]integration.RemoteReview, error) {
	if strings.TrimSpace(account) == "" || strings.TrimSpace(location) == "" {
		return nil, integration.ErrInvalidRequest
	}
	base := fmt.Sprintf("%s/%s/%s/reviews", c.endpoints.ReviewsURL, account, location)

	var out []integration.RemoteReview
	pageToken := ""
	for page := 0; page < maxReviewPages; page++ {
		params := url.Values{"pageSize": {strconv.Itoa(reviewPageSize)}}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp reviewsResponse
		if err := c.get(ctx, accessToken, base+"?"+params.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("list reviews: %w", err)
		}
		for i, r := range resp.Reviews {
			id := r.ReviewID
			if id == "" {
				id = r.Name
			}
			if id == "" || r.StarRating == nil {
				return nil, fmt.Errorf("review %d: missing id or starRating: %w", i, integration.ErrUnexpectedResponse)
			}
			created, err := time.Parse(time.RFC3339, r.CreateTime)
			if err != nil {
				return nil, fmt.Errorf("review %s: bad createTime %q: %w", id, r.CreateTime, integration.ErrUnexpectedResponse)
			}
			out = append(out, integration.RemoteReview{
				Name:       r.Name,
				ReviewID:   id,
				Reviewer:   r.Reviewer.DisplayName,
				StarRating: *r.StarRating,
				Comment:    r.Comment,
				CreateTime: created.UTC(),
			})
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}

	c.logger.Warn("review listing truncated at page limit",
		zap.String("location", location),
		zap.Int("pages", maxReviewPages),
		zap.Int("reviews", len(out)),
	)
	return out, nil
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, accessToken, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		return &integration.UpstreamError{Provider: "google", Status: resp.StatusCode, Message: apiErr.Error.Message}
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w: %v", integration.ErrUnexpectedResponse, err)
	}
	return nil
}

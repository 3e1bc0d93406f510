// Package reviews pulls customer reviews from Google Business Profile and
// keeps a local copy for the public site.
package reviews

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
	"github.com/smallbiznis/homeservice-site/internal/repository"
)

// TokenProvider hands out a currently valid access token for a service.
type TokenProvider interface {
	GetValidToken(ctx context.Context, service string) (string, error)
}

// BusinessProfile is the reviews-platform API surface.
type BusinessProfile interface {
	ListAccounts(ctx context.Context, accessToken string) ([]integration.BusinessAccount, error)
	ListLocations(ctx context.Context, accessToken, account string) ([]integration.BusinessLocation, error)
	ListReviews(ctx context.Context, accessToken, account, location string) ([]integration.RemoteReview, error)
}

// Service fetches and stores reviews.
type Service struct {
	tokens  TokenProvider
	profile BusinessProfile
	repo    repository.ReviewRepository
	logger  *zap.Logger
}

// NewService wires the reviews service.
func NewService(tokens TokenProvider, profile BusinessProfile, repo repository.ReviewRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.L()
	}
	return &Service{tokens: tokens, profile: profile, repo: repo, logger: logger}
}

// Fetch reads the reviews of the first location of the first account the
// connected Google user can see.
func (s *Service) Fetch(ctx context.Context) ([]integration.Review, error) {
	accessToken, err := s.tokens.GetValidToken(ctx, integration.ServiceGoogle)
	if err != nil {
		return nil, err
	}

	accounts, err := s.profile.ListAccounts(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no business accounts: %w", integration.ErrDataUnavailable)
	}
	account := accounts[0]

	locations, err := s.profile.ListLocations(ctx, accessToken, account.Name)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("no locations for %s: %w", account.Name, integration.ErrDataUnavailable)
	}
	location := locations[0]

	remote, err := s.profile.ListReviews(ctx, accessToken, account.Name, location.Name)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	out := make([]integration.Review, 0, len(remote))
	for _, r := range remote {
		out = append(out, normalize(r, location))
	}
	return out, nil
}

// Sync fetches the live reviews and stores them, returning how many were written.
func (s *Service) Sync(ctx context.Context) (int, error) {
	fetched, err := s.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.UpsertMany(ctx, fetched)
	if err != nil {
		return 0, fmt.Errorf("store reviews: %w", err)
	}
	s.logger.Info("reviews synced", zap.Int("count", n))
	return n, nil
}

// List returns stored reviews, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]integration.Review, error) {
	return s.repo.List(ctx, limit)
}

// StarRating converts the provider's rating enumeration to 1-5. The match is
// exact; anything else, including "five" or " FIVE", counts as one star.
func StarRating(rating string) int {
	switch rating {
	case "FIVE":
		return 5
	case "FOUR":
		return 4
	case "THREE":
		return 3
	case "TWO":
		return 2
	default:
		return 1
	}
}

func normalize(r integration.RemoteReview, location integration.BusinessLocation) integration.Review {
	id := r.ReviewID
	if id == "" {
		id = r.Name
	}
	return integration.Review{
		ExternalID: id,
		Author:     r.Reviewer,
		Content:    r.Comment,
		Rating:     StarRating(r.StarRating),
		SourceURL:  location.MapsURI,
		CreatedAt:  r.CreateTime,
	}
}

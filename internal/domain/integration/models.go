package integration

import "time"

// Service keys for stored token records.
const (
	ServiceGoogle = "google"
	ServiceSquare = "square"
)

// OAuthTokenRecord is the persisted token row for one external service.
// AccessToken and RefreshToken hold encrypted secrets; ExpiresAt is plaintext
// so validity can be decided without decryption.
type OAuthTokenRecord struct {
	ID           int64
	Service      string
	AccessToken  string
	RefreshToken *string
	LocationID   *string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRefreshToken reports whether an encrypted refresh token is stored.
func (r OAuthTokenRecord) HasRefreshToken() bool {
	return r.RefreshToken != nil && *r.RefreshToken != ""
}

// Expired reports whether the record is expired at now, treating tokens as
// expired skew early.
func (r OAuthTokenRecord) Expired(now time.Time, skew time.Duration) bool {
	return !now.Before(r.ExpiresAt.Add(-skew))
}

// Token is a plaintext token pair returned by a provider.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Review is the normalized shape of a customer review.
type Review struct {
	ExternalID string    `json:"external_id"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	SourceURL  string    `json:"source_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// BusinessAccount is a Google Business Profile account.
type BusinessAccount struct {
	Name        string
	AccountName string
}

// BusinessLocation is a Google Business Profile location.
type BusinessLocation struct {
	Name    string
	Title   string
	MapsURI string
}

// RemoteReview is a review as returned by the reviews platform.
type RemoteReview struct {
	Name       string
	ReviewID   string
	Reviewer   string
	StarRating string
	Comment    string
	CreateTime time.Time
}

// PaymentLocation is a commerce-platform business location.
type PaymentLocation struct {
	ID     string
	Name   string
	Status string
}

// OAuthState is persisted between the authorization redirect and the callback.
type OAuthState struct {
	State     string    `json:"state"`
	Service   string    `json:"service"`
	CreatedAt time.Time `json:"created_at"`
}

// Package jwt verifies access tokens issued by the Supabase auth server.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

// SupabaseAudience is the audience Supabase sets on signed-in user tokens.
const SupabaseAudience = "authenticated"

var allowedAlgorithms = []gojose.SignatureAlgorithm{gojose.HS256}

// ErrNotConfigured is returned when no JWT secret is set.
var ErrNotConfigured = errors.New("jwt: SUPABASE_JWT_SECRET is not set")

// UserClaims are the Supabase-specific claims of an access token.
type UserClaims struct {
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	AppMetadata map[string]any `json:"app_metadata,omitempty"`
}

// Verifier checks HS256 tokens signed with the project's JWT secret.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier builds a verifier. issuer is checked only when non-empty and is
// derived from the project URL as Supabase does ("<url>/auth/v1").
func NewVerifier(secret, projectURL string) *Verifier {
	issuer := ""
	if u := strings.TrimRight(strings.TrimSpace(projectURL), "/"); u != "" {
		issuer = u + "/auth/v1"
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses token, checks its signature, expiry and audience, and returns
// its claims.
func (v *Verifier) Verify(token string) (*gojwt.Claims, *UserClaims, error) {
	if len(v.secret) == 0 {
		return nil, nil, ErrNotConfigured
	}

	parsed, err := gojwt.ParseSigned(token, allowedAlgorithms)
	if err != nil {
		return nil, nil, fmt.Errorf("parse token: %w", err)
	}

	var std gojwt.Claims
	var custom UserClaims
	if err := parsed.Claims(v.secret, &std, &custom); err != nil {
		return nil, nil, fmt.Errorf("verify token: %w", err)
	}

	expected := gojwt.Expected{
		Issuer:      v.issuer,
		AnyAudience: gojwt.Audience{SupabaseAudience},
		Time:        v.now(),
	}
	if err := std.Validate(expected); err != nil {
		return nil, nil, fmt.Errorf("validate claims: %w", err)
	}
	if std.Subject == "" {
		return nil, nil, fmt.Errorf("validate claims: missing subject")
	}

	return &std, &custom, nil
}

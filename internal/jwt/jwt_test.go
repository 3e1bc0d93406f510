package jwt_test

import (
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"

	customjwt "github.com/smallbiznis/homeservice-site/internal/jwt"
)

const secret = "super-secret-jwt-token-with-at-least-32-characters"

func sign(t *testing.T, key []byte, alg gojose.SignatureAlgorithm, std gojwt.Claims, custom customjwt.UserClaims) string {
	t.Helper()
	signer, err := gojose.NewSigner(gojose.SigningKey{Algorithm: alg, Key: key}, (&gojose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)
	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	require.NoError(t, err)
	return token
}

func validClaims() gojwt.Claims {
	now := time.Now()
	return gojwt.Claims{
		Subject:  "7d3c1c2e-user",
		Issuer:   "https://project.supabase.co/auth/v1",
		Audience: gojwt.Audience{customjwt.SupabaseAudience},
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func TestVerifierAcceptsSupabaseToken(t *testing.T) {
	v := customjwt.NewVerifier(secret, "https://project.supabase.co/")
	token := sign(t, []byte(secret), gojose.HS256, validClaims(), customjwt.UserClaims{Email: "owner@example.com", Role: "authenticated"})

	std, custom, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "7d3c1c2e-user", std.Subject)
	require.Equal(t, "owner@example.com", custom.Email)
}

func TestVerifierRejects(t *testing.T) {
	v := customjwt.NewVerifier(secret, "https://project.supabase.co")

	expired := validClaims()
	expired.Expiry = gojwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongAud := validClaims()
	wrongAud.Audience = gojwt.Audience{"anon"}
	wrongIss := validClaims()
	wrongIss.Issuer = "https://other.supabase.co/auth/v1"
	noSub := validClaims()
	noSub.Subject = ""

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": sign(t, []byte("another-secret-another-secret-another"), gojose.HS256, validClaims(), customjwt.UserClaims{}),
		"hs512":        sign(t, []byte(secret+secret), gojose.HS512, validClaims(), customjwt.UserClaims{}),
		"expired":      sign(t, []byte(secret), gojose.HS256, expired, customjwt.UserClaims{}),
		"audience":     sign(t, []byte(secret), gojose.HS256, wrongAud, customjwt.UserClaims{}),
		"issuer":       sign(t, []byte(secret), gojose.HS256, wrongIss, customjwt.UserClaims{}),
		"no subject":   sign(t, []byte(secret), gojose.HS256, noSub, customjwt.UserClaims{}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := v.Verify(token)
			require.Error(t, err)
		})
	}
}

func TestVerifierNotConfigured(t *testing.T) {
	v := customjwt.NewVerifier("", "")
	_, _, err := v.Verify("x")
	require.ErrorIs(t, err, customjwt.ErrNotConfigured)
}

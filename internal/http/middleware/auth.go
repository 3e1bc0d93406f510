package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/jwt"
)

const (
	userClaimsKey = "userClaims"
	stdClaimsKey  = "stdClaims"
)

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (*gojwt.Claims, *jwt.UserClaims, error)
}

// Auth guards admin routes with a Supabase access token. When AllowedEmails
// is non-empty only those users are admitted.
type Auth struct {
	Verifier      TokenVerifier
	AllowedEmails []string
	Logger        *zap.Logger
}

// RequireAdmin ensures the request carries a valid admin bearer token.
func (m *Auth) RequireAdmin(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authorization header required."})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Bearer token required."})
		return
	}

	std, custom, err := m.Verifier.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, jwt.ErrNotConfigured) {
			m.logger().Error("admin auth not configured", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "auth_unavailable"})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Invalid access token."})
		return
	}
	if !m.emailAllowed(custom.Email) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	c.Set(stdClaimsKey, std)
	c.Set(userClaimsKey, custom)
	c.Next()
}

func (m *Auth) emailAllowed(email string) bool {
	if len(m.AllowedEmails) == 0 {
		return true
	}
	for _, allowed := range m.AllowedEmails {
		if strings.EqualFold(strings.TrimSpace(allowed), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

func (m *Auth) logger() *zap.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return zap.L()
}

// GetUserClaims exposes Supabase user claims to handlers.
func GetUserClaims(c *gin.Context) (*jwt.UserClaims, bool) {
	value, ok := c.Get(userClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*jwt.UserClaims)
	return claims, ok
}

// GetStdClaims returns standard JWT claims set.
func GetStdClaims(c *gin.Context) (*gojwt.Claims, bool) {
	value, ok := c.Get(stdClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*gojwt.Claims)
	return claims, ok
}

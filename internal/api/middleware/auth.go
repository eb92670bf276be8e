package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/timmy/altseo/internal/logger"
)

// CtxReviewerKey holds the authenticated reviewer in the gin context.
const CtxReviewerKey = "reviewer"

// ErrAuthDisabled is returned when no signing secret is configured.
var ErrAuthDisabled = errors.New("reviewer auth is not configured")

// ReviewerClaims identify who approves or rejects jobs.
type ReviewerClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Reviewer returns the display name, falling back to the subject.
func (c *ReviewerClaims) Reviewer() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Subject
}

// ReviewerTokens signs and verifies HS256 reviewer tokens.
type ReviewerTokens struct {
	Secret []byte
	Issuer string
}

// Sign issues a token for a reviewer valid for ttl.
func (t ReviewerTokens) Sign(reviewer string, ttl time.Duration) (string, error) {
	if len(t.Secret) == 0 {
		return "", ErrAuthDisabled
	}
	now := time.Now()
	claims := ReviewerClaims{
		Name: reviewer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.Issuer,
			Subject:   reviewer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse verifies a token and returns its claims.
func (t ReviewerTokens) Parse(raw string) (*ReviewerClaims, error) {
	if len(t.Secret) == 0 {
		return nil, ErrAuthDisabled
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if t.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.Issuer))
	}
	tok, err := jwt.ParseWithClaims(raw, &ReviewerClaims{}, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := tok.Claims.(*ReviewerClaims)
	if !ok || !tok.Valid || claims.Reviewer() == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ReviewerAuth requires a bearer token on review endpoints.
func ReviewerAuth(tokens ReviewerTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(tokens.Secret) == 0 {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": ErrAuthDisabled.Error()})
			return
		}

		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(h[len("Bearer "):]))
		if err != nil {
			GetLogger(c).WithError(err).Warn("Rejected reviewer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := logger.WithField(c.Request.Context(), logger.FieldReviewer, claims.Reviewer())
		c.Request = c.Request.WithContext(ctx)
		c.Set(CtxReviewerKey, claims.Reviewer())
		c.Next()
	}
}

// GetReviewer returns the reviewer set by ReviewerAuth.
func GetReviewer(c *gin.Context) string {
	return c.GetString(CtxReviewerKey)
}

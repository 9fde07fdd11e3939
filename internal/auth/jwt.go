package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

// Claims holds the JWT token payload. The ID (jti) identifies a refresh
// token for revocation.
type Claims struct {
	jwt.RegisteredClaims
	UserID         int64  `json:"uid"`
	OrganizationID int64  `json:"oid,omitempty"`
	Role           string `json:"role"`
	TokenType      string `json:"typ"` // "access" or "refresh"
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	issuer = "taskboard"
)

var (
	// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
	// ErrTokenRevoked is returned for refresh tokens revoked by logout.
	ErrTokenRevoked = errors.New("auth: token revoked")
)

// IssueAccessToken creates a signed JWT access token for u.
func IssueAccessToken(secret string, u *domain.User, ttl time.Duration) (string, error) {
	return issueToken(secret, u, TokenTypeAccess, ttl)
}

// IssueRefreshToken creates a signed JWT refresh token for u.
func IssueRefreshToken(secret string, u *domain.User, ttl time.Duration) (string, error) {
	return issueToken(secret, u, TokenTypeRefresh, ttl)
}

func issueToken(secret string, u *domain.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		UserID:         u.ID,
		OrganizationID: u.OrgID(),
		Role:           u.Role(),
		TokenType:      tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.issueToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

// ValidateAccessToken is ValidateToken restricted to access tokens.
func ValidateAccessToken(secret, tokenString string) (*Claims, error) {
	claims, err := ValidateToken(secret, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("auth.ValidateAccessToken: %w", ErrInvalidToken)
	}
	return claims, nil
}

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/gosuda/taskboard/internal/domain"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserAlreadyExists  = errors.New("auth: user already exists")
	ErrUserNotFound       = errors.New("auth: user not found")
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Revoker records refresh tokens ended by logout.
// *redis.RevocationStore satisfies this interface.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Tokens is an issued access/refresh pair.
type Tokens struct {
	Access  string
	Refresh string
}

// NewUser describes an account to create.
type NewUser struct {
	Username  string
	Email     string
	Password  string //nolint:gosec // G117: plaintext only until hashed
	FirstName string
	LastName  string
	IsAdmin   bool
	// OrganizationID selects the organization. Nil or unknown IDs fall back
	// to the default organization.
	OrganizationID *int64
}

// Service provides authentication operations.
type Service struct {
	users      domain.UserRepository
	orgs       domain.OrganizationRepository
	revoker    Revoker
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a new auth service. revoker may be nil, in which case
// logout cannot revoke refresh tokens.
func NewService(users domain.UserRepository, orgs domain.OrganizationRepository, revoker Revoker, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		orgs:       orgs,
		revoker:    revoker,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Signup creates a member account and returns it with a token pair.
func (s *Service) Signup(ctx context.Context, nu NewUser) (*domain.User, Tokens, error) {
	nu.IsAdmin = false
	user, err := s.CreateUser(ctx, nu)
	if err != nil {
		return nil, Tokens{}, fmt.Errorf("auth.Signup: %w", err)
	}

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, Tokens{}, fmt.Errorf("auth.Signup: %w", err)
	}
	return user, tokens, nil
}

// CreateUser hashes the password and stores a new user in the requested
// organization, or the default one.
func (s *Service) CreateUser(ctx context.Context, nu NewUser) (*domain.User, error) {
	nu.Username = strings.TrimSpace(nu.Username)
	if nu.Username == "" || nu.Password == "" {
		return nil, fmt.Errorf("auth.CreateUser: username and password required: %w", domain.ErrValidation)
	}

	existing, err := s.users.GetByUsername(ctx, nu.Username)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("auth.CreateUser: %w", ErrUserAlreadyExists)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("auth.CreateUser: %w", err)
	}

	org, err := s.resolveOrganization(ctx, nu.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("auth.CreateUser: %w", err)
	}

	hash, err := HashPassword(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("auth.CreateUser: %w", err)
	}

	now := time.Now()
	orgID := org.ID
	user := &domain.User{
		Username:       nu.Username,
		Email:          strings.TrimSpace(nu.Email),
		FirstName:      nu.FirstName,
		LastName:       nu.LastName,
		PasswordHash:   hash,
		IsAdmin:        nu.IsAdmin,
		OrganizationID: &orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("auth.CreateUser: %w", ErrUserAlreadyExists)
		}
		return nil, fmt.Errorf("auth.CreateUser: %w", err)
	}

	return user, nil
}

func (s *Service) resolveOrganization(ctx context.Context, id *int64) (*domain.Organization, error) {
	if id != nil && *id > 0 {
		org, err := s.orgs.GetByID(ctx, *id)
		if err == nil {
			return org, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return s.orgs.GetOrCreateDefault(ctx)
}

// Login validates username/password and returns the user with a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, Tokens, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, Tokens{}, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !verifyPassword(password, user.PasswordHash) {
		return nil, Tokens{}, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, Tokens{}, fmt.Errorf("auth.Login: %w", err)
	}

	return user, tokens, nil
}

// IssueTokens signs a fresh access/refresh pair for user.
func (s *Service) IssueTokens(user *domain.User) (Tokens, error) {
	access, err := IssueAccessToken(s.jwtSecret, user, s.accessTTL)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := IssueRefreshToken(s.jwtSecret, user, s.refreshTTL)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}

// RefreshToken validates a refresh token and issues a new access token
// carrying the user's current role and organization.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.validateRefresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrUserNotFound)
	}

	newAccess, err := IssueAccessToken(s.jwtSecret, user, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	return newAccess, nil
}

// Logout revokes a refresh token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" || s.revoker == nil {
		return nil
	}

	claims, err := s.validateRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			return nil
		}
		return fmt.Errorf("auth.Logout: %w", err)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("auth.Logout: %w", err)
	}
	return nil
}

func (s *Service) validateRefresh(ctx context.Context, token string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtSecret, token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// GetUser returns a user by ID (for middleware use).
func (s *Service) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth.GetUser: %w", err)
	}

	return user, nil
}

// HashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// verifyPassword checks a password against an argon2id hash.
func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}

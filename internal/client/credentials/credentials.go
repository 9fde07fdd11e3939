// Package credentials persists the client's token pair and remembered
// username. It is the shared state between the session store and the HTTP
// client wrapper.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

// Store holds the bearer/refresh token pair. Implementations must be safe for
// concurrent use.
type Store interface {
	// Token returns a copy of the current token pair, or nil when signed out.
	Token() *oauth2.Token
	// AccessToken returns the access token, or "" when signed out.
	AccessToken() string
	// RefreshToken returns the refresh token, or "".
	RefreshToken() string
	// Save replaces the token pair.
	Save(tok *oauth2.Token) error
	// SetAccessToken replaces only the access token, keeping the refresh token.
	SetAccessToken(access string, expiry time.Time) error
	// Clear removes both tokens. The remembered username survives.
	Clear() error

	RememberedUsername() string
	SetRememberedUsername(username string) error
}

// Fixed keys of the on-disk document.
type document struct {
	AccessToken        string    `yaml:"access_token,omitempty"`
	RefreshToken       string    `yaml:"refresh_token,omitempty"`
	Expiry             time.Time `yaml:"expiry,omitempty"`
	RememberedUsername string    `yaml:"remembered_username,omitempty"`
}

func (d *document) token() *oauth2.Token {
	if d.AccessToken == "" && d.RefreshToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  d.AccessToken,
		RefreshToken: d.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       d.Expiry,
	}
}

// FileStore keeps credentials in a YAML file readable only by the owner.
type FileStore struct {
	path string

	mu  sync.RWMutex
	doc document
}

// Open loads the credentials file at path. A missing file is an empty store.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credentials.Open: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("credentials.Open: parse %s: %w", path, err)
	}
	return s, nil
}

// DefaultPath returns ~/.taskctl/credentials.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".taskctl", "credentials.yaml")
	}
	return filepath.Join(home, ".taskctl", "credentials.yaml")
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.token()
}

func (s *FileStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.AccessToken
}

func (s *FileStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.RefreshToken
}

func (s *FileStore) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok == nil {
		s.doc.AccessToken, s.doc.RefreshToken, s.doc.Expiry = "", "", time.Time{}
	} else {
		s.doc.AccessToken = tok.AccessToken
		s.doc.RefreshToken = tok.RefreshToken
		s.doc.Expiry = tok.Expiry
	}
	return s.flushLocked()
}

func (s *FileStore) SetAccessToken(access string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.AccessToken = access
	s.doc.Expiry = expiry
	return s.flushLocked()
}

func (s *FileStore) Clear() error {
	return s.Save(nil)
}

func (s *FileStore) RememberedUsername() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.RememberedUsername
}

func (s *FileStore) SetRememberedUsername(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.RememberedUsername = username
	return s.flushLocked()
}

// flushLocked writes the document atomically via a temp file + rename.
func (s *FileStore) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credentials: mkdir: %w", err)
	}

	data, err := yaml.Marshal(&s.doc)
	if err != nil {
		return fmt.Errorf("credentials: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("credentials: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("credentials: chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("credentials: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credentials: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("credentials: rename: %w", err)
	}
	return nil
}

// MemoryStore is a process-local Store, used by tests and bypass sessions.
type MemoryStore struct {
	mu  sync.RWMutex
	doc document
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.token()
}

func (s *MemoryStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.AccessToken
}

func (s *MemoryStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.RefreshToken
}

func (s *MemoryStore) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok == nil {
		s.doc.AccessToken, s.doc.RefreshToken, s.doc.Expiry = "", "", time.Time{}
		return nil
	}
	s.doc.AccessToken = tok.AccessToken
	s.doc.RefreshToken = tok.RefreshToken
	s.doc.Expiry = tok.Expiry
	return nil
}

func (s *MemoryStore) SetAccessToken(access string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.AccessToken = access
	s.doc.Expiry = expiry
	return nil
}

func (s *MemoryStore) Clear() error { return s.Save(nil) }

func (s *MemoryStore) RememberedUsername() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.RememberedUsername
}

func (s *MemoryStore) SetRememberedUsername(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.RememberedUsername = username
	return nil
}

// Expiry reads the exp claim of a JWT access token without verifying it. It
// returns the zero time when the token has no readable expiry.
func Expiry(accessToken string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

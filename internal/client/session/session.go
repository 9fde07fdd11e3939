// Package session holds the authenticated identity of the client and the
// operations that create and end it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/gosuda/taskboard/internal/client/api"
	"github.com/gosuda/taskboard/internal/client/credentials"
	"github.com/gosuda/taskboard/internal/domain"
)

// Client is the subset of *api.Client the session store needs.
type Client interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (*oauth2.Token, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
	OnSessionExpired(fn func())
	Credentials() credentials.Store
}

// authenticator performs the identity-changing operations. The store keeps
// the resulting identity and notifies listeners.
type authenticator interface {
	login(ctx context.Context, req api.LoginRequest) (*domain.User, error)
	signup(ctx context.Context, req api.SignupRequest) (*domain.User, error)
	// logout ends the session and returns the identity that remains.
	logout(ctx context.Context) *domain.User
	refresh(ctx context.Context) error
	currentUser(ctx context.Context) (*domain.User, error)
	restore(ctx context.Context) (*domain.User, error)
	tokens() credentials.Store
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store is the single holder of the current identity.
type Store struct {
	auth   authenticator
	bypass bool
	log    zerolog.Logger

	mu        sync.RWMutex
	user      *domain.User
	listeners map[uint64]func(*domain.User)
	nextID    uint64
}

// New returns a store backed by the REST API.
func New(client Client, opts ...Option) *Store {
	s := newStore(opts...)
	s.auth = &remote{client: client, creds: client.Credentials(), log: s.log}
	client.OnSessionExpired(func() {
		s.log.Info().Msg("session expired")
		s.setUser(nil)
	})
	return s
}

func newStore(opts ...Option) *Store {
	s := &Store{
		log:       log.Logger,
		listeners: make(map[uint64]func(*domain.User)),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With().Str("component", "session").Logger()
	return s
}

// User returns a copy of the current identity, or nil when signed out.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Bypass reports whether the store runs with the fabricated development
// identity.
func (s *Store) Bypass() bool { return s.bypass }

// AccessToken returns the stored access token, satisfying the realtime token
// source.
func (s *Store) AccessToken() string {
	return s.auth.tokens().AccessToken()
}

func (s *Store) RememberedUsername() string {
	return s.auth.tokens().RememberedUsername()
}

// Login authenticates and stores the token pair. With remember set the
// username is kept for the next login prompt, otherwise it is forgotten.
func (s *Store) Login(ctx context.Context, username, password string, remember bool) (*domain.User, error) {
	u, err := s.auth.login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("session.Login: %w", err)
	}

	name := ""
	if remember {
		name = username
	}
	if err := s.auth.tokens().SetRememberedUsername(name); err != nil {
		s.log.Warn().Err(err).Msg("store remembered username")
	}

	s.setUser(u)
	return s.User(), nil
}

func (s *Store) Signup(ctx context.Context, req api.SignupRequest) (*domain.User, error) {
	u, err := s.auth.signup(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("session.Signup: %w", err)
	}
	s.setUser(u)
	return s.User(), nil
}

// Logout ends the session locally even when the server cannot be reached.
func (s *Store) Logout(ctx context.Context) {
	s.setUser(s.auth.logout(ctx))
}

// RefreshToken obtains a new access token. On failure the session ends.
func (s *Store) RefreshToken(ctx context.Context) error {
	if err := s.auth.refresh(ctx); err != nil {
		s.Logout(ctx)
		return fmt.Errorf("session.RefreshToken: %w", err)
	}
	return nil
}

// FetchUserData reloads the identity from the server.
func (s *Store) FetchUserData(ctx context.Context) (*domain.User, error) {
	u, err := s.auth.currentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("session.FetchUserData: %w", err)
	}
	s.setUser(u)
	return s.User(), nil
}

// Restore resumes a stored session at startup: an unexpired access token is
// used as is, an expired one is refreshed first. It returns nil without error
// when there is nothing to restore.
func (s *Store) Restore(ctx context.Context) (*domain.User, error) {
	u, err := s.auth.restore(ctx)
	if err != nil {
		if !api.IsKind(err, api.KindNetwork) {
			s.Logout(ctx)
		}
		return nil, fmt.Errorf("session.Restore: %w", err)
	}
	s.setUser(u)
	return s.User(), nil
}

// OnChange registers fn to receive every identity change; nil means signed
// out. The returned func removes the registration.
func (s *Store) OnChange(fn func(*domain.User)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) setUser(u *domain.User) {
	s.mu.Lock()
	if u == nil && s.user == nil {
		s.mu.Unlock()
		return
	}
	if u != nil {
		cp := *u
		u = &cp
	}
	s.user = u
	fns := make([]func(*domain.User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		if u == nil {
			fn(nil)
			continue
		}
		cp := *u
		fn(&cp)
	}
}

// remote authenticates against the REST API.
type remote struct {
	client Client
	creds  credentials.Store
	log    zerolog.Logger
}

func (r *remote) tokens() credentials.Store { return r.creds }

func (r *remote) login(ctx context.Context, req api.LoginRequest) (*domain.User, error) {
	resp, err := r.client.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	return r.accept(ctx, resp)
}

func (r *remote) signup(ctx context.Context, req api.SignupRequest) (*domain.User, error) {
	resp, err := r.client.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, errors.New("signup response carries no user")
	}
	return r.accept(ctx, resp)
}

// accept stores the token pair of a login or signup response.
func (r *remote) accept(ctx context.Context, resp *api.AuthResponse) (*domain.User, error) {
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, errors.New("auth response carries no tokens")
	}
	tok := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       credentials.Expiry(resp.AccessToken),
	}
	if err := r.creds.Save(tok); err != nil {
		return nil, err
	}
	if resp.User != nil {
		return resp.User, nil
	}
	return r.client.CurrentUser(ctx)
}

func (r *remote) logout(ctx context.Context) *domain.User {
	if err := r.client.Logout(ctx); err != nil {
		r.log.Warn().Err(err).Msg("server logout failed")
	}
	if err := r.creds.Clear(); err != nil {
		r.log.Error().Err(err).Msg("clear credentials")
	}
	return nil
}

func (r *remote) refresh(ctx context.Context) error {
	_, err := r.client.Refresh(ctx)
	return err
}

func (r *remote) currentUser(ctx context.Context) (*domain.User, error) {
	return r.client.CurrentUser(ctx)
}

func (r *remote) restore(ctx context.Context) (*domain.User, error) {
	tok := r.creds.Token()
	if tok == nil {
		return nil, nil
	}
	if !tok.Valid() {
		if _, err := r.client.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return r.client.CurrentUser(ctx)
}

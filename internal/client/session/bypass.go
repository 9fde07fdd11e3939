package session

import (
	"context"

	"github.com/gosuda/taskboard/internal/client/api"
	"github.com/gosuda/taskboard/internal/client/credentials"
	"github.com/gosuda/taskboard/internal/domain"
)

// BypassUser is the fixed privileged identity of bypass mode.
func BypassUser() *domain.User {
	return &domain.User{
		ID:            1,
		Username:      "bypass",
		Email:         "user@example.com",
		FirstName:     "Bypass",
		LastName:      "User",
		IsAdmin:       true,
		IsSystemOwner: true,
	}
}

// NewBypass returns a development-only store that is signed in as
// BypassUser from the start and never touches the network. Logout keeps
// the identity.
func NewBypass(opts ...Option) *Store {
	s := newStore(opts...)
	s.bypass = true
	s.auth = bypassAuth{creds: credentials.NewMemoryStore()}
	s.user = BypassUser()
	s.log.Warn().Msg("authentication bypass enabled")
	return s
}

type bypassAuth struct {
	creds credentials.Store
}

func (b bypassAuth) tokens() credentials.Store { return b.creds }

func (bypassAuth) login(context.Context, api.LoginRequest) (*domain.User, error) {
	return BypassUser(), nil
}

func (bypassAuth) signup(context.Context, api.SignupRequest) (*domain.User, error) {
	return BypassUser(), nil
}

func (bypassAuth) logout(context.Context) *domain.User { return BypassUser() }

func (bypassAuth) refresh(context.Context) error { return nil }

func (bypassAuth) currentUser(context.Context) (*domain.User, error) { return BypassUser(), nil }

func (bypassAuth) restore(context.Context) (*domain.User, error) { return BypassUser(), nil }

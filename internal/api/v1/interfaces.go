package v1

import (
	"context"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Organizations() domain.OrganizationRepository
	Users() domain.UserRepository
	Projects() domain.ProjectRepository
	Tasks() domain.TaskRepository
	Comments() domain.CommentRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Signup(ctx context.Context, nu auth.NewUser) (*domain.User, auth.Tokens, error)
	Login(ctx context.Context, username, password string) (*domain.User, auth.Tokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	CreateUser(ctx context.Context, nu auth.NewUser) (*domain.User, error)
}

// EventPublisher fans mutations out to realtime subscribers. Implementations
// log delivery failures instead of returning them; a mutation never fails
// because its notification could not be sent. *notify.Broadcaster satisfies
// this interface.
type EventPublisher interface {
	PublishOrganization(ctx context.Context, organizationID int64, ev events.Event)
	PublishProject(ctx context.Context, projectID int64, ev events.Event)
}

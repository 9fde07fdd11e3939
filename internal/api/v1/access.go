package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

// currentUser returns the authenticated user or a 401 problem.
func currentUser(ctx context.Context) (*domain.User, error) {
	u, ok := middleware.UserFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}
	return u, nil
}

// visibleOrganization is the organization filter for listings: 0 (all) for
// system owners, the user's own organization otherwise.
func visibleOrganization(u *domain.User) (int64, error) {
	if u.IsSystemOwner {
		return 0, nil
	}
	if u.OrganizationID == nil {
		return 0, huma.Error403Forbidden("organization membership required")
	}
	return *u.OrganizationID, nil
}

// storeError maps repository errors onto problem responses.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(what + " not found")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(what + " already exists")
	case errors.Is(err, domain.ErrValidation):
		return huma.Error422UnprocessableEntity("invalid " + what)
	default:
		return huma.Error500InternalServerError("failed to access "+what, err)
	}
}

// loadProject fetches a project the user may see. Projects of other
// organizations are reported as missing.
func loadProject(ctx context.Context, store DataStore, u *domain.User, id int64) (*domain.Project, error) {
	p, err := store.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "project")
	}
	if !u.CanAccessOrganization(p.OrganizationID) {
		return nil, huma.Error404NotFound("project not found")
	}
	return p, nil
}

// loadTask fetches a task the user may see.
func loadTask(ctx context.Context, store DataStore, u *domain.User, id int64) (*domain.Task, error) {
	t, err := store.Tasks().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "task")
	}
	if !u.CanAccessOrganization(t.OrganizationID) {
		return nil, huma.Error404NotFound("task not found")
	}
	return t, nil
}

// canManageProject reports whether u may update or delete p.
func canManageProject(u *domain.User, p *domain.Project) bool {
	return p.OwnerID == u.ID || u.CanManageOrganization(p.OrganizationID)
}

func derefTasks(in []*domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(in))
	for _, t := range in {
		out = append(out, *t)
	}
	return out
}

package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
)

type CreateProjectInput struct {
	Body struct {
		Title          string `json:"title" minLength:"1" maxLength:"255" doc:"Project title"`
		Description    string `json:"description,omitempty" doc:"Project description"`
		OrganizationID *int64 `json:"organization_id,omitempty" doc:"Owning organization (system owner only); defaults to the caller's"`
	}
}

type ProjectOutput struct {
	Body *domain.Project
}

type ListProjectsOutput struct {
	Body []*domain.Project
}

type ProjectIDInput struct {
	ID int64 `path:"id" doc:"Project ID"`
}

type UpdateProjectInput struct {
	ID   int64 `path:"id" doc:"Project ID"`
	Body struct {
		Title       *string `json:"title,omitempty" minLength:"1" maxLength:"255" doc:"Project title"`
		Description *string `json:"description,omitempty" doc:"Project description"`
	}
}

func RegisterProjectRoutes(api huma.API, store DataStore, pub EventPublisher) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create a new project",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateProjectInput) (*ProjectOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		orgID := u.OrgID()
		if input.Body.OrganizationID != nil && *input.Body.OrganizationID != orgID {
			if !u.IsSystemOwner {
				return nil, huma.Error403Forbidden("cannot create projects in another organization")
			}
			orgID = *input.Body.OrganizationID
		}
		if orgID == 0 {
			return nil, huma.Error422UnprocessableEntity("organization_id is required")
		}
		if u.IsSystemOwner {
			if _, err := store.Organizations().GetByID(ctx, orgID); err != nil {
				return nil, storeError(err, "organization")
			}
		}

		p, err := domain.NewProject(orgID, u.ID, strings.TrimSpace(input.Body.Title), input.Body.Description)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		if err := store.Projects().Create(ctx, p); err != nil {
			return nil, storeError(err, "project")
		}

		pub.PublishOrganization(ctx, p.OrganizationID, events.ProjectCreated{Project: *p})
		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List visible projects",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *struct{}) (*ListProjectsOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		orgID, err := visibleOrganization(u)
		if err != nil {
			return nil, err
		}

		projects, err := store.Projects().List(ctx, orgID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list projects", err)
		}
		if projects == nil {
			projects = []*domain.Project{}
		}

		return &ListProjectsOutput{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project by ID",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ProjectOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		p, err := loadProject(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}
		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Update a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *UpdateProjectInput) (*ProjectOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		p, err := loadProject(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}
		if !canManageProject(u, p) {
			return nil, huma.Error403Forbidden("only the project owner or an admin can update this project")
		}

		if input.Body.Title != nil {
			p.Title = strings.TrimSpace(*input.Body.Title)
		}
		if input.Body.Description != nil {
			p.Description = *input.Body.Description
		}

		if err := store.Projects().Update(ctx, p); err != nil {
			return nil, storeError(err, "project")
		}

		pub.PublishOrganization(ctx, p.OrganizationID, events.ProjectUpdated{Project: *p})
		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-project",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}",
		Summary:       "Delete a project",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *ProjectIDInput) (*struct{}, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		p, err := loadProject(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}
		if !canManageProject(u, p) {
			return nil, huma.Error403Forbidden("only the project owner or an admin can delete this project")
		}

		if err := store.Projects().Delete(ctx, p.ID); err != nil {
			return nil, storeError(err, "project")
		}

		pub.PublishOrganization(ctx, p.OrganizationID, events.ProjectDeleted{ID: p.ID, OrganizationID: p.OrganizationID})
		return nil, nil
	})
}

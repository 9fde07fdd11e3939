package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/domain"
)

type OrganizationOutput struct {
	Body *domain.Organization
}

type ListOrganizationsOutput struct {
	Body []*domain.Organization
}

type CreateOrganizationInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Organization name"`
		Slug string `json:"slug,omitempty" maxLength:"63" pattern:"^[a-z0-9-]*$" doc:"URL-safe identifier; derived from the name when omitted"`
	}
}

type UpdateOrganizationInput struct {
	ID   int64 `path:"id" doc:"Organization ID"`
	Body struct {
		Name *string `json:"name,omitempty" minLength:"1" maxLength:"255" doc:"Organization name"`
		Slug *string `json:"slug,omitempty" minLength:"1" maxLength:"63" pattern:"^[a-z0-9-]+$" doc:"URL-safe identifier"`
	}
}

type OrganizationIDInput struct {
	ID int64 `path:"id" doc:"Organization ID"`
}

// RegisterPublicRoutes registers unauthenticated read-only operations.
func RegisterPublicRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-public-organizations",
		Method:      http.MethodGet,
		Path:        "/public/organizations",
		Summary:     "List organizations available at signup",
		Tags:        []string{"Organizations"},
	}, func(ctx context.Context, _ *struct{}) (*ListOrganizationsOutput, error) {
		orgs, err := store.Organizations().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list organizations", err)
		}
		if orgs == nil {
			orgs = []*domain.Organization{}
		}
		return &ListOrganizationsOutput{Body: orgs}, nil
	})
}

func RegisterOrganizationRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-organizations",
		Method:      http.MethodGet,
		Path:        "/organizations",
		Summary:     "List visible organizations",
		Tags:        []string{"Organizations"},
	}, func(ctx context.Context, _ *struct{}) (*ListOrganizationsOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		if !u.IsSystemOwner {
			orgs := []*domain.Organization{}
			if u.OrganizationID != nil {
				org, err := store.Organizations().GetByID(ctx, *u.OrganizationID)
				if err != nil {
					return nil, storeError(err, "organization")
				}
				orgs = append(orgs, org)
			}
			return &ListOrganizationsOutput{Body: orgs}, nil
		}

		orgs, err := store.Organizations().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list organizations", err)
		}
		if orgs == nil {
			orgs = []*domain.Organization{}
		}
		return &ListOrganizationsOutput{Body: orgs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-organization",
		Method:        http.MethodPost,
		Path:          "/organizations",
		Summary:       "Create an organization (system owner)",
		Tags:          []string{"Organizations"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateOrganizationInput) (*OrganizationOutput, error) {
		if err := requireOwner(ctx); err != nil {
			return nil, err
		}

		org := &domain.Organization{
			Name: strings.TrimSpace(input.Body.Name),
			Slug: input.Body.Slug,
		}
		if org.Slug == "" {
			org.Slug = domain.Slugify(org.Name)
			// Derived slugs must not collide with an existing organization.
			if _, err := store.Organizations().GetBySlug(ctx, org.Slug); err == nil {
				org.Slug += "-" + uuid.NewString()[:8]
			}
		}

		if err := store.Organizations().Create(ctx, org); err != nil {
			return nil, storeError(err, "organization")
		}
		return &OrganizationOutput{Body: org}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-organization",
		Method:      http.MethodPatch,
		Path:        "/organizations/{id}",
		Summary:     "Update an organization (system owner)",
		Tags:        []string{"Organizations"},
	}, func(ctx context.Context, input *UpdateOrganizationInput) (*OrganizationOutput, error) {
		if err := requireOwner(ctx); err != nil {
			return nil, err
		}

		org, err := store.Organizations().GetByID(ctx, input.ID)
		if err != nil {
			return nil, storeError(err, "organization")
		}
		if input.Body.Name != nil {
			org.Name = strings.TrimSpace(*input.Body.Name)
		}
		if input.Body.Slug != nil {
			org.Slug = *input.Body.Slug
		}

		if err := store.Organizations().Update(ctx, org); err != nil {
			return nil, storeError(err, "organization")
		}
		return &OrganizationOutput{Body: org}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-organization",
		Method:        http.MethodDelete,
		Path:          "/organizations/{id}",
		Summary:       "Delete an organization (system owner)",
		Tags:          []string{"Organizations"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *OrganizationIDInput) (*struct{}, error) {
		if err := requireOwner(ctx); err != nil {
			return nil, err
		}
		if err := store.Organizations().Delete(ctx, input.ID); err != nil {
			return nil, storeError(err, "organization")
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-organization-projects",
		Method:      http.MethodGet,
		Path:        "/organizations/{id}/projects",
		Summary:     "List projects of an organization",
		Tags:        []string{"Organizations"},
	}, func(ctx context.Context, input *OrganizationIDInput) (*ListProjectsOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		if !u.CanAccessOrganization(input.ID) {
			return nil, huma.Error404NotFound("organization not found")
		}

		projects, err := store.Projects().List(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list projects", err)
		}
		if projects == nil {
			projects = []*domain.Project{}
		}
		return &ListProjectsOutput{Body: projects}, nil
	})
}

func requireOwner(ctx context.Context) error {
	u, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if !u.IsSystemOwner {
		return huma.Error403Forbidden("system owner privileges required")
	}
	return nil
}

package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
)

type UserOutput struct {
	Body *domain.User
}

type ListUsersOutput struct {
	Body []*domain.User
}

type UserPatchBody struct {
	Email          *string `json:"email,omitempty" maxLength:"255" doc:"User email"`
	FirstName      *string `json:"first_name,omitempty" maxLength:"150" doc:"First name"`
	LastName       *string `json:"last_name,omitempty" maxLength:"150" doc:"Last name"`
	Password       *string `json:"password,omitempty" minLength:"1" maxLength:"128" doc:"New password"` //nolint:gosec // G117: password change DTO
	OrganizationID *int64  `json:"organization_id,omitempty" doc:"Move the user to another organization (system owner only)"`
}

type UpdateMeInput struct {
	Body UserPatchBody
}

type UpdateUserInput struct {
	ID   int64 `path:"id" doc:"User ID"`
	Body UserPatchBody
}

type CreateUserInput struct {
	Body struct {
		Username       string `json:"username" minLength:"1" maxLength:"150" doc:"Login name"`
		Email          string `json:"email,omitempty" maxLength:"255" doc:"User email"`
		Password       string `json:"password" minLength:"1" maxLength:"128" doc:"Initial password"` //nolint:gosec // G117: user creation DTO
		FirstName      string `json:"first_name,omitempty" maxLength:"150" doc:"First name"`
		LastName       string `json:"last_name,omitempty" maxLength:"150" doc:"Last name"`
		IsAdmin        bool   `json:"is_admin,omitempty" doc:"Grant organization admin"`
		OrganizationID *int64 `json:"organization_id,omitempty" doc:"Organization (system owner only); defaults to the caller's"`
	}
}

type UserIDInput struct {
	ID int64 `path:"id" doc:"User ID"`
}

func RegisterUserRoutes(api huma.API, store DataStore, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-current-user",
		Method:      http.MethodGet,
		Path:        "/users/me",
		Summary:     "Get the authenticated user",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*UserOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		return &UserOutput{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-current-user",
		Method:      http.MethodPatch,
		Path:        "/users/me",
		Summary:     "Update the authenticated user",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UpdateMeInput) (*UserOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		return updateUser(ctx, store, u, u.ID, input.Body)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users of the caller's organization",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*ListUsersOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		orgID, err := visibleOrganization(u)
		if err != nil {
			return nil, err
		}

		users, err := store.Users().List(ctx, orgID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list users", err)
		}
		if users == nil {
			users = []*domain.User{}
		}
		return &ListUsersOutput{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create a user (admin)",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		if !u.IsAdmin && !u.IsSystemOwner {
			return nil, huma.Error403Forbidden("admin privileges required")
		}

		orgID := u.OrganizationID
		if input.Body.OrganizationID != nil {
			if !u.IsSystemOwner && (orgID == nil || *orgID != *input.Body.OrganizationID) {
				return nil, huma.Error403Forbidden("cannot create users in another organization")
			}
			orgID = input.Body.OrganizationID
		}

		created, err := authSvc.CreateUser(ctx, auth.NewUser{
			Username:       input.Body.Username,
			Email:          input.Body.Email,
			Password:       input.Body.Password,
			FirstName:      input.Body.FirstName,
			LastName:       input.Body.LastName,
			IsAdmin:        input.Body.IsAdmin,
			OrganizationID: orgID,
		})
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserAlreadyExists):
				return nil, huma.Error409Conflict("username already taken")
			case errors.Is(err, domain.ErrValidation):
				return nil, huma.Error422UnprocessableEntity("username and password are required")
			}
			return nil, huma.Error500InternalServerError("failed to create user", err)
		}
		return &UserOutput{Body: created}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPatch,
		Path:        "/users/{id}",
		Summary:     "Update a user (self or system owner)",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UpdateUserInput) (*UserOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		if u.ID != input.ID && !u.IsSystemOwner {
			return nil, huma.Error403Forbidden("cannot modify other users")
		}
		return updateUser(ctx, store, u, input.ID, input.Body)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-user",
		Method:        http.MethodDelete,
		Path:          "/users/{id}",
		Summary:       "Delete a user (self or system owner)",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *UserIDInput) (*struct{}, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		if u.ID != input.ID && !u.IsSystemOwner {
			return nil, huma.Error403Forbidden("cannot delete other users")
		}
		if err := store.Users().Delete(ctx, input.ID); err != nil {
			return nil, storeError(err, "user")
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-admin",
		Method:      http.MethodPost,
		Path:        "/users/{id}/toggle-admin",
		Summary:     "Grant or revoke organization admin",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UserIDInput) (*UserOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}

		target, err := store.Users().GetByID(ctx, input.ID)
		if err != nil {
			return nil, storeError(err, "user")
		}
		if !u.CanManageOrganization(target.OrgID()) {
			return nil, huma.Error403Forbidden("admin privileges required for this organization")
		}
		if target.ID == u.ID {
			return nil, huma.Error400BadRequest("cannot change your own admin status")
		}
		if target.IsSystemOwner {
			return nil, huma.Error400BadRequest("system owners are always admins")
		}

		target.IsAdmin = !target.IsAdmin
		if err := store.Users().Update(ctx, target); err != nil {
			return nil, storeError(err, "user")
		}
		return &UserOutput{Body: target}, nil
	})
}

func updateUser(ctx context.Context, store DataStore, actor *domain.User, id int64, patch UserPatchBody) (*UserOutput, error) {
	target, err := store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user")
	}

	if patch.Email != nil {
		target.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.FirstName != nil {
		target.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		target.LastName = *patch.LastName
	}
	if patch.OrganizationID != nil {
		if !actor.IsSystemOwner {
			return nil, huma.Error403Forbidden("only system owners can move users between organizations")
		}
		if _, err := store.Organizations().GetByID(ctx, *patch.OrganizationID); err != nil {
			return nil, storeError(err, "organization")
		}
		orgID := *patch.OrganizationID
		target.OrganizationID = &orgID
	}
	if patch.Password != nil {
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to hash password", err)
		}
		target.PasswordHash = hash
	}

	if err := store.Users().Update(ctx, target); err != nil {
		return nil, storeError(err, "user")
	}
	return &UserOutput{Body: target}, nil
}

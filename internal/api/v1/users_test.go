package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/taskboard/internal/api/v1"
	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
)

// usersRepo serves the given users and records updates.
func usersRepo(updated *[]*domain.User, list ...*domain.User) *mockUserRepo {
	return &mockUserRepo{
		getByIDFunc: func(_ context.Context, id int64) (*domain.User, error) {
			for _, u := range list {
				if u.ID == id {
					cp := *u
					return &cp, nil
				}
			}
			return nil, domain.ErrNotFound
		},
		updateFunc: func(_ context.Context, u *domain.User) error {
			if updated != nil {
				*updated = append(*updated, u)
			}
			return nil
		},
		deleteFunc: func(context.Context, int64) error { return nil },
	}
}

func TestGetCurrentUser(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	v1.RegisterUserRoutes(api, &mockDataStore{}, &mockAuthService{})

	resp := api.GetCtx(userCtx(adminUser()), "/users/me")
	require.Equal(t, http.StatusOK, resp.Code)

	var body domain.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "admin", body.Username)
	assert.True(t, body.IsAdmin)

	resp = api.Get("/users/me")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUpdateCurrentUser(t *testing.T) {
	t.Parallel()

	t.Run("updates profile and hashes password", func(t *testing.T) {
		t.Parallel()

		var updated []*domain.User
		me := memberUser()
		_, api := humatest.New(t)
		v1.RegisterUserRoutes(api, &mockDataStore{users: usersRepo(&updated, me)}, &mockAuthService{})

		resp := api.PatchCtx(userCtx(me), "/users/me", map[string]any{
			"first_name": "Mem",
			"email":      " mem@example.com ",
			"password":   "new-secret",
		})
		require.Equal(t, http.StatusOK, resp.Code)
		require.Len(t, updated, 1)
		assert.Equal(t, "Mem", updated[0].FirstName)
		assert.Equal(t, "mem@example.com", updated[0].Email)
		assert.NotEmpty(t, updated[0].PasswordHash)
		assert.NotEqual(t, "new-secret", updated[0].PasswordHash)
		assert.NotContains(t, resp.Body.String(), "new-secret")
	})

	t.Run("members cannot change organization", func(t *testing.T) {
		t.Parallel()

		me := memberUser()
		_, api := humatest.New(t)
		v1.RegisterUserRoutes(api, &mockDataStore{users: usersRepo(nil, me)}, &mockAuthService{})

		resp := api.PatchCtx(userCtx(me), "/users/me", map[string]any{"organization_id": 99})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestListUsers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		user       *domain.User
		wantOrg    int64
		wantStatus int
	}{
		{name: "member sees own organization", user: memberUser(), wantOrg: testOrgID, wantStatus: http.StatusOK},
		{name: "owner sees everyone", user: ownerUser(), wantOrg: 0, wantStatus: http.StatusOK},
		{name: "user without organization", user: &domain.User{ID: 9}, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			store := &mockDataStore{users: &mockUserRepo{
				listFunc: func(_ context.Context, orgID int64) ([]*domain.User, error) {
					assert.Equal(t, tt.wantOrg, orgID)
					return nil, nil
				},
			}}
			v1.RegisterUserRoutes(api, store, &mockAuthService{})

			resp := api.GetCtx(userCtx(tt.user), "/users")
			require.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, "[]", resp.Body.String())
			}
		})
	}
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	t.Run("admin creates user in own organization", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockAuthService{
			createUserFunc: func(_ context.Context, nu auth.NewUser) (*domain.User, error) {
				require.NotNil(t, nu.OrganizationID)
				assert.Equal(t, testOrgID, *nu.OrganizationID)
				assert.True(t, nu.IsAdmin)
				return &domain.User{ID: 50, Username: nu.Username, IsAdmin: nu.IsAdmin, OrganizationID: nu.OrganizationID}, nil
			},
		}
		v1.RegisterUserRoutes(api, &mockDataStore{}, svc)

		resp := api.PostCtx(userCtx(adminUser()), "/users", map[string]any{
			"username": "newbie", "password": "pw", "is_admin": true,
		})
		assert.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterUserRoutes(api, &mockDataStore{}, &mockAuthService{})

		resp := api.PostCtx(userCtx(memberUser()), "/users", map[string]any{"username": "x", "password": "pw"})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("admin cannot target another organization", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterUserRoutes(api, &mockDataStore{}, &mockAuthService{})

		resp := api.PostCtx(userCtx(adminUser()), "/users", map[string]any{
			"username": "x", "password": "pw", "organization_id": 99,
		})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("duplicate username returns 409", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockAuthService{
			createUserFunc: func(context.Context, auth.NewUser) (*domain.User, error) {
				return nil, auth.ErrUserAlreadyExists
			},
		}
		v1.RegisterUserRoutes(api, &mockDataStore{}, svc)

		resp := api.PostCtx(userCtx(ownerUser()), "/users", map[string]any{"username": "x", "password": "pw"})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})
}

func TestUpdateAndDeleteOtherUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		actor      *domain.User
		wantStatus int
	}{
		{name: "self", actor: memberUser(), wantStatus: http.StatusOK},
		{name: "system owner", actor: ownerUser(), wantStatus: http.StatusOK},
		{name: "org admin is not enough", actor: adminUser(), wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			store := &mockDataStore{users: usersRepo(nil, memberUser())}
			v1.RegisterUserRoutes(api, store, &mockAuthService{})

			resp := api.PatchCtx(userCtx(tt.actor), "/users/1", map[string]any{"last_name": "Smith"})
			assert.Equal(t, tt.wantStatus, resp.Code)

			resp = api.DeleteCtx(userCtx(tt.actor), "/users/1")
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, http.StatusNoContent, resp.Code)
			} else {
				assert.Equal(t, tt.wantStatus, resp.Code)
			}
		})
	}
}

func TestToggleAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		actor      *domain.User
		target     int64
		wantStatus int
		wantAdmin  bool
	}{
		{name: "admin promotes member", actor: adminUser(), target: 1, wantStatus: http.StatusOK, wantAdmin: true},
		{name: "owner promotes member", actor: ownerUser(), target: 1, wantStatus: http.StatusOK, wantAdmin: true},
		{name: "member is forbidden", actor: memberUser(), target: 2, wantStatus: http.StatusForbidden},
		{name: "admin of another organization", actor: &domain.User{ID: 8, IsAdmin: true, OrganizationID: int64Ptr(99)}, target: 1, wantStatus: http.StatusForbidden},
		{name: "cannot toggle self", actor: adminUser(), target: 2, wantStatus: http.StatusBadRequest},
		{name: "unknown user", actor: ownerUser(), target: 404, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var updated []*domain.User
			_, api := humatest.New(t)
			store := &mockDataStore{users: usersRepo(&updated, memberUser(), adminUser())}
			v1.RegisterUserRoutes(api, store, &mockAuthService{})

			resp := api.PostCtx(userCtx(tt.actor), "/users/"+itoa(tt.target)+"/toggle-admin")
			require.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, updated)
				return
			}

			require.Len(t, updated, 1)
			assert.Equal(t, tt.wantAdmin, updated[0].IsAdmin)
		})
	}
}

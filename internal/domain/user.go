package domain

import (
	"context"
	"time"
)

// Roles carried in access tokens. They are derived from the user flags.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	PasswordHash   string    `json:"-"` // argon2id
	IsAdmin        bool      `json:"is_admin"`
	IsSystemOwner  bool      `json:"is_system_owner"`
	OrganizationID *int64    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Role returns the most privileged role the user holds.
func (u *User) Role() string {
	switch {
	case u.IsSystemOwner:
		return RoleOwner
	case u.IsAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}

// OrgID returns the user's organization ID, or 0 when the user has none.
func (u *User) OrgID() int64 {
	if u.OrganizationID == nil {
		return 0
	}
	return *u.OrganizationID
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	// List returns users of one organization, or all users when organizationID is 0.
	List(ctx context.Context, organizationID int64) ([]*User, error)
	Delete(ctx context.Context, id int64) error
}

// CanAccessOrganization reports whether the user may see resources owned by
// the given organization. System owners see every organization.
func (u *User) CanAccessOrganization(organizationID int64) bool {
	if u.IsSystemOwner {
		return true
	}
	return organizationID != 0 && u.OrgID() == organizationID
}

// CanManageOrganization reports whether the user administers the given
// organization.
func (u *User) CanManageOrganization(organizationID int64) bool {
	if u.IsSystemOwner {
		return true
	}
	return u.IsAdmin && u.CanAccessOrganization(organizationID)
}

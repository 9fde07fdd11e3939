package domain

import (
	"context"
	"errors"
	"time"
)

type Project struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	OwnerID        int64     `json:"owner_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewProject creates a Project with validated required fields.
func NewProject(organizationID, ownerID int64, title, description string) (*Project, error) {
	if organizationID == 0 {
		return nil, errors.New("project: organization ID is required")
	}
	if ownerID == 0 {
		return nil, errors.New("project: owner ID is required")
	}
	if title == "" {
		return nil, errors.New("project: title is required")
	}
	now := time.Now()
	return &Project{
		OrganizationID: organizationID,
		OwnerID:        ownerID,
		Title:          title,
		Description:    description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id int64) (*Project, error)
	Update(ctx context.Context, p *Project) error
	// List returns projects of one organization, or of all organizations when
	// organizationID is 0.
	List(ctx context.Context, organizationID int64) ([]*Project, error)
	Delete(ctx context.Context, id int64) error
}

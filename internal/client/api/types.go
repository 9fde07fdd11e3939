package api

import (
	"time"

	"github.com/gosuda/taskboard/internal/domain"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"` //nolint:gosec // G117: login credential DTO
}

type SignupRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"` //nolint:gosec // G117: signup credential DTO
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
}

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`  //nolint:gosec // G117: auth response DTO
	RefreshToken string       `json:"refresh_token"` //nolint:gosec // G117: auth response DTO
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: token refresh DTO
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`            //nolint:gosec // G117: auth response DTO
	RefreshToken string `json:"refresh_token,omitempty"` //nolint:gosec // G117: auth response DTO
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"` //nolint:gosec // G117: logout DTO
}

type UserInput struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"` //nolint:gosec // G117: user creation DTO
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	IsAdmin        bool   `json:"is_admin,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
}

type UserPatch struct {
	Email          *string `json:"email,omitempty"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	Password       *string `json:"password,omitempty"` //nolint:gosec // G117: password change DTO
	OrganizationID *int64  `json:"organization_id,omitempty"`
}

type OrganizationInput struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type OrganizationPatch struct {
	Name *string `json:"name,omitempty"`
	Slug *string `json:"slug,omitempty"`
}

type ProjectInput struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
}

type ProjectPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type TaskInput struct {
	ProjectID   int64               `json:"project_id,omitempty"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Status      domain.TaskStatus   `json:"status,omitempty"`
	Priority    domain.TaskPriority `json:"priority,omitempty"`
	AssigneeID  *int64              `json:"assignee_id,omitempty"`
	DueDate     *time.Time          `json:"due_date,omitempty"`
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Title         *string              `json:"title,omitempty"`
	Description   *string              `json:"description,omitempty"`
	Status        *domain.TaskStatus   `json:"status,omitempty"`
	Priority      *domain.TaskPriority `json:"priority,omitempty"`
	AssigneeID    *int64               `json:"assignee_id,omitempty"`
	ClearAssignee bool                 `json:"clear_assignee,omitempty"`
	DueDate       *time.Time           `json:"due_date,omitempty"`
	ClearDueDate  bool                 `json:"clear_due_date,omitempty"`
	Position      *int                 `json:"position,omitempty"`
}

// TaskQuery filters GET /tasks. Zero values are omitted.
type TaskQuery struct {
	ProjectID  int64
	Status     domain.TaskStatus
	AssigneeID int64
}

type commentInput struct {
	Content string `json:"content"`
}

type BoardColumn struct {
	Status domain.TaskStatus `json:"status"`
	Tasks  []domain.Task     `json:"tasks"`
}

type Board struct {
	ProjectID int64         `json:"project_id"`
	Columns   []BoardColumn `json:"columns"`
}

// Tasks flattens the board into one list.
func (b *Board) Tasks() []domain.Task {
	var out []domain.Task
	for _, col := range b.Columns {
		out = append(out, col.Tasks...)
	}
	return out
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gosuda/taskboard/internal/domain"
)

func idPath(prefix string, id int64, suffix ...string) string {
	p := prefix + "/" + strconv.FormatInt(id, 10)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &u); err != nil {
		return nil, fmt.Errorf("api.CurrentUser: %w", err)
	}
	return &u, nil
}

func (c *Client) UpdateCurrentUser(ctx context.Context, patch UserPatch) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodPatch, "/users/me", nil, patch, &u); err != nil {
		return nil, fmt.Errorf("api.UpdateCurrentUser: %w", err)
	}
	return &u, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("api.ListUsers: %w", err)
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodPost, "/users", nil, in, &u); err != nil {
		return nil, fmt.Errorf("api.CreateUser: %w", err)
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodPatch, idPath("/users", id), nil, patch, &u); err != nil {
		return nil, fmt.Errorf("api.UpdateUser: %w", err)
	}
	return &u, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/users", id), nil, nil, nil); err != nil {
		return fmt.Errorf("api.DeleteUser: %w", err)
	}
	return nil
}

func (c *Client) ToggleAdmin(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodPost, idPath("/users", id, "toggle-admin"), nil, nil, &u); err != nil {
		return nil, fmt.Errorf("api.ToggleAdmin: %w", err)
	}
	return &u, nil
}

// ---------------------------------------------------------------------------
// Organizations
// ---------------------------------------------------------------------------

// PublicOrganizations lists organizations for the signup form. No token needed.
func (c *Client) PublicOrganizations(ctx context.Context) ([]domain.Organization, error) {
	var out []domain.Organization
	if err := c.call(ctx, http.MethodGet, "/public/organizations", nil, nil, &out, nil); err != nil {
		return nil, fmt.Errorf("api.PublicOrganizations: %w", err)
	}
	return out, nil
}

func (c *Client) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	var out []domain.Organization
	if err := c.do(ctx, http.MethodGet, "/organizations", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("api.ListOrganizations: %w", err)
	}
	return out, nil
}

func (c *Client) CreateOrganization(ctx context.Context, in OrganizationInput) (*domain.Organization, error) {
	var o domain.Organization
	if err := c.do(ctx, http.MethodPost, "/organizations", nil, in, &o); err != nil {
		return nil, fmt.Errorf("api.CreateOrganization: %w", err)
	}
	return &o, nil
}

func (c *Client) UpdateOrganization(ctx context.Context, id int64, patch OrganizationPatch) (*domain.Organization, error) {
	var o domain.Organization
	if err := c.do(ctx, http.MethodPatch, idPath("/organizations", id), nil, patch, &o); err != nil {
		return nil, fmt.Errorf("api.UpdateOrganization: %w", err)
	}
	return &o, nil
}

func (c *Client) DeleteOrganization(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/organizations", id), nil, nil, nil); err != nil {
		return fmt.Errorf("api.DeleteOrganization: %w", err)
	}
	return nil
}

func (c *Client) OrganizationProjects(ctx context.Context, id int64) ([]domain.Project, error) {
	var out []domain.Project
	if err := c.do(ctx, http.MethodGet, idPath("/organizations", id, "projects"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("api.OrganizationProjects: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("api.ListProjects: %w", err)
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodGet, idPath("/projects", id), nil, nil, &p); err != nil {
		return nil, fmt.Errorf("api.GetProject: %w", err)
	}
	return &p, nil
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodPost, "/projects", nil, in, &p); err != nil {
		return nil, fmt.Errorf("api.CreateProject: %w", err)
	}
	return &p, nil
}

func (c *Client) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodPatch, idPath("/projects", id), nil, patch, &p); err != nil {
		return nil, fmt.Errorf("api.UpdateProject: %w", err)
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/projects", id), nil, nil, nil); err != nil {
		return fmt.Errorf("api.DeleteProject: %w", err)
	}
	return nil
}

// ListProjectTasks returns every task of a project.
func (c *Client) ListProjectTasks(ctx context.Context, projectID int64) ([]domain.Task, error) {
	var out []domain.Task
	if err := c.do(ctx, http.MethodGet, idPath("/projects", projectID, "tasks"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("api.ListProjectTasks: %w", err)
	}
	return out, nil
}

func (c *Client) CreateProjectTask(ctx context.Context, projectID int64, in TaskInput) (*domain.Task, error) {
	in.ProjectID = 0
	var t domain.Task
	if err := c.do(ctx, http.MethodPost, idPath("/projects", projectID, "tasks"), nil, in, &t); err != nil {
		return nil, fmt.Errorf("api.CreateProjectTask: %w", err)
	}
	return &t, nil
}

func (c *Client) GetBoard(ctx context.Context, projectID int64) (*Board, error) {
	var b Board
	if err := c.do(ctx, http.MethodGet, idPath("/boards", projectID), nil, nil, &b); err != nil {
		return nil, fmt.Errorf("api.GetBoard: %w", err)
	}
	return &b, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]domain.Task, error) {
	query := url.Values{}
	if q.ProjectID != 0 {
		query.Set("project_id", strconv.FormatInt(q.ProjectID, 10))
	}
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}
	if q.AssigneeID != 0 {
		query.Set("assignee_id", strconv.FormatInt(q.AssigneeID, 10))
	}

	var out []domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", query, nil, &out); err != nil {
		return nil, fmt.Errorf("api.ListTasks: %w", err)
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, http.MethodGet, idPath("/tasks", id), nil, nil, &t); err != nil {
		return nil, fmt.Errorf("api.GetTask: %w", err)
	}
	return &t, nil
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, in, &t); err != nil {
		return nil, fmt.Errorf("api.CreateTask: %w", err)
	}
	return &t, nil
}

func (c *Client) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, http.MethodPatch, idPath("/tasks", id), nil, patch, &t); err != nil {
		return nil, fmt.Errorf("api.UpdateTask: %w", err)
	}
	return &t, nil
}

// MoveTask persists a board move.
func (c *Client) MoveTask(ctx context.Context, taskID int64, status domain.TaskStatus, position int) (*domain.Task, error) {
	return c.UpdateTask(ctx, taskID, TaskPatch{Status: &status, Position: &position})
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/tasks", id), nil, nil, nil); err != nil {
		return fmt.Errorf("api.DeleteTask: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

func (c *Client) ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	var out []domain.Comment
	if err := c.do(ctx, http.MethodGet, idPath("/tasks", taskID, "comments"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("api.ListComments: %w", err)
	}
	return out, nil
}

func (c *Client) CreateComment(ctx context.Context, taskID int64, content string) (*domain.Comment, error) {
	var cm domain.Comment
	if err := c.do(ctx, http.MethodPost, idPath("/tasks", taskID, "comments"), nil, commentInput{Content: content}, &cm); err != nil {
		return nil, fmt.Errorf("api.CreateComment: %w", err)
	}
	return &cm, nil
}

func (c *Client) UpdateComment(ctx context.Context, id int64, content string) (*domain.Comment, error) {
	var cm domain.Comment
	if err := c.do(ctx, http.MethodPatch, idPath("/comments", id), nil, commentInput{Content: content}, &cm); err != nil {
		return nil, fmt.Errorf("api.UpdateComment: %w", err)
	}
	return &cm, nil
}

func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/comments", id), nil, nil, nil); err != nil {
		return fmt.Errorf("api.DeleteComment: %w", err)
	}
	return nil
}

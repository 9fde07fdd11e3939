package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
)

// TaskBody is the creation payload shared by POST /tasks and
// POST /projects/{id}/tasks.
type TaskBody struct {
	ProjectID   int64      `json:"project_id,omitempty" doc:"Project ID (taken from the path on project routes)"`
	Title       string     `json:"title" minLength:"1" maxLength:"255" doc:"Task title"`
	Description string     `json:"description,omitempty" doc:"Task description"`
	Status      string     `json:"status,omitempty" enum:"todo,in_progress,done" doc:"Board column; todo when omitted"`
	Priority    string     `json:"priority,omitempty" enum:"low,medium,high" doc:"Priority; medium when omitted"`
	AssigneeID  *int64     `json:"assignee_id,omitempty" doc:"Assigned user ID"`
	DueDate     *time.Time `json:"due_date,omitempty" doc:"Due date"`
}

type CreateTaskInput struct {
	Body TaskBody
}

type CreateProjectTaskInput struct {
	ID   int64 `path:"id" doc:"Project ID"`
	Body TaskBody
}

type TaskOutput struct {
	Body *domain.Task
}

type ListTasksInput struct {
	ProjectID  int64  `query:"project_id" doc:"Filter by project"`
	Status     string `query:"status" enum:"todo,in_progress,done" doc:"Filter by status"`
	AssigneeID int64  `query:"assignee_id" doc:"Filter by assignee"`
}

type ListTasksOutput struct {
	Body []domain.Task
}

type TaskIDInput struct {
	ID int64 `path:"id" doc:"Task ID"`
}

type UpdateTaskInput struct {
	ID   int64 `path:"id" doc:"Task ID"`
	Body struct {
		Title         *string    `json:"title,omitempty" minLength:"1" maxLength:"255" doc:"Task title"`
		Description   *string    `json:"description,omitempty" doc:"Task description"`
		Status        *string    `json:"status,omitempty" enum:"todo,in_progress,done" doc:"Board column"`
		Priority      *string    `json:"priority,omitempty" enum:"low,medium,high" doc:"Priority"`
		AssigneeID    *int64     `json:"assignee_id,omitempty" doc:"Assigned user ID"`
		ClearAssignee bool       `json:"clear_assignee,omitempty" doc:"Remove the assignee"`
		DueDate       *time.Time `json:"due_date,omitempty" doc:"Due date"`
		ClearDueDate  bool       `json:"clear_due_date,omitempty" doc:"Remove the due date"`
		Position      *int       `json:"position,omitempty" minimum:"0" doc:"Index within the column"`
	}
}

func RegisterTaskRoutes(api huma.API, store DataStore, pub EventPublisher) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a new task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		if input.Body.ProjectID == 0 {
			return nil, huma.Error422UnprocessableEntity("project_id is required")
		}
		return createTask(ctx, store, pub, input.Body.ProjectID, input.Body)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project-task",
		Method:        http.MethodPost,
		Path:          "/projects/{id}/tasks",
		Summary:       "Create a task in a project",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateProjectTaskInput) (*TaskOutput, error) {
		return createTask(ctx, store, pub, input.ID, input.Body)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List visible tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		orgID, err := visibleOrganization(u)
		if err != nil {
			return nil, err
		}

		tasks, err := store.Tasks().List(ctx, domain.TaskFilter{
			OrganizationID: orgID,
			ProjectID:      input.ProjectID,
			Status:         domain.TaskStatus(input.Status),
			AssigneeID:     input.AssigneeID,
		})
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tasks", err)
		}

		return &ListTasksOutput{Body: derefTasks(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/tasks",
		Summary:     "List tasks of a project",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ListTasksOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		p, err := loadProject(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}

		tasks, err := store.Tasks().List(ctx, domain.TaskFilter{ProjectID: p.ID})
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tasks", err)
		}

		return &ListTasksOutput{Body: derefTasks(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		t, err := loadTask(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update or move a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		existing, err := loadTask(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}

		b := input.Body
		if b.Title != nil {
			existing.Title = strings.TrimSpace(*b.Title)
		}
		if b.Description != nil {
			existing.Description = *b.Description
		}
		if b.Status != nil && domain.TaskStatus(*b.Status) != existing.Status {
			existing.Status = domain.TaskStatus(*b.Status)
			existing.Position = domain.PositionEnd
		}
		if b.Priority != nil {
			existing.Priority = domain.TaskPriority(*b.Priority)
		}
		switch {
		case b.ClearAssignee:
			existing.AssigneeID = nil
		case b.AssigneeID != nil:
			if err := checkAssignee(ctx, store, existing.OrganizationID, *b.AssigneeID); err != nil {
				return nil, err
			}
			existing.AssigneeID = b.AssigneeID
		}
		switch {
		case b.ClearDueDate:
			existing.DueDate = nil
		case b.DueDate != nil:
			existing.DueDate = b.DueDate
		}
		if b.Position != nil {
			existing.Position = *b.Position
		}

		// The store renumbers the affected columns and reports the final slot.
		if err := store.Tasks().Update(ctx, existing); err != nil {
			return nil, storeError(err, "task")
		}

		pub.PublishProject(ctx, existing.ProjectID, events.TaskUpdated{Task: *existing})
		return &TaskOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete a task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *TaskIDInput) (*struct{}, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		t, err := loadTask(ctx, store, u, input.ID)
		if err != nil {
			return nil, err
		}

		if err := store.Tasks().Delete(ctx, t.ID); err != nil {
			return nil, storeError(err, "task")
		}

		pub.PublishProject(ctx, t.ProjectID, events.TaskDeleted{ID: t.ID, ProjectID: t.ProjectID})
		return nil, nil
	})
}

func createTask(ctx context.Context, store DataStore, pub EventPublisher, projectID int64, body TaskBody) (*TaskOutput, error) {
	u, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := loadProject(ctx, store, u, projectID)
	if err != nil {
		return nil, err
	}

	t := &domain.Task{
		OrganizationID: p.OrganizationID,
		ProjectID:      p.ID,
		Title:          strings.TrimSpace(body.Title),
		Description:    body.Description,
		Status:         domain.TaskStatusTodo,
		Priority:       domain.TaskPriorityMedium,
		DueDate:        body.DueDate,
	}
	if body.Status != "" {
		t.Status = domain.TaskStatus(body.Status)
	}
	if body.Priority != "" {
		t.Priority = domain.TaskPriority(body.Priority)
	}
	if body.AssigneeID != nil {
		if err := checkAssignee(ctx, store, p.OrganizationID, *body.AssigneeID); err != nil {
			return nil, err
		}
		t.AssigneeID = body.AssigneeID
	}

	if err := store.Tasks().Create(ctx, t); err != nil {
		return nil, storeError(err, "task")
	}

	pub.PublishProject(ctx, t.ProjectID, events.TaskCreated{Task: *t})
	return &TaskOutput{Body: t}, nil
}

// checkAssignee requires the assignee to belong to the task's organization.
func checkAssignee(ctx context.Context, store DataStore, organizationID, assigneeID int64) error {
	assignee, err := store.Users().GetByID(ctx, assigneeID)
	if err != nil {
		return storeError(err, "assignee")
	}
	if assignee.OrgID() != organizationID {
		return huma.Error422UnprocessableEntity("assignee must belong to the task's organization")
	}
	return nil
}

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
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
)

func sampleTask() *domain.Task {
	return &domain.Task{
		ID:             21,
		OrganizationID: testOrgID,
		ProjectID:      7,
		Title:          "Write docs",
		Status:         domain.TaskStatusTodo,
		Priority:       domain.TaskPriorityMedium,
	}
}

func tasksOf(list ...*domain.Task) *mockTaskRepo {
	return &mockTaskRepo{
		getByIDFunc: func(_ context.Context, id int64) (*domain.Task, error) {
			for _, t := range list {
				if t.ID == id {
					cp := *t
					return &cp, nil
				}
			}
			return nil, domain.ErrNotFound
		},
		updateFunc: func(context.Context, *domain.Task) error { return nil },
		deleteFunc: func(context.Context, int64) error { return nil },
	}
}

// ---------------------------------------------------------------------------
// POST /tasks, POST /projects/{id}/tasks
// ---------------------------------------------------------------------------

func TestCreateTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		path         string
		body         map[string]any
		user         *domain.User
		wantStatus   int
		wantPriority domain.TaskPriority
		wantState    domain.TaskStatus
	}{
		{
			name:         "defaults",
			path:         "/projects/7/tasks",
			body:         map[string]any{"title": "Ship it"},
			user:         memberUser(),
			wantStatus:   http.StatusCreated,
			wantPriority: domain.TaskPriorityMedium,
			wantState:    domain.TaskStatusTodo,
		},
		{
			name:         "explicit fields via /tasks",
			path:         "/tasks",
			body:         map[string]any{"project_id": 7, "title": "Ship it", "status": "in_progress", "priority": "high"},
			user:         memberUser(),
			wantStatus:   http.StatusCreated,
			wantPriority: domain.TaskPriorityHigh,
			wantState:    domain.TaskStatusInProgress,
		},
		{
			name:       "missing project id",
			path:       "/tasks",
			body:       map[string]any{"title": "Ship it"},
			user:       memberUser(),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown status",
			path:       "/projects/7/tasks",
			body:       map[string]any{"title": "Ship it", "status": "blocked"},
			user:       memberUser(),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "project of another organization",
			path:       "/projects/7/tasks",
			body:       map[string]any{"title": "Ship it"},
			user:       outsiderUser(),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "assignee outside the organization",
			path:       "/projects/7/tasks",
			body:       map[string]any{"title": "Ship it", "assignee_id": 4},
			user:       memberUser(),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			pub := &recordingPublisher{}
			store := &mockDataStore{
				projects: projectsOf(sampleProject()),
				users:    usersRepo(nil, memberUser(), outsiderUser()),
				tasks: &mockTaskRepo{
					createFunc: func(_ context.Context, task *domain.Task) error {
						task.ID = 21
						task.Position = 3
						return nil
					},
				},
			}
			v1.RegisterTaskRoutes(api, store, pub)

			resp := api.PostCtx(userCtx(tt.user), tt.path, tt.body)
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			if tt.wantStatus != http.StatusCreated {
				assert.Empty(t, pub.all())
				return
			}

			var body domain.Task
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, int64(21), body.ID)
			assert.Equal(t, int64(7), body.ProjectID)
			assert.Equal(t, testOrgID, body.OrganizationID)
			assert.Equal(t, tt.wantState, body.Status)
			assert.Equal(t, tt.wantPriority, body.Priority)
			assert.Equal(t, 3, body.Position)

			got := pub.all()
			require.Len(t, got, 1)
			assert.Equal(t, "project", got[0].channel)
			assert.Equal(t, int64(7), got[0].id)
			assert.Equal(t, events.TypeTaskCreated, got[0].event.EventType())
		})
	}
}

// ---------------------------------------------------------------------------
// GET /tasks
// ---------------------------------------------------------------------------

func TestListTasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		user       *domain.User
		query      string
		wantFilter domain.TaskFilter
	}{
		{
			name:       "member scoped to organization",
			user:       memberUser(),
			query:      "",
			wantFilter: domain.TaskFilter{OrganizationID: testOrgID},
		},
		{
			name:       "filters forwarded",
			user:       memberUser(),
			query:      "?project_id=7&status=done&assignee_id=1",
			wantFilter: domain.TaskFilter{OrganizationID: testOrgID, ProjectID: 7, Status: domain.TaskStatusDone, AssigneeID: 1},
		},
		{
			name:       "system owner sees all",
			user:       ownerUser(),
			query:      "",
			wantFilter: domain.TaskFilter{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			var gotFilter domain.TaskFilter
			store := &mockDataStore{
				tasks: &mockTaskRepo{
					listFunc: func(_ context.Context, f domain.TaskFilter) ([]*domain.Task, error) {
						gotFilter = f
						return []*domain.Task{sampleTask()}, nil
					},
				},
			}
			v1.RegisterTaskRoutes(api, store, &recordingPublisher{})

			resp := api.GetCtx(userCtx(tt.user), "/tasks"+tt.query)
			require.Equal(t, http.StatusOK, resp.Code)
			assert.Equal(t, tt.wantFilter, gotFilter)

			var body []domain.Task
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Len(t, body, 1)
		})
	}
}

func TestListProjectTasks(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	store := &mockDataStore{
		projects: projectsOf(sampleProject()),
		tasks: &mockTaskRepo{
			listFunc: func(_ context.Context, f domain.TaskFilter) ([]*domain.Task, error) {
				assert.Equal(t, int64(7), f.ProjectID)
				return nil, nil
			},
		},
	}
	v1.RegisterTaskRoutes(api, store, &recordingPublisher{})

	resp := api.GetCtx(userCtx(memberUser()), "/projects/7/tasks")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "[]", resp.Body.String())

	resp = api.GetCtx(userCtx(outsiderUser()), "/projects/7/tasks")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

// ---------------------------------------------------------------------------
// GET/PATCH/DELETE /tasks/{id}
// ---------------------------------------------------------------------------

func TestGetTask(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	v1.RegisterTaskRoutes(api, &mockDataStore{tasks: tasksOf(sampleTask())}, &recordingPublisher{})

	resp := api.GetCtx(userCtx(memberUser()), "/tasks/21")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Write docs")

	resp = api.GetCtx(userCtx(outsiderUser()), "/tasks/21")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.GetCtx(userCtx(memberUser()), "/tasks/22")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()

	t.Run("move publishes update", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		pub := &recordingPublisher{}
		var saved *domain.Task
		repo := tasksOf(sampleTask())
		repo.updateFunc = func(_ context.Context, task *domain.Task) error {
			saved = task
			return nil
		}
		v1.RegisterTaskRoutes(api, &mockDataStore{tasks: repo}, pub)

		resp := api.PatchCtx(userCtx(memberUser()), "/tasks/21", map[string]any{
			"status":   "done",
			"position": 2,
		})
		require.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, saved)
		assert.Equal(t, domain.TaskStatusDone, saved.Status)
		assert.Equal(t, 2, saved.Position)
		assert.Equal(t, "Write docs", saved.Title)

		got := pub.all()
		require.Len(t, got, 1)
		assert.Equal(t, "project", got[0].channel)
		assert.Equal(t, int64(7), got[0].id)
		assert.Equal(t, events.TaskUpdated{Task: *saved}, got[0].event)
	})

	t.Run("column change without position goes to the end", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		pub := &recordingPublisher{}
		var requested int
		repo := tasksOf(sampleTask())
		repo.updateFunc = func(_ context.Context, task *domain.Task) error {
			requested = task.Position
			task.Position = 3 // slot assigned by the store
			return nil
		}
		v1.RegisterTaskRoutes(api, &mockDataStore{tasks: repo}, pub)

		resp := api.PatchCtx(userCtx(memberUser()), "/tasks/21", map[string]any{"status": "in_progress"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, domain.PositionEnd, requested)

		var body domain.Task
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, domain.TaskStatusInProgress, body.Status)
		assert.Equal(t, 3, body.Position)

		got := pub.all()
		require.Len(t, got, 1)
		assert.Equal(t, 3, got[0].event.(events.TaskUpdated).Task.Position)
	})

	t.Run("reorder within a column", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		var saved *domain.Task
		repo := tasksOf(sampleTask())
		repo.updateFunc = func(_ context.Context, task *domain.Task) error {
			saved = task
			return nil
		}
		v1.RegisterTaskRoutes(api, &mockDataStore{tasks: repo}, &recordingPublisher{})

		resp := api.PatchCtx(userCtx(memberUser()), "/tasks/21", map[string]any{"status": "todo", "position": 0})
		require.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, saved)
		assert.Equal(t, domain.TaskStatusTodo, saved.Status)
		assert.Equal(t, 0, saved.Position)
	})

	t.Run("assign and clear", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		assigned := sampleTask()
		assigned.ID = 22
		assigned.AssigneeID = int64Ptr(1)
		var saved []*domain.Task
		repo := tasksOf(sampleTask(), assigned)
		repo.updateFunc = func(_ context.Context, task *domain.Task) error {
			saved = append(saved, task)
			return nil
		}
		store := &mockDataStore{tasks: repo, users: usersRepo(nil, memberUser(), adminUser())}
		v1.RegisterTaskRoutes(api, store, &recordingPublisher{})

		resp := api.PatchCtx(userCtx(memberUser()), "/tasks/21", map[string]any{"assignee_id": 2})
		require.Equal(t, http.StatusOK, resp.Code)

		resp = api.PatchCtx(userCtx(memberUser()), "/tasks/22", map[string]any{"clear_assignee": true})
		require.Equal(t, http.StatusOK, resp.Code)

		require.Len(t, saved, 2)
		require.NotNil(t, saved[0].AssigneeID)
		assert.Equal(t, int64(2), *saved[0].AssigneeID)
		assert.Nil(t, saved[1].AssigneeID)
	})

	t.Run("invalid priority", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockDataStore{tasks: tasksOf(sampleTask())}, &recordingPublisher{})

		resp := api.PatchCtx(userCtx(memberUser()), "/tasks/21", map[string]any{"priority": "urgent"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("outsider", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		pub := &recordingPublisher{}
		v1.RegisterTaskRoutes(api, &mockDataStore{tasks: tasksOf(sampleTask())}, pub)

		resp := api.PatchCtx(userCtx(outsiderUser()), "/tasks/21", map[string]any{"status": "done"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Empty(t, pub.all())
	})
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	pub := &recordingPublisher{}
	v1.RegisterTaskRoutes(api, &mockDataStore{tasks: tasksOf(sampleTask())}, pub)

	resp := api.DeleteCtx(userCtx(outsiderUser()), "/tasks/21")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.DeleteCtx(userCtx(memberUser()), "/tasks/21")
	require.Equal(t, http.StatusNoContent, resp.Code)

	got := pub.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.TaskDeleted{ID: 21, ProjectID: 7}, got[0].event)
}

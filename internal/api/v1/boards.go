package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskboard/internal/domain"
)

type GetBoardInput struct {
	ProjectID int64 `path:"projectID" doc:"Project ID"`
}

type BoardColumn struct {
	Status domain.TaskStatus `json:"status"`
	Tasks  []domain.Task     `json:"tasks"`
}

type Board struct {
	ProjectID int64         `json:"project_id"`
	Columns   []BoardColumn `json:"columns"`
}

type GetBoardOutput struct {
	Body *Board
}

// buildBoard groups tasks into one column per status in display order.
// Tasks with an unknown status land in the first column.
func buildBoard(projectID int64, tasks []*domain.Task) *Board {
	index := make(map[domain.TaskStatus]int, len(domain.TaskStatuses))
	board := &Board{ProjectID: projectID, Columns: make([]BoardColumn, len(domain.TaskStatuses))}
	for i, s := range domain.TaskStatuses {
		index[s] = i
		board.Columns[i] = BoardColumn{Status: s, Tasks: make([]domain.Task, 0)}
	}

	for _, t := range tasks {
		i := index[t.Status.Normalize()]
		board.Columns[i].Tasks = append(board.Columns[i].Tasks, *t)
	}
	return board
}

func RegisterBoardRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{projectID}",
		Summary:     "Get kanban board for a project",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		u, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		p, err := loadProject(ctx, store, u, input.ProjectID)
		if err != nil {
			return nil, err
		}

		tasks, err := store.Tasks().List(ctx, domain.TaskFilter{ProjectID: p.ID})
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tasks for board", err)
		}

		return &GetBoardOutput{Body: buildBoard(p.ID, tasks)}, nil
	})
}

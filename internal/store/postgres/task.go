package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/taskboard/internal/domain"
)

const maxTaskRows = 1000

var taskColumns = []string{ //nolint:gochecknoglobals // column list
	"id", "organization_id", "project_id", "title", "description", "status", "priority",
	"assignee_id", "due_date", "position", "created_at", "updated_at",
}

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Create inserts t at the end of its status column.
func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (organization_id, project_id, title, description, status, priority,
		                    assignee_id, due_date, position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
		         (SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE project_id = $2 AND status = $5))
		 RETURNING id, position, created_at, updated_at`,
		t.OrganizationID, t.ProjectID, t.Title, t.Description, t.Status, t.Priority,
		t.AssigneeID, t.DueDate,
	).Scan(&t.ID, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapError("taskRepo.Create", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	query, args, err := psq.Select(taskColumns...).From("tasks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: build: %w", err)
	}

	t, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError("taskRepo.GetByID", err)
	}

	return t, nil
}

func (r *TaskRepo) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	query, args, err := taskListQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("taskRepo.List: build: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.List: %w", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0, 16)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("taskRepo.List: scan: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskRepo.List: rows: %w", err)
	}

	return tasks, nil
}

// Update writes t. When its status or position changed, the columns it left
// and entered are renumbered in the same transaction so stored positions
// match the board order.
func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var cur domain.TaskSlot
		err := tx.QueryRow(ctx, `SELECT status, position FROM tasks WHERE id = $1 FOR UPDATE`, t.ID).
			Scan(&cur.Status, &cur.Position)
		if err != nil {
			return err
		}
		if cur.Status != t.Status || cur.Position != t.Position {
			if err := reposition(ctx, tx, t, cur.Status); err != nil {
				return err
			}
		}

		return tx.QueryRow(ctx,
			`UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4,
			        assignee_id = $5, due_date = $6, position = $7, updated_at = now()
			 WHERE id = $8
			 RETURNING updated_at`,
			t.Title, t.Description, t.Status, t.Priority,
			t.AssigneeID, t.DueDate, t.Position, t.ID,
		).Scan(&t.UpdatedAt)
	})
	if err != nil {
		return mapError("taskRepo.Update", err)
	}

	return nil
}

// reposition shifts the neighbours of t and sets t.Position to the slot it
// finally holds.
func reposition(ctx context.Context, tx pgx.Tx, t *domain.Task, from domain.TaskStatus) error {
	query, args, err := columnSlotsQuery(t.ProjectID, from, t.Status).ToSql()
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	slots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TaskSlot, error) {
		var s domain.TaskSlot
		err := row.Scan(&s.ID, &s.Status, &s.Position)
		return s, err
	})
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for id, pos := range domain.Reposition(slots, t.ID, t.Status, t.Position) {
		if id == t.ID {
			t.Position = pos
			continue
		}
		batch.Queue(`UPDATE tasks SET position = $1 WHERE id = $2`, pos, id)
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}

// columnSlotsQuery locks the board columns a move touches.
func columnSlotsQuery(projectID int64, from, to domain.TaskStatus) sq.SelectBuilder {
	statuses := []domain.TaskStatus{from}
	if to != from {
		statuses = append(statuses, to)
	}
	return psq.Select("id", "status", "position").
		From("tasks").
		Where(sq.Eq{"project_id": projectID, "status": statuses}).
		OrderBy("position", "id").
		Suffix("FOR UPDATE")
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return expectOne("taskRepo.Delete", tag, err)
}

// taskListQuery orders tasks the way a board renders them.
func taskListQuery(filter domain.TaskFilter) sq.SelectBuilder {
	qb := psq.Select(taskColumns...).From("tasks")
	if filter.OrganizationID != 0 {
		qb = qb.Where(sq.Eq{"organization_id": filter.OrganizationID})
	}
	if filter.ProjectID != 0 {
		qb = qb.Where(sq.Eq{"project_id": filter.ProjectID})
	}
	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"status": filter.Status})
	}
	if filter.AssigneeID != 0 {
		qb = qb.Where(sq.Eq{"assignee_id": filter.AssigneeID})
	}
	return qb.OrderBy("project_id", "position", "id").Limit(maxTaskRows)
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.OrganizationID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.AssigneeID, &t.DueDate, &t.Position, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

package domain

import (
	"context"
	"slices"
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists the board columns in display order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone} //nolint:gochecknoglobals // fixed column order

// Valid reports whether s is one of the known board columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// Normalize coerces unknown statuses into todo so a task is never dropped
// from the board.
func (s TaskStatus) Normalize() TaskStatus {
	if s.Valid() {
		return s
	}
	return TaskStatusTodo
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

type Task struct {
	ID             int64        `json:"id"`
	OrganizationID int64        `json:"organization_id"`
	ProjectID      int64        `json:"project_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	AssigneeID     *int64       `json:"assignee_id"`
	DueDate        *time.Time   `json:"due_date"`
	Position       int          `json:"position"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Equal reports whether t and o hold the same values. Optional fields are
// compared by value, not by address.
func (t Task) Equal(o Task) bool {
	if t.AssigneeID == nil || o.AssigneeID == nil {
		if t.AssigneeID != o.AssigneeID {
			return false
		}
	} else if *t.AssigneeID != *o.AssigneeID {
		return false
	}
	if t.DueDate == nil || o.DueDate == nil {
		if t.DueDate != o.DueDate {
			return false
		}
	} else if !t.DueDate.Equal(*o.DueDate) {
		return false
	}
	t.AssigneeID, o.AssigneeID = nil, nil
	t.DueDate, o.DueDate = nil, nil
	return t.CreatedAt.Equal(o.CreatedAt) && t.UpdatedAt.Equal(o.UpdatedAt) &&
		t.withoutTimes() == o.withoutTimes()
}

func (t Task) withoutTimes() Task {
	t.CreatedAt, t.UpdatedAt = time.Time{}, time.Time{}
	return t
}

// PositionEnd asks for the slot after the last task of a column.
const PositionEnd = -1

// TaskSlot is a task's place on its project's board.
type TaskSlot struct {
	ID       int64
	Status   TaskStatus
	Position int
}

// Reposition moves task id to index of column to and renumbers the columns
// the move touches so their positions run 0..n-1 in board order. slots must
// hold every task of those columns ordered by (position, id). An index that
// is negative or past the end of the column appends. The result maps every
// task whose position changed to its new position; the moved task is always
// included.
func Reposition(slots []TaskSlot, id int64, to TaskStatus, index int) map[int64]int {
	columns := make(map[TaskStatus][]int64)
	original := make(map[int64]int, len(slots))
	from := to
	for _, s := range slots {
		original[s.ID] = s.Position
		if s.ID == id {
			from = s.Status
			continue
		}
		columns[s.Status] = append(columns[s.Status], s.ID)
	}

	dest := columns[to]
	if index < 0 || index > len(dest) {
		index = len(dest)
	}
	columns[to] = slices.Insert(dest, index, id)

	changed := map[int64]int{id: index}
	for _, status := range []TaskStatus{from, to} {
		for pos, tid := range columns[status] {
			if tid == id {
				continue
			}
			if prev, ok := original[tid]; !ok || prev != pos {
				changed[tid] = pos
			}
		}
	}
	return changed
}

// TaskFilter narrows task listings. Zero values mean "no filter".
type TaskFilter struct {
	OrganizationID int64 // 0 = any organization (system owner)
	ProjectID      int64
	Status         TaskStatus
	AssigneeID     int64
}

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id int64) (*Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id int64) error
}

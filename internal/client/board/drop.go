package board

import (
	"context"
	"fmt"

	"github.com/gosuda/taskboard/internal/domain"
)

// Position is a slot on the board.
type Position struct {
	Status domain.TaskStatus
	Index  int
}

// Drag describes a finished drag gesture. The task is identified directly,
// never by parsing a composite element ID.
type Drag struct {
	TaskID int64
	From   Position
	To     Position
}

// SamePosition reports whether the drop landed where the drag started.
func (d Drag) SamePosition() bool {
	return d.From.Status == d.To.Status && d.From.Index == d.To.Index
}

// TaskMover persists a move on the server and returns the stored task.
type TaskMover interface {
	MoveTask(ctx context.Context, taskID int64, status domain.TaskStatus, position int) (*domain.Task, error)
}

// TaskLister fetches the authoritative task list of a project.
type TaskLister interface {
	ListProjectTasks(ctx context.Context, projectID int64) ([]domain.Task, error)
}

// Notifier receives user-facing failure notices.
type Notifier interface {
	Error(message string, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, err error)

func (f NotifierFunc) Error(message string, err error) { f(message, err) }

// Outcome is the terminal state of a Drop.
type Outcome int

const (
	// OutcomeNoop: the drop landed on its origin; nothing was sent.
	OutcomeNoop Outcome = iota
	// OutcomeCommitted: the server accepted the move.
	OutcomeCommitted
	// OutcomeRolledBack: the server rejected the move and the grouping was restored.
	OutcomeRolledBack
	// OutcomeRejected: the drag did not match local state; nothing changed.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeCommitted:
		return "committed"
	case OutcomeRolledBack:
		return "rolled_back"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MoveResult drives the caller after a Drop.
type MoveResult struct {
	Outcome Outcome
	Task    *domain.Task // server copy on commit
	Err     error
}

func (r MoveResult) OK() bool {
	return r.Outcome == OutcomeNoop || r.Outcome == OutcomeCommitted
}

// Drop runs a move in two phases: the grouping is updated synchronously, then
// the server is asked to persist it. A server failure restores the pre-drop
// grouping and reports through n.
func (b *Board) Drop(ctx context.Context, d Drag, mover TaskMover, n Notifier) MoveResult {
	if d.SamePosition() {
		return MoveResult{Outcome: OutcomeNoop}
	}

	snap, err := b.ApplyLocalMove(d.TaskID, d.From.Status, d.To.Status, d.To.Index)
	if err != nil {
		return MoveResult{Outcome: OutcomeRejected, Err: err}
	}

	_, index, _ := b.Locate(d.TaskID)
	task, err := mover.MoveTask(ctx, d.TaskID, d.To.Status, index)
	if err != nil {
		b.Rollback(snap)
		if n != nil {
			n.Error("Failed to move task", err)
		}
		return MoveResult{Outcome: OutcomeRolledBack, Err: fmt.Errorf("board.Drop: task %d: %w", d.TaskID, err)}
	}

	if task != nil {
		b.ConfirmMove(task.ID, task.Status)
		b.mu.Lock()
		b.upsertLocked(*task)
		b.mu.Unlock()
	}
	return MoveResult{Outcome: OutcomeCommitted, Task: task}
}

// Refresh replaces the grouping with the server's task list.
func (b *Board) Refresh(ctx context.Context, lister TaskLister) error {
	tasks, err := lister.ListProjectTasks(ctx, b.projectID)
	if err != nil {
		return fmt.Errorf("board.Refresh: %w", err)
	}
	b.Load(tasks)
	return nil
}

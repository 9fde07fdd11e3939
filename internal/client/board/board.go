// Package board keeps the three-column grouping of a project's tasks
// consistent under optimistic local moves, server confirmation, and realtime
// events.
package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
)

var (
	ErrTaskNotFound  = errors.New("board: task not in source column")
	ErrInvalidStatus = errors.New("board: invalid status")
)

// Snapshot is an immutable copy of the grouping, used for rollback.
type Snapshot struct {
	columns map[domain.TaskStatus][]domain.Task
}

// Column returns a copy of the tasks in one column.
func (s Snapshot) Column(status domain.TaskStatus) []domain.Task {
	return cloneTasks(s.columns[status])
}

// IDs returns the task IDs of one column in order.
func (s Snapshot) IDs(status domain.TaskStatus) []int64 {
	col := s.columns[status]
	ids := make([]int64, len(col))
	for i := range col {
		ids[i] = col[i].ID
	}
	return ids
}

// Len returns the number of tasks across all columns.
func (s Snapshot) Len() int {
	n := 0
	for _, col := range s.columns {
		n += len(col)
	}
	return n
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[domain.TaskStatus][]domain.Task, len(domain.TaskStatuses))
	for _, st := range domain.TaskStatuses {
		out[st] = s.columns[st]
	}
	return json.Marshal(out)
}

// Board is the grouping for a single project. It is safe for concurrent use:
// realtime events arrive on the channel's read goroutine while local moves
// come from the caller.
type Board struct {
	projectID int64

	mu      sync.Mutex
	columns map[domain.TaskStatus][]domain.Task
}

// New returns an empty board for projectID.
func New(projectID int64) *Board {
	return &Board{
		projectID: projectID,
		columns:   emptyColumns(),
	}
}

func (b *Board) ProjectID() int64 { return b.projectID }

// Load replaces the grouping with an authoritative task list. Tasks are
// ordered by position, then ID. Unknown statuses land in todo.
func (b *Board) Load(tasks []domain.Task) {
	sorted := cloneTasks(tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].ID < sorted[j].ID
	})

	cols := emptyColumns()
	seen := make(map[int64]struct{}, len(sorted))
	for _, t := range sorted {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		t.Status = t.Status.Normalize()
		cols[t.Status] = append(cols[t.Status], t)
	}

	b.mu.Lock()
	b.columns = cols
	b.mu.Unlock()
}

// Snapshot returns a copy of the current grouping.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{columns: cloneColumns(b.columns)}
}

// Locate returns the column and index holding taskID.
func (b *Board) Locate(taskID int64) (domain.TaskStatus, int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locateLocked(taskID)
}

// ApplyLocalMove moves taskID from one column to another at toIndex, clamped
// to the destination bounds. It returns the grouping as it was before the move.
// For moves within one column toIndex is the index after removal.
func (b *Board) ApplyLocalMove(taskID int64, from, to domain.TaskStatus, toIndex int) (Snapshot, error) {
	if !from.Valid() || !to.Valid() {
		return Snapshot{}, fmt.Errorf("board.ApplyLocalMove: %q -> %q: %w", from, to, ErrInvalidStatus)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := indexOf(b.columns[from], taskID)
	if idx < 0 {
		return Snapshot{}, fmt.Errorf("board.ApplyLocalMove: task %d in %s: %w", taskID, from, ErrTaskNotFound)
	}

	prev := Snapshot{columns: cloneColumns(b.columns)}

	task := b.columns[from][idx]
	b.columns[from] = removeAt(b.columns[from], idx)
	task.Status = to
	b.columns[to] = insertAt(b.columns[to], clamp(toIndex, len(b.columns[to])), task)

	return prev, nil
}

// ConfirmMove reconciles a server acknowledgment. It is a no-op when the task
// already sits in the acknowledged column; otherwise the task is moved to the
// end of that column. It reports whether the grouping changed.
func (b *Board) ConfirmMove(taskID int64, to domain.TaskStatus) bool {
	to = to.Normalize()

	b.mu.Lock()
	defer b.mu.Unlock()

	status, idx, ok := b.locateLocked(taskID)
	if !ok || status == to {
		return false
	}
	task := b.columns[status][idx]
	b.columns[status] = removeAt(b.columns[status], idx)
	task.Status = to
	b.columns[to] = append(b.columns[to], task)
	return true
}

// Rollback restores a grouping captured by Snapshot or ApplyLocalMove.
func (b *Board) Rollback(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cols := cloneColumns(s.columns)
	for _, st := range domain.TaskStatuses {
		if cols[st] == nil {
			cols[st] = []domain.Task{}
		}
	}
	b.columns = cols
}

// ApplyRemoteEvent folds a realtime task event into the grouping. Applying the
// same event twice has the same effect as applying it once. Events for other
// projects and non-task events are ignored. It reports whether the grouping
// changed.
func (b *Board) ApplyRemoteEvent(ev events.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch e := ev.(type) {
	case events.TaskCreated:
		if !b.ownsLocked(e.Task.ProjectID) {
			return false
		}
		if _, _, ok := b.locateLocked(e.Task.ID); ok {
			return false
		}
		t := e.Task
		t.Status = t.Status.Normalize()
		b.columns[t.Status] = append(b.columns[t.Status], t)
		return true

	case events.TaskUpdated:
		if !b.ownsLocked(e.Task.ProjectID) {
			// A task moved to another project leaves this board.
			return b.removeLocked(e.Task.ID)
		}
		return b.upsertLocked(e.Task)

	case events.TaskDeleted:
		if e.ProjectID != 0 && !b.ownsLocked(e.ProjectID) {
			return false
		}
		return b.removeLocked(e.ID)

	default:
		return false
	}
}

// upsertLocked replaces the record in place when it is already in the right
// column, otherwise removes it from wherever it is and appends it to the
// column matching its status.
func (b *Board) upsertLocked(t domain.Task) bool {
	t.Status = t.Status.Normalize()

	status, idx, ok := b.locateLocked(t.ID)
	if ok && status == t.Status {
		changed := !b.columns[status][idx].Equal(t)
		b.columns[status][idx] = t
		return changed
	}
	if ok {
		b.columns[status] = removeAt(b.columns[status], idx)
	}
	b.columns[t.Status] = append(b.columns[t.Status], t)
	return true
}

func (b *Board) removeLocked(taskID int64) bool {
	status, idx, ok := b.locateLocked(taskID)
	if !ok {
		return false
	}
	b.columns[status] = removeAt(b.columns[status], idx)
	return true
}

func (b *Board) ownsLocked(projectID int64) bool {
	return b.projectID == 0 || projectID == b.projectID
}

func (b *Board) locateLocked(taskID int64) (domain.TaskStatus, int, bool) {
	for _, st := range domain.TaskStatuses {
		if i := indexOf(b.columns[st], taskID); i >= 0 {
			return st, i, true
		}
	}
	return "", -1, false
}

func emptyColumns() map[domain.TaskStatus][]domain.Task {
	cols := make(map[domain.TaskStatus][]domain.Task, len(domain.TaskStatuses))
	for _, st := range domain.TaskStatuses {
		cols[st] = []domain.Task{}
	}
	return cols
}

func cloneColumns(src map[domain.TaskStatus][]domain.Task) map[domain.TaskStatus][]domain.Task {
	dst := make(map[domain.TaskStatus][]domain.Task, len(src))
	for st, col := range src {
		dst[st] = cloneTasks(col)
	}
	return dst
}

func cloneTasks(src []domain.Task) []domain.Task {
	dst := make([]domain.Task, len(src))
	copy(dst, src)
	return dst
}

func indexOf(col []domain.Task, taskID int64) int {
	for i := range col {
		if col[i].ID == taskID {
			return i
		}
	}
	return -1
}

func removeAt(col []domain.Task, i int) []domain.Task {
	out := make([]domain.Task, 0, len(col)-1)
	out = append(out, col[:i]...)
	return append(out, col[i+1:]...)
}

func insertAt(col []domain.Task, i int, t domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(col)+1)
	out = append(out, col[:i]...)
	out = append(out, t)
	return append(out, col[i:]...)
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

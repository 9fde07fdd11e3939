package board_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/client/board"
	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
)

const projectID int64 = 42

var (
	todo       = domain.TaskStatusTodo
	inProgress = domain.TaskStatusInProgress
	done       = domain.TaskStatusDone
)

func task(id int64, status domain.TaskStatus, pos int) domain.Task {
	return domain.Task{
		ID:        id,
		ProjectID: projectID,
		Title:     "task",
		Status:    status,
		Priority:  domain.TaskPriorityMedium,
		Position:  pos,
	}
}

func newBoard(t *testing.T) *board.Board {
	t.Helper()

	b := board.New(projectID)
	b.Load([]domain.Task{
		task(7, todo, 0),
		task(8, todo, 1),
		task(9, todo, 2),
		task(10, inProgress, 0),
		task(11, done, 0),
	})
	return b
}

func mustJSON(t *testing.T, s board.Snapshot) []byte {
	t.Helper()

	data, err := json.Marshal(s)
	require.NoError(t, err)
	return data
}

// assertSingleList checks that every id appears in exactly one column.
func assertSingleList(t *testing.T, s board.Snapshot, ids []int64) {
	t.Helper()

	seen := make(map[int64]int)
	for _, st := range domain.TaskStatuses {
		for _, id := range s.IDs(st) {
			seen[id]++
		}
	}
	for _, id := range ids {
		assert.Equal(t, 1, seen[id], "task %d", id)
	}
	assert.Len(t, seen, len(ids))
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_GroupsAndOrders(t *testing.T) {
	t.Parallel()

	b := board.New(projectID)
	b.Load([]domain.Task{
		task(3, done, 1),
		task(2, todo, 5),
		task(1, todo, 0),
		task(4, "blocked", 0),
		task(1, done, 9), // duplicate ID dropped
	})

	s := b.Snapshot()
	assert.Equal(t, []int64{1, 4, 2}, s.IDs(todo))
	assert.Empty(t, s.IDs(inProgress))
	assert.Equal(t, []int64{3}, s.IDs(done))

	// Unknown status is coerced, not dropped.
	col := s.Column(todo)
	assert.Equal(t, todo, col[1].Status)
}

// ---------------------------------------------------------------------------
// ApplyLocalMove / Rollback
// ---------------------------------------------------------------------------

func TestApplyLocalMove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		taskID  int64
		from    domain.TaskStatus
		to      domain.TaskStatus
		index   int
		todo    []int64
		inProg  []int64
		done    []int64
		wantErr error
	}{
		{name: "across columns at head", taskID: 7, from: todo, to: inProgress, index: 0, todo: []int64{8, 9}, inProg: []int64{7, 10}, done: []int64{11}},
		{name: "across columns clamped high", taskID: 7, from: todo, to: done, index: 99, todo: []int64{8, 9}, inProg: []int64{10}, done: []int64{11, 7}},
		{name: "clamped low", taskID: 11, from: done, to: todo, index: -3, todo: []int64{11, 7, 8, 9}, inProg: []int64{10}, done: []int64{}},
		{name: "within column", taskID: 7, from: todo, to: todo, index: 2, todo: []int64{8, 9, 7}, inProg: []int64{10}, done: []int64{11}},
		{name: "wrong source column", taskID: 7, from: done, to: todo, index: 0, wantErr: board.ErrTaskNotFound},
		{name: "unknown task", taskID: 99, from: todo, to: done, index: 0, wantErr: board.ErrTaskNotFound},
		{name: "invalid status", taskID: 7, from: todo, to: "archived", index: 0, wantErr: board.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newBoard(t)
			before := mustJSON(t, b.Snapshot())

			snap, err := b.ApplyLocalMove(tt.taskID, tt.from, tt.to, tt.index)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, mustJSON(t, b.Snapshot()), "failed move must not mutate")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, before, mustJSON(t, snap))

			s := b.Snapshot()
			assert.Equal(t, tt.todo, s.IDs(todo))
			assert.Equal(t, tt.inProg, s.IDs(inProgress))
			assert.Equal(t, tt.done, s.IDs(done))

			status, _, ok := b.Locate(tt.taskID)
			require.True(t, ok)
			assert.Equal(t, tt.to, status)
			for _, tk := range s.Column(tt.to) {
				if tk.ID == tt.taskID {
					assert.Equal(t, tt.to, tk.Status)
				}
			}
		})
	}
}

func TestApplyLocalMove_RollbackRestoresExactly(t *testing.T) {
	t.Parallel()

	ids := []int64{7, 8, 9, 10, 11}
	rng := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		b := newBoard(t)
		// Shuffle state a bit first so the property is checked on varied boards.
		for range rng.IntN(4) {
			id := ids[rng.IntN(len(ids))]
			from, _, _ := b.Locate(id)
			_, err := b.ApplyLocalMove(id, from, domain.TaskStatuses[rng.IntN(3)], rng.IntN(6)-1)
			require.NoError(t, err)
		}

		before := b.Snapshot()
		beforeJSON := mustJSON(t, before)

		id := ids[rng.IntN(len(ids))]
		from, _, _ := b.Locate(id)
		snap, err := b.ApplyLocalMove(id, from, domain.TaskStatuses[rng.IntN(3)], rng.IntN(6)-1)
		require.NoError(t, err)
		assertSingleList(t, b.Snapshot(), ids)

		b.Rollback(snap)
		assert.Equal(t, beforeJSON, mustJSON(t, b.Snapshot()))
		assert.Equal(t, before, b.Snapshot())
	}
}

func TestSnapshot_IsIsolated(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	snap := b.Snapshot()
	col := snap.Column(todo)
	col[0].Title = "mutated"

	_, err := b.ApplyLocalMove(7, todo, done, 0)
	require.NoError(t, err)

	assert.Equal(t, []int64{7, 8, 9}, snap.IDs(todo))
	assert.Equal(t, "task", snap.Column(todo)[0].Title)
}

// ---------------------------------------------------------------------------
// ConfirmMove
// ---------------------------------------------------------------------------

func TestConfirmMove(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	_, err := b.ApplyLocalMove(7, todo, inProgress, 0)
	require.NoError(t, err)
	before := mustJSON(t, b.Snapshot())

	assert.False(t, b.ConfirmMove(7, inProgress), "agreeing state is a no-op")
	assert.Equal(t, before, mustJSON(t, b.Snapshot()))

	assert.True(t, b.ConfirmMove(7, done), "server disagreement relocates")
	status, idx, ok := b.Locate(7)
	require.True(t, ok)
	assert.Equal(t, done, status)
	assert.Equal(t, 1, idx)

	assert.False(t, b.ConfirmMove(404, done))
}

// ---------------------------------------------------------------------------
// ApplyRemoteEvent
// ---------------------------------------------------------------------------

func TestApplyRemoteEvent(t *testing.T) {
	t.Parallel()

	moved := task(8, done, 0)
	moved.Title = "renamed"
	retitled := task(9, todo, 2)
	retitled.Title = "retitled"
	elsewhere := task(10, inProgress, 0)
	elsewhere.ProjectID = 99
	foreign := task(50, todo, 0)
	foreign.ProjectID = 99

	tests := []struct {
		name   string
		event  events.Event
		todo   []int64
		inProg []int64
		done   []int64
	}{
		{name: "create appends", event: events.TaskCreated{Task: task(12, inProgress, 0)}, todo: []int64{7, 8, 9}, inProg: []int64{10, 12}, done: []int64{11}},
		{name: "create duplicate ignored", event: events.TaskCreated{Task: task(7, done, 0)}, todo: []int64{7, 8, 9}, inProg: []int64{10}, done: []int64{11}},
		{name: "create unknown status coerced", event: events.TaskCreated{Task: task(12, "weird", 0)}, todo: []int64{7, 8, 9, 12}, inProg: []int64{10}, done: []int64{11}},
		{name: "create other project ignored", event: events.TaskCreated{Task: foreign}, todo: []int64{7, 8, 9}, inProg: []int64{10}, done: []int64{11}},
		{name: "update moves column", event: events.TaskUpdated{Task: moved}, todo: []int64{7, 9}, inProg: []int64{10}, done: []int64{11, 8}},
		{name: "update same column keeps index", event: events.TaskUpdated{Task: retitled}, todo: []int64{7, 8, 9}, inProg: []int64{10}, done: []int64{11}},
		{name: "update unknown task inserts", event: events.TaskUpdated{Task: task(13, done, 0)}, todo: []int64{7, 8, 9}, inProg: []int64{10}, done: []int64{11, 13}},
		{name: "update moved to other project removes", event: events.TaskUpdated{Task: elsewhere}, todo: []int64{7, 8, 9}, inProg: []int64{}, done: []int64{11}},
		{name: "delete removes", event: events.TaskDeleted{ID: 10, ProjectID: projectID}, todo: []int64{7, 8, 9}, inProg: []int64{}, done: []int64{11}},
		{name: "delete unknown ignored", event: events.TaskDeleted{ID: 77, ProjectID: projectID}, todo: []int64{7, 8, 9}, inProg: []int64{10}, done: []int64{11}},
		{name: "delete other project ignored", event: events.TaskDeleted{ID: 10, ProjectID: 99}, todo: []int64{7, 8, 9}, inProg: []int64{10}, done: []int64{11}},
		{name: "non task event ignored", event: events.ProjectUpdated{Project: domain.Project{ID: projectID}}, todo: []int64{7, 8, 9}, inProg: []int64{10}, done: []int64{11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newBoard(t)
			b.ApplyRemoteEvent(tt.event)
			once := mustJSON(t, b.Snapshot())

			s := b.Snapshot()
			assert.Equal(t, tt.todo, s.IDs(todo))
			assert.Equal(t, tt.inProg, s.IDs(inProgress))
			assert.Equal(t, tt.done, s.IDs(done))

			assert.False(t, b.ApplyRemoteEvent(tt.event), "second delivery reports no change")
			assert.Equal(t, once, mustJSON(t, b.Snapshot()), "second delivery is idempotent")
		})
	}
}

func TestApplyRemoteEvent_DuplicateUpdateWithOptionalFields(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	updated := task(9, todo, 2)
	assignee := int64(4)
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	updated.AssigneeID = &assignee
	updated.DueDate = &due

	data, err := events.Encode(events.TaskUpdated{Task: updated})
	require.NoError(t, err)

	// Each delivery decodes into fresh pointers.
	first, err := events.Decode(data)
	require.NoError(t, err)
	second, err := events.Decode(data)
	require.NoError(t, err)

	assert.True(t, b.ApplyRemoteEvent(first))
	assert.False(t, b.ApplyRemoteEvent(second), "same values delivered again")

	moved := updated
	other := int64(5)
	moved.AssigneeID = &other
	assert.True(t, b.ApplyRemoteEvent(events.TaskUpdated{Task: moved}))
}

func TestApplyRemoteEvent_UpdateReplacesRecord(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	updated := task(9, todo, 2)
	updated.Title = "new title"
	updated.Priority = domain.TaskPriorityHigh

	assert.True(t, b.ApplyRemoteEvent(events.TaskUpdated{Task: updated}))
	col := b.Snapshot().Column(todo)
	assert.Equal(t, "new title", col[2].Title)
	assert.Equal(t, domain.TaskPriorityHigh, col[2].Priority)
}

func TestSingleListInvariant_RandomSequences(t *testing.T) {
	t.Parallel()

	ids := []int64{7, 8, 9, 10, 11}
	rng := rand.New(rand.NewPCG(7, 11))

	for range 100 {
		b := newBoard(t)
		for range 30 {
			id := ids[rng.IntN(len(ids))]
			status := domain.TaskStatuses[rng.IntN(3)]

			switch rng.IntN(3) {
			case 0:
				from, _, ok := b.Locate(id)
				require.True(t, ok)
				_, err := b.ApplyLocalMove(id, from, status, rng.IntN(8)-2)
				require.NoError(t, err)
			case 1:
				b.ApplyRemoteEvent(events.TaskUpdated{Task: task(id, status, 0)})
			case 2:
				b.ApplyRemoteEvent(events.TaskCreated{Task: task(id, status, 0)})
			}
			assertSingleList(t, b.Snapshot(), ids)
		}
	}
}

// ---------------------------------------------------------------------------
// Drop
// ---------------------------------------------------------------------------

type moverFunc func(ctx context.Context, taskID int64, status domain.TaskStatus, position int) (*domain.Task, error)

func (f moverFunc) MoveTask(ctx context.Context, taskID int64, status domain.TaskStatus, position int) (*domain.Task, error) {
	return f(ctx, taskID, status, position)
}

type recordingNotifier struct {
	messages []string
	errs     []error
}

func (n *recordingNotifier) Error(message string, err error) {
	n.messages = append(n.messages, message)
	n.errs = append(n.errs, err)
}

func TestDrop_Committed(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	var calls int
	mover := moverFunc(func(_ context.Context, taskID int64, status domain.TaskStatus, position int) (*domain.Task, error) {
		calls++
		// The grouping is already updated when the server is called.
		s, idx, ok := b.Locate(taskID)
		require.True(t, ok)
		assert.Equal(t, inProgress, s)
		assert.Equal(t, 0, idx)
		assert.Equal(t, 0, position)

		out := task(taskID, status, position)
		out.Title = "from server"
		return &out, nil
	})
	n := &recordingNotifier{}

	res := b.Drop(context.Background(), board.Drag{
		TaskID: 7,
		From:   board.Position{Status: todo, Index: 0},
		To:     board.Position{Status: inProgress, Index: 0},
	}, mover, n)

	require.NoError(t, res.Err)
	assert.Equal(t, board.OutcomeCommitted, res.Outcome)
	assert.True(t, res.OK())
	assert.Equal(t, 1, calls)
	assert.Empty(t, n.messages)

	s := b.Snapshot()
	assert.NotContains(t, s.IDs(todo), int64(7))
	assert.Equal(t, int64(7), s.IDs(inProgress)[0])
	assert.Equal(t, "from server", s.Column(inProgress)[0].Title)
}

func TestDrop_RolledBack(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	before := mustJSON(t, b.Snapshot())
	boom := errors.New("boom")
	n := &recordingNotifier{}

	res := b.Drop(context.Background(), board.Drag{
		TaskID: 7,
		From:   board.Position{Status: todo, Index: 0},
		To:     board.Position{Status: inProgress, Index: 0},
	}, moverFunc(func(context.Context, int64, domain.TaskStatus, int) (*domain.Task, error) {
		return nil, boom
	}), n)

	assert.Equal(t, board.OutcomeRolledBack, res.Outcome)
	require.ErrorIs(t, res.Err, boom)
	assert.False(t, res.OK())
	assert.Equal(t, before, mustJSON(t, b.Snapshot()))
	require.Len(t, n.errs, 1)
	assert.ErrorIs(t, n.errs[0], boom)
}

func TestDrop_SamePositionMakesNoCall(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	res := b.Drop(context.Background(), board.Drag{
		TaskID: 8,
		From:   board.Position{Status: todo, Index: 1},
		To:     board.Position{Status: todo, Index: 1},
	}, moverFunc(func(context.Context, int64, domain.TaskStatus, int) (*domain.Task, error) {
		t.Fatal("mover must not be called")
		return nil, nil
	}), nil)

	assert.Equal(t, board.OutcomeNoop, res.Outcome)
	assert.Equal(t, []int64{7, 8, 9}, b.Snapshot().IDs(todo))
}

func TestDrop_RejectedWhenStale(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	res := b.Drop(context.Background(), board.Drag{
		TaskID: 11,
		From:   board.Position{Status: todo, Index: 0},
		To:     board.Position{Status: inProgress, Index: 0},
	}, moverFunc(func(context.Context, int64, domain.TaskStatus, int) (*domain.Task, error) {
		t.Fatal("mover must not be called")
		return nil, nil
	}), nil)

	assert.Equal(t, board.OutcomeRejected, res.Outcome)
	require.ErrorIs(t, res.Err, board.ErrTaskNotFound)
}

type listerFunc func(ctx context.Context, projectID int64) ([]domain.Task, error)

func (f listerFunc) ListProjectTasks(ctx context.Context, projectID int64) ([]domain.Task, error) {
	return f(ctx, projectID)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	b := newBoard(t)
	err := b.Refresh(context.Background(), listerFunc(func(_ context.Context, id int64) ([]domain.Task, error) {
		assert.Equal(t, projectID, id)
		return []domain.Task{task(1, done, 0)}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Snapshot().Len())

	err = b.Refresh(context.Background(), listerFunc(func(context.Context, int64) ([]domain.Task, error) {
		return nil, errors.New("offline")
	}))
	require.Error(t, err)
	assert.Equal(t, 1, b.Snapshot().Len(), "failed refresh keeps state")
}

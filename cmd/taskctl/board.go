package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/client/board"
	"github.com/gosuda/taskboard/internal/domain"
)

func (a *app) boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board <project-id>",
		Short: "Show a project's board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, title, err := a.loadBoard(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBoard(title, b.Snapshot()))
			return nil
		},
	}

	var index int
	move := &cobra.Command{
		Use:   "move <project-id> <task-id> <status>",
		Short: "Move a task to another column or slot",
		Long: `Move a task the way a drag and drop on the board would. The board is
updated first and the move is then sent to the server; when the server
rejects it the previous layout is kept.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			taskID, err := parseID(args[1])
			if err != nil {
				return err
			}
			to, err := parseStatus(args[2])
			if err != nil {
				return err
			}

			b, title, err := a.loadBoard(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			from, fromIndex, ok := b.Locate(taskID)
			if !ok {
				return fmt.Errorf("task %d is not on project %d", taskID, projectID)
			}
			toIndex := index
			if toIndex < 0 {
				toIndex = len(b.Snapshot().Column(to))
			}

			notify := board.NotifierFunc(func(msg string, err error) {
				a.log.Warn().Err(err).Int64("task_id", taskID).Msg(msg)
			})
			res := b.Drop(cmd.Context(), board.Drag{
				TaskID: taskID,
				From:   board.Position{Status: from, Index: fromIndex},
				To:     board.Position{Status: to, Index: toIndex},
			}, a.client, notify)

			out := cmd.OutOrStdout()
			switch res.Outcome {
			case board.OutcomeNoop:
				fmt.Fprintln(out, "Task is already there")
			case board.OutcomeCommitted:
				fmt.Fprintf(out, "Moved task %d to %s\n", taskID, columnTitle(to))
			}
			fmt.Fprintln(out, renderBoard(title, b.Snapshot()))
			if !res.OK() {
				return res.Err
			}
			return nil
		},
	}
	move.Flags().IntVarP(&index, "index", "i", -1, "slot within the target column (default end of column)")

	cmd.AddCommand(move)
	return cmd
}

// loadBoard fetches the project and its tasks into a fresh board.
func (a *app) loadBoard(ctx context.Context, projectID int64) (*board.Board, string, error) {
	if err := a.requireUser(ctx); err != nil {
		return nil, "", err
	}
	p, err := a.client.GetProject(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	b := board.New(projectID)
	if err := b.Refresh(ctx, a.client); err != nil {
		return nil, "", err
	}
	return b, p.Title, nil
}

func columnTitle(s domain.TaskStatus) string {
	switch s {
	case domain.TaskStatusTodo:
		return "To Do"
	case domain.TaskStatusInProgress:
		return "In Progress"
	case domain.TaskStatusDone:
		return "Done"
	default:
		return string(s)
	}
}

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/client/realtime"
	"github.com/gosuda/taskboard/internal/events"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Follow a project's board live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, title, err := a.loadBoard(ctx, projectID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			redraw := func(note string) {
				mu.Lock()
				defer mu.Unlock()
				clearScreen(out)
				fmt.Fprintln(out, renderBoard(title, b.Snapshot()))
				if note != "" {
					fmt.Fprintln(out, mutedStyle.Render(note))
				}
			}

			rt := realtime.New(realtime.Options{
				URL:            a.cfg.RealtimeURL,
				Tokens:         a.session,
				ReconnectDelay: a.cfg.ReconnectDelay,
				Logger:         &a.log,
			})
			defer rt.Disconnect()

			for _, t := range []events.Type{events.TypeTaskCreated, events.TypeTaskUpdated, events.TypeTaskDeleted} {
				rt.On(t, func(ev events.Event) {
					if b.ApplyRemoteEvent(ev) {
						redraw(fmt.Sprintf("%s received", ev.EventType()))
					}
				})
			}
			realtime.Listen(rt, func(events.Subscribed) {
				redraw("live updates on")
			})
			realtime.Listen(rt, func(ev events.ErrorNotice) {
				a.log.Warn().Str("message", ev.Message).Msg("server notice")
			})
			realtime.Listen(rt, func(ev events.ProjectDeleted) {
				if ev.ID == projectID {
					redraw("project was deleted")
				}
			})

			stopFollow := rt.Follow(ctx, a.session)
			defer stopFollow()

			rt.Subscribe(projectID)
			redraw("connecting...")
			rt.Connect(ctx)

			<-ctx.Done()
			return nil
		},
	}
}

func clearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}

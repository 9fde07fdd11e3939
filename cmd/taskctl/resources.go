package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/client/api"
	"github.com/gosuda/taskboard/internal/domain"
)

func (a *app) orgsCmd() *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "List organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				orgs []domain.Organization
				err  error
			)
			if public {
				orgs, err = a.client.PublicOrganizations(cmd.Context())
			} else {
				if err = a.requireUser(cmd.Context()); err != nil {
					return err
				}
				orgs, err = a.client.ListOrganizations(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOrganizations(orgs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "list the organizations open for signup (no login needed)")
	return cmd
}

func (a *app) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			projects, err := a.client.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProjects(projects))
			return nil
		},
	}

	var in api.ProjectInput
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			in.Title = args[0]
			p, err := a.client.CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %d: %s\n", p.ID, p.Title)
			return nil
		},
	}
	create.Flags().StringVarP(&in.Description, "description", "d", "", "project description")

	cmd.AddCommand(create)
	return cmd
}

func (a *app) tasksCmd() *cobra.Command {
	var (
		q      api.TaskQuery
		status string
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			if status != "" {
				s, err := parseStatus(status)
				if err != nil {
					return err
				}
				q.Status = s
			}
			tasks, err := a.client.ListTasks(cmd.Context(), q)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTasks(tasks))
			return nil
		},
	}
	cmd.Flags().Int64Var(&q.ProjectID, "project", 0, "only tasks of this project")
	cmd.Flags().StringVar(&status, "status", "", "only tasks in this column (todo, in_progress, done)")
	cmd.Flags().Int64Var(&q.AssigneeID, "assignee", 0, "only tasks assigned to this user")

	var (
		in       api.TaskInput
		priority string
		assignee int64
	)
	create := &cobra.Command{
		Use:   "create <project-id> <title>",
		Short: "Create a task at the end of its column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			in.Title = args[1]
			if priority != "" {
				in.Priority = domain.TaskPriority(priority)
				if !in.Priority.Valid() {
					return fmt.Errorf("invalid priority %q (low, medium, high)", priority)
				}
			}
			if assignee > 0 {
				in.AssigneeID = &assignee
			}
			t, err := a.client.CreateProjectTask(cmd.Context(), projectID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %d in %s\n", t.ID, columnTitle(t.Status))
			return nil
		},
	}
	create.Flags().StringVarP(&in.Description, "description", "d", "", "task description")
	create.Flags().StringVar(&priority, "priority", "", "low, medium or high (default medium)")
	create.Flags().Int64Var(&assignee, "assignee", 0, "assign to this user")

	cmd.AddCommand(create)
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseStatus(s string) (domain.TaskStatus, error) {
	status := domain.TaskStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q (todo, in_progress, done)", s)
	}
	return status, nil
}

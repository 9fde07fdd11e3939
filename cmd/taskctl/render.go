package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gosuda/taskboard/internal/client/board"
	"github.com/gosuda/taskboard/internal/domain"
)

const columnWidth = 30

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	columnStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(columnWidth)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).Width(columnWidth - 2)

	priorityStyles = map[domain.TaskPriority]lipgloss.Style{
		domain.TaskPriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		domain.TaskPriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		domain.TaskPriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

// renderBoard lays the three columns side by side in display order.
func renderBoard(title string, snap board.Snapshot) string {
	cols := make([]string, 0, len(domain.TaskStatuses))
	for _, status := range domain.TaskStatuses {
		cols = append(cols, renderColumn(status, snap.Column(status)))
	}
	heading := titleStyle.Render(title) + " " + mutedStyle.Render(fmt.Sprintf("(%d tasks)", snap.Len()))
	return lipgloss.JoinVertical(lipgloss.Left, heading, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
}

func renderColumn(status domain.TaskStatus, tasks []domain.Task) string {
	lines := []string{headerStyle.Render(fmt.Sprintf("%s (%d)", columnTitle(status), len(tasks)))}
	if len(tasks) == 0 {
		lines = append(lines, mutedStyle.Render("no tasks"))
	}
	for _, t := range tasks {
		lines = append(lines, renderCard(t))
	}
	return columnStyle.Render(strings.Join(lines, "\n"))
}

func renderCard(t domain.Task) string {
	meta := []string{"#" + strconv.FormatInt(t.ID, 10)}
	if style, ok := priorityStyles[t.Priority]; ok {
		meta = append(meta, style.Render(string(t.Priority)))
	}
	if t.AssigneeID != nil {
		meta = append(meta, "@"+strconv.FormatInt(*t.AssigneeID, 10))
	}
	if t.DueDate != nil {
		meta = append(meta, "due "+t.DueDate.Format("2006-01-02"))
	}
	return cardStyle.Render(t.Title + "\n" + mutedStyle.Render(strings.Join(meta, " ")))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func renderOrganizations(orgs []domain.Organization) string {
	if len(orgs) == 0 {
		return mutedStyle.Render("no organizations")
	}
	t := newTable("ID", "NAME", "SLUG")
	for _, o := range orgs {
		t.Row(strconv.FormatInt(o.ID, 10), o.Name, o.Slug)
	}
	return t.Render()
}

func renderProjects(projects []domain.Project) string {
	if len(projects) == 0 {
		return mutedStyle.Render("no projects")
	}
	t := newTable("ID", "TITLE", "ORG", "OWNER", "UPDATED")
	for _, p := range projects {
		t.Row(
			strconv.FormatInt(p.ID, 10),
			p.Title,
			strconv.FormatInt(p.OrganizationID, 10),
			strconv.FormatInt(p.OwnerID, 10),
			p.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	return t.Render()
}

func renderTasks(tasks []domain.Task) string {
	if len(tasks) == 0 {
		return mutedStyle.Render("no tasks")
	}
	t := newTable("ID", "PROJECT", "TITLE", "STATUS", "PRIORITY", "ASSIGNEE")
	for _, task := range tasks {
		assignee := "-"
		if task.AssigneeID != nil {
			assignee = strconv.FormatInt(*task.AssigneeID, 10)
		}
		t.Row(
			strconv.FormatInt(task.ID, 10),
			strconv.FormatInt(task.ProjectID, 10),
			task.Title,
			columnTitle(task.Status),
			string(task.Priority),
			assignee,
		)
	}
	return t.Render()
}

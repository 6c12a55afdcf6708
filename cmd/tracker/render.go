package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
	"github.com/srujanaA02/multi-tenant-saas/internal/viewmodel"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	statusStyles = map[tracker.TaskStatus]lipgloss.Style{
		tracker.TaskTodo:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		tracker.TaskInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		tracker.TaskDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("35")),
	}
)

// toastNotifier prints user messages as one-line toasts.
type toastNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func (n *toastNotifier) Success(_ context.Context, msg string) {
	n.print(successStyle.Render("✓"), msg)
}

func (n *toastNotifier) Failure(_ context.Context, msg string) {
	n.print(errorStyle.Render("✗"), msg)
}

func (n *toastNotifier) print(icon, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s %s\n", icon, msg)
}

func renderSession(s tracker.Session) string {
	if !s.Authenticated() {
		return labelStyle.Render("Not signed in")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Name: "), valueStyle.Render(s.User.FullName))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Email:"), s.User.Email)
	fmt.Fprintf(&b, "%s %s", labelStyle.Render("Role: "), s.User.Role)
	return b.String()
}

func renderDashboard(st viewmodel.DashboardState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render("Welcome back, "+st.Greeting))
	if st.Error != "" {
		fmt.Fprintf(&b, "%s\n", errorStyle.Render(st.Error))
	}
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Active projects:"), st.Stats.ActiveProjects)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Completed tasks:"), st.Stats.CompletedTasks)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Pending tasks:  "), st.Stats.PendingTasks)
	fmt.Fprintf(&b, "\n%s\n", titleStyle.Render("Recent projects"))
	if len(st.RecentProjects) == 0 {
		fmt.Fprintf(&b, "%s\n", labelStyle.Render("No projects yet"))
	}
	for _, p := range st.RecentProjects {
		fmt.Fprintf(&b, "  %s  %s\n", valueStyle.Render(p.Name), labelStyle.Render(string(p.Status)))
	}
	return b.String()
}

func renderProjects(projects []tracker.Project) string {
	if len(projects) == 0 {
		return labelStyle.Render("No projects yet") + "\n"
	}
	var b strings.Builder
	for _, p := range projects {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			labelStyle.Render(p.ID),
			valueStyle.Render(p.Name),
			string(p.Status),
			labelStyle.Render("by "+p.CreatorName()),
		)
	}
	return b.String()
}

func renderTasks(project tracker.Project, tasks []tracker.Task, progress int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(project.Name), labelStyle.Render(fmt.Sprintf("%d%% complete", progress)))
	if len(tasks) == 0 {
		fmt.Fprintf(&b, "%s\n", labelStyle.Render("No tasks yet"))
	}
	for _, t := range tasks {
		style, ok := statusStyles[t.Status]
		if !ok {
			style = labelStyle
		}
		fmt.Fprintf(&b, "%s  %-12s %s\n", labelStyle.Render(t.ID), style.Render(t.Status.Label()), t.Title)
	}
	return b.String()
}

func renderMembers(members []tracker.UserProfile, canRemove func(tracker.UserProfile) bool) string {
	var b strings.Builder
	for _, m := range members {
		line := fmt.Sprintf("%s  %s  %s  %s", labelStyle.Render(m.ID), valueStyle.Render(m.FullName), m.Email, string(m.Role))
		if canRemove(m) {
			line += labelStyle.Render("  (removable)")
		}
		fmt.Fprintln(&b, line)
	}
	return b.String()
}

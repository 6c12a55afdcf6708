package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
	"github.com/srujanaA02/multi-tenant-saas/internal/viewmodel"
)

func TestToastNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &toastNotifier{w: &buf}

	n.Success(t.Context(), "Task marked as done")
	n.Failure(t.Context(), "Failed to update status")

	assert.Contains(t, buf.String(), "✓ Task marked as done\n")
	assert.Contains(t, buf.String(), "✗ Failed to update status\n")
}

func TestRenderTasks(t *testing.T) {
	out := renderTasks(tracker.Project{Name: "Launch"}, []tracker.Task{
		{ID: "t1", Title: "Write docs", Status: tracker.TaskInProgress},
		{ID: "t2", Title: "Ship", Status: tracker.TaskDone},
	}, 50)

	assert.Contains(t, out, "Launch")
	assert.Contains(t, out, "50% complete")
	assert.Contains(t, out, "in progress")
	assert.Contains(t, out, "Ship")
}

func TestRenderTasks_Empty(t *testing.T) {
	assert.Contains(t, renderTasks(tracker.Project{Name: "Launch"}, nil, 0), "No tasks yet")
}

func TestRenderDashboard_Error(t *testing.T) {
	out := renderDashboard(viewmodel.DashboardState{Greeting: "User", Error: "Failed to load dashboard data."})
	assert.Contains(t, out, "Welcome back, User")
	assert.Contains(t, out, "Failed to load dashboard data.")
	assert.Contains(t, out, "No projects yet")
}

func TestRenderMembers_MarksRemovable(t *testing.T) {
	members := []tracker.UserProfile{
		{ID: "u1", FullName: "Ada", Role: tracker.RoleTenantAdmin},
		{ID: "u2", FullName: "Bob", Role: tracker.RoleUser},
	}
	out := renderMembers(members, func(m tracker.UserProfile) bool { return m.ID != "u1" })

	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	if assert.Len(t, lines, 2) {
		assert.NotContains(t, string(lines[0]), "(removable)")
		assert.Contains(t, string(lines[1]), "(removable)")
	}
}

func TestRenderSession_SignedOut(t *testing.T) {
	assert.Equal(t, "Not signed in", renderSession(tracker.Session{}))
}

package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srujanaA02/multi-tenant-saas/internal/config"
	"github.com/srujanaA02/multi-tenant-saas/internal/devserver"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

func startDevServer(t *testing.T) *devserver.Server {
	t.Helper()
	dev, err := devserver.New(config.Default().DevServer)
	require.NoError(t, err)
	srv := httptest.NewServer(dev.Handler())
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("TRACKER_API_BASE_URL", srv.URL+"/api")
	t.Setenv("TRACKER_SESSION_PATH", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("TRACKER_LOGGING_LEVEL", "error")
	return dev
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(t.Context(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestCLI_EndToEnd(t *testing.T) {
	startDevServer(t)

	_, stderr, err := execute(t, "register-tenant",
		"--name", "Acme", "--subdomain", "acme",
		"--admin-name", "Ada Admin", "--admin-email", "ada@acme.com", "--admin-password", "pw")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Organization registered! Please login.")

	_, stderr, err = execute(t, "login", "--email", "ada@acme.com", "--password", "pw", "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Welcome back!")

	out, _, err := execute(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Admin")
	assert.Contains(t, out, string(tracker.RoleTenantAdmin))

	_, stderr, err = execute(t, "projects", "create", "Launch", "--description", "Q3 launch")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Project Created Successfully!")

	out, _, err = execute(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "Launch")
	assert.Contains(t, out, "by Ada Admin")

	out, _, err = execute(t, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, Ada Admin")
	assert.Contains(t, out, "Active projects: 1")

	_, _, err = execute(t, "logout")
	require.NoError(t, err)

	_, _, err = execute(t, "projects")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestCLI_TaskLifecycle(t *testing.T) {
	dev := startDevServer(t)
	_, admin, err := dev.Store().RegisterTenant(tracker.RegisterTenantRequest{
		TenantName: "Acme", Subdomain: "acme", AdminFullName: "Ada", AdminEmail: "ada@acme.com", AdminPassword: "pw",
	})
	require.NoError(t, err)

	_, _, err = execute(t, "login", "--email", "ada@acme.com", "--password", "pw", "--tenant", "acme")
	require.NoError(t, err)

	project := dev.Store().CreateProject(admin, tracker.CreateProjectRequest{Name: "Launch"})

	_, stderr, err := execute(t, "tasks", "add", project.ID, "Write docs")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Task added successfully")

	tasks, err := dev.Store().Tasks(admin.TenantID, project.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	_, stderr, err = execute(t, "tasks", "status", project.ID, tasks[0].ID, "in_progress")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Task marked as in progress")

	out, _, err := execute(t, "tasks", project.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Write docs")
	assert.Contains(t, out, "in progress")
	assert.Contains(t, out, "0% complete")

	_, stderr, err = execute(t, "tasks", "status", project.ID, tasks[0].ID, "blocked")
	require.Error(t, err)
	assert.NotContains(t, stderr, "Task marked")
}

func TestCLI_LoginFailureToastsServerMessage(t *testing.T) {
	startDevServer(t)

	_, stderr, err := execute(t, "login", "--email", "nobody@acme.com", "--password", "pw")
	require.Error(t, err)
	assert.Contains(t, stderr, "Invalid credentials")
}

func TestCLI_APIURLFlagIsValidated(t *testing.T) {
	startDevServer(t)

	_, _, err := execute(t, "--api-url", "not-a-url", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.base_url")
}

func TestCLI_WhoamiWithoutSession(t *testing.T) {
	startDevServer(t)

	out, _, err := execute(t, "whoami")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Not signed in"))
}

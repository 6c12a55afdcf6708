package viewmodel

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srujanaA02/multi-tenant-saas/internal/api"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// unreachableClient returns a client pointed at a closed port.
func unreachableClient(t *testing.T, h *harness) *api.Client {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c, err := api.New("http://"+addr+"/api", h.store)
	require.NoError(t, err)
	return c
}

type fakeAuthAPI struct {
	registered tracker.RegisterRequest
}

func (f *fakeAuthAPI) Login(context.Context, tracker.LoginRequest) (tracker.LoginResult, error) {
	return tracker.LoginResult{}, nil
}

func (f *fakeAuthAPI) Register(_ context.Context, req tracker.RegisterRequest) error {
	f.registered = req
	return nil
}

func (f *fakeAuthAPI) RegisterTenant(context.Context, tracker.RegisterTenantRequest) error {
	return nil
}

type fakeProjectsAPI struct {
	projects []tracker.Project
	err      error
	block    chan struct{}
}

func (f *fakeProjectsAPI) ListProjects(ctx context.Context) ([]tracker.Project, error) {
	if f.block != nil {
		<-f.block
	}
	return f.projects, f.err
}

func (f *fakeProjectsAPI) CreateProject(context.Context, tracker.CreateProjectRequest) (tracker.Project, error) {
	return tracker.Project{}, f.err
}

func (f *fakeProjectsAPI) DeleteProject(context.Context, string) error {
	return f.err
}

type fakeSession struct {
	user  tracker.UserProfile
	token string
}

func (f fakeSession) Token() (string, bool) { return f.token, f.token != "" }
func (f fakeSession) ReadUser() tracker.UserProfile { return f.user }

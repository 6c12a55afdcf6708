// Package viewmodel holds the state behind each screen of the tracker
// client: what it shows, what it loads, and which mutations it issues.
//
// View models are safe for concurrent use. Once Close is called every
// late state write is dropped, so a request that resolves after the user
// navigated away cannot resurrect the screen.
package viewmodel

import (
	"context"
	"sync"

	"github.com/srujanaA02/multi-tenant-saas/internal/api"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// Route is a client-side destination.
type Route string

const (
	RouteLogin          Route = "/login"
	RouteRegister       Route = "/register"
	RouteRegisterTenant Route = "/register-tenant"
	RouteDashboard      Route = "/dashboard"
	RouteProjects       Route = "/projects"
	RouteUsers          Route = "/users"
)

// SessionReader is the read side of the session store.
type SessionReader interface {
	Token() (string, bool)
	ReadUser() tracker.UserProfile
}

// Guard decides whether a protected screen may render. It returns
// RouteLogin and false when no token is stored.
func Guard(s SessionReader) (Route, bool) {
	if _, ok := s.Token(); !ok {
		return RouteLogin, false
	}
	return "", true
}

// ProjectsAPI is the project surface of the API client.
type ProjectsAPI interface {
	ListProjects(ctx context.Context) ([]tracker.Project, error)
	CreateProject(ctx context.Context, req tracker.CreateProjectRequest) (tracker.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// TasksAPI is what the project details screen needs from the API client.
// Task lists are fetched through the mutation coordinator.
type TasksAPI interface {
	GetProject(ctx context.Context, id string) (tracker.Project, error)
	CreateTask(ctx context.Context, req tracker.CreateTaskRequest) (tracker.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// UsersAPI is the team membership surface of the API client.
type UsersAPI interface {
	ListUsers(ctx context.Context) ([]tracker.UserProfile, error)
	CreateUser(ctx context.Context, req tracker.CreateUserRequest) (tracker.UserProfile, error)
	DeleteUser(ctx context.Context, id string) error
}

// lifecycle guards a view model's state and drops writes after Close.
type lifecycle struct {
	mu     sync.RWMutex
	closed bool
}

// Close marks the view unmounted. Safe to call more than once.
func (l *lifecycle) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// Closed reports whether Close has been called.
func (l *lifecycle) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// update runs fn under the write lock unless the view is closed.
func (l *lifecycle) update(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		fn()
	}
}

func (l *lifecycle) read(fn func()) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn()
}

// silent reports whether a failure must not be shown to the user. An
// expired session is routed to the login screen instead.
func silent(err error) bool {
	return api.IsUnauthorized(err)
}

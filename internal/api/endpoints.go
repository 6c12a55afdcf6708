package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/srujanaA02/multi-tenant-saas/internal/sanitize"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// resourcePath joins a collection path and an id. Ids that would change the
// path are rejected before any request is sent.
func resourcePath(collection, id string) (string, error) {
	if err := sanitize.ValidateRequiredID(id, "id"); err != nil {
		return "", &Error{Kind: KindRequestFailed, Message: err.Error(), Err: err}
	}
	return collection + "/" + url.PathEscape(id), nil
}

// Login authenticates and returns the credential and profile. It does not
// store them.
func (c *Client) Login(ctx context.Context, req tracker.LoginRequest) (tracker.LoginResult, error) {
	var out tracker.LoginResult
	err := c.Do(ctx, http.MethodPost, "/auth/login", req, &out)
	return out, err
}

// Register creates a user in an existing tenant.
func (c *Client) Register(ctx context.Context, req tracker.RegisterRequest) error {
	return c.Do(ctx, http.MethodPost, "/auth/register", req, nil)
}

// RegisterTenant creates a tenant and its first administrator.
func (c *Client) RegisterTenant(ctx context.Context, req tracker.RegisterTenantRequest) error {
	return c.Do(ctx, http.MethodPost, "/auth/register-tenant", req, nil)
}

func (c *Client) ListProjects(ctx context.Context) ([]tracker.Project, error) {
	var out []tracker.Project
	err := c.Do(ctx, http.MethodGet, "/projects", nil, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id string) (tracker.Project, error) {
	var out tracker.Project
	path, err := resourcePath("/projects", id)
	if err != nil {
		return out, err
	}
	err = c.Do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, req tracker.CreateProjectRequest) (tracker.Project, error) {
	var out tracker.Project
	err := c.Do(ctx, http.MethodPost, "/projects", req, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	path, err := resourcePath("/projects", id)
	if err != nil {
		return err
	}
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// ListTasks returns the tasks of one project.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]tracker.Task, error) {
	var out []tracker.Task
	err := c.Do(ctx, http.MethodGet, "/tasks?projectId="+url.QueryEscape(projectID), nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, req tracker.CreateTaskRequest) (tracker.Task, error) {
	var out tracker.Task
	err := c.Do(ctx, http.MethodPost, "/tasks", req, &out)
	return out, err
}

// UpdateTaskStatus sends PATCH /tasks/:id {status}.
func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status tracker.TaskStatus) (tracker.Task, error) {
	var out tracker.Task
	path, err := resourcePath("/tasks", id)
	if err != nil {
		return out, err
	}
	err = c.Do(ctx, http.MethodPatch, path, tracker.UpdateTaskRequest{Status: status}, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path, err := resourcePath("/tasks", id)
	if err != nil {
		return err
	}
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// ListUsers returns the members of the caller's tenant.
func (c *Client) ListUsers(ctx context.Context) ([]tracker.UserProfile, error) {
	var out []tracker.UserProfile
	err := c.Do(ctx, http.MethodGet, "/users", nil, &out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, req tracker.CreateUserRequest) (tracker.UserProfile, error) {
	var out tracker.UserProfile
	err := c.Do(ctx, http.MethodPost, "/users", req, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	path, err := resourcePath("/users", id)
	if err != nil {
		return err
	}
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

package viewmodel

import (
	"context"
	"errors"

	"github.com/srujanaA02/multi-tenant-saas/internal/mutation"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// ErrNameRequired is returned when a project name is blank.
var ErrNameRequired = errors.New("project name is required")

// Projects backs the project list screen.
type Projects struct {
	lifecycle

	api      ProjectsAPI
	coord    *mutation.Coordinator
	notifier mutation.Notifier

	projects []tracker.Project
	loading  bool
}

func NewProjects(p ProjectsAPI, c *mutation.Coordinator, n mutation.Notifier) *Projects {
	if n == nil {
		n = mutation.NopNotifier{}
	}
	return &Projects{api: p, coord: c, notifier: n}
}

// List returns a copy of the loaded projects.
func (p *Projects) List() []tracker.Project {
	var out []tracker.Project
	p.read(func() { out = append([]tracker.Project(nil), p.projects...) })
	return out
}

func (p *Projects) Loading() bool {
	var v bool
	p.read(func() { v = p.loading })
	return v
}

// Load fetches the tenant's projects.
func (p *Projects) Load(ctx context.Context) error {
	p.update(func() { p.loading = true })
	defer p.update(func() { p.loading = false })

	projects, err := p.api.ListProjects(ctx)
	if err != nil {
		if !silent(err) {
			p.notifier.Failure(ctx, "Failed to load projects")
		}
		return err
	}
	p.update(func() { p.projects = projects })
	return nil
}

// Create adds a project once the service confirms it, then reloads the
// list. A blank name is rejected without a request.
func (p *Projects) Create(ctx context.Context, name, description string) error {
	m, err := createProject(p.api, tracker.CreateProjectRequest{Name: name, Description: description})
	if err != nil {
		return err
	}
	m.Refresh = p.Load
	return p.coord.Confirm(ctx, m)
}

// Delete removes a project once the service confirms it.
func (p *Projects) Delete(ctx context.Context, id string) error {
	m := deleteProject(p.api, id)
	m.Refresh = p.Load
	return p.coord.Confirm(ctx, m)
}

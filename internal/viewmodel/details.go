package viewmodel

import (
	"context"
	"errors"
	"math"

	"github.com/srujanaA02/multi-tenant-saas/internal/mutation"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// ErrTitleRequired is returned when a task title is blank.
var ErrTitleRequired = errors.New("task title is required")

// ProjectDetails backs the single project screen. It is the task view the
// mutation coordinator edits optimistically.
type ProjectDetails struct {
	lifecycle

	projectID string
	api       TasksAPI
	coord     *mutation.Coordinator
	notifier  mutation.Notifier

	project *tracker.Project
	tasks   []tracker.Task
	loading bool
}

var _ mutation.TaskView = (*ProjectDetails)(nil)

func NewProjectDetails(projectID string, t TasksAPI, c *mutation.Coordinator, n mutation.Notifier) *ProjectDetails {
	if n == nil {
		n = mutation.NopNotifier{}
	}
	return &ProjectDetails{projectID: projectID, api: t, coord: c, notifier: n}
}

func (d *ProjectDetails) ProjectID() string { return d.projectID }

// Project returns the loaded project, or false before the first load.
func (d *ProjectDetails) Project() (tracker.Project, bool) {
	var (
		p  tracker.Project
		ok bool
	)
	d.read(func() {
		if d.project != nil {
			p, ok = *d.project, true
		}
	})
	return p, ok
}

// Tasks returns a copy of the local task list.
func (d *ProjectDetails) Tasks() []tracker.Task {
	var out []tracker.Task
	d.read(func() { out = append([]tracker.Task(nil), d.tasks...) })
	return out
}

func (d *ProjectDetails) Loading() bool {
	var v bool
	d.read(func() { v = d.loading })
	return v
}

// Progress is the rounded percentage of tasks that are done, or 0 when
// there are none.
func (d *ProjectDetails) Progress() int {
	var done, total int
	d.read(func() {
		total = len(d.tasks)
		for _, t := range d.tasks {
			if t.Status == tracker.TaskDone {
				done++
			}
		}
	})
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// Load fetches the project, then its tasks. The task list goes through the
// coordinator so status changes still in flight keep their optimistic value.
func (d *ProjectDetails) Load(ctx context.Context) error {
	d.update(func() { d.loading = true })
	defer d.update(func() { d.loading = false })

	project, err := d.api.GetProject(ctx, d.projectID)
	if err == nil {
		d.update(func() { d.project = &project })
		if err = d.coord.RefreshTasks(ctx, d); err == nil {
			return nil
		}
	}
	if !silent(err) {
		d.notifier.Failure(ctx, "Failed to load project details")
	}
	return err
}

// TaskStatus implements mutation.TaskView.
func (d *ProjectDetails) TaskStatus(id string) (tracker.TaskStatus, bool) {
	var (
		s  tracker.TaskStatus
		ok bool
	)
	d.read(func() {
		for _, t := range d.tasks {
			if t.ID == id {
				s, ok = t.Status, true
				return
			}
		}
	})
	return s, ok
}

// ApplyTaskStatus implements mutation.TaskView.
func (d *ProjectDetails) ApplyTaskStatus(id string, status tracker.TaskStatus) {
	d.update(func() {
		for i := range d.tasks {
			if d.tasks[i].ID == id {
				d.tasks[i].Status = status
			}
		}
	})
}

// ReplaceTasks implements mutation.TaskView.
func (d *ProjectDetails) ReplaceTasks(tasks []tracker.Task) {
	cp := append([]tracker.Task(nil), tasks...)
	d.update(func() { d.tasks = cp })
}

// CreateTask adds a task once the service confirms it, then reloads. An
// empty status means todo.
func (d *ProjectDetails) CreateTask(ctx context.Context, title string, status tracker.TaskStatus) error {
	m, err := createTask(d.api, tracker.CreateTaskRequest{ProjectID: d.projectID, Title: title, Status: status})
	if err != nil {
		return err
	}
	m.Refresh = d.Load
	return d.coord.Confirm(ctx, m)
}

// SetStatus changes a task's status optimistically.
func (d *ProjectDetails) SetStatus(ctx context.Context, taskID string, status tracker.TaskStatus) error {
	return d.coord.SetTaskStatus(ctx, d, taskID, status)
}

// DeleteTask removes a task once the service confirms it.
func (d *ProjectDetails) DeleteTask(ctx context.Context, taskID string) error {
	m := deleteTask(d.api, taskID)
	m.Refresh = d.Load
	return d.coord.Confirm(ctx, m)
}

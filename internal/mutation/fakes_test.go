package mutation

import (
	"context"
	"sync"

	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

type fakeView struct {
	mu       sync.Mutex
	project  string
	tasks    []tracker.Task
	applied  []tracker.TaskStatus
	replaced int
}

func newFakeView(tasks ...tracker.Task) *fakeView {
	return &fakeView{project: "p1", tasks: tasks}
}

func (v *fakeView) ProjectID() string { return v.project }

func (v *fakeView) TaskStatus(id string) (tracker.TaskStatus, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range v.tasks {
		if t.ID == id {
			return t.Status, true
		}
	}
	return "", false
}

func (v *fakeView) ApplyTaskStatus(id string, status tracker.TaskStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.tasks {
		if v.tasks[i].ID == id {
			v.tasks[i].Status = status
		}
	}
	v.applied = append(v.applied, status)
}

func (v *fakeView) ReplaceTasks(tasks []tracker.Task) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tasks = append([]tracker.Task(nil), tasks...)
	v.replaced++
}

func (v *fakeView) status(id string) tracker.TaskStatus {
	s, _ := v.TaskStatus(id)
	return s
}

func (v *fakeView) replaceCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.replaced
}

// fakeRemote is an in-memory task service. When gate is set every
// UpdateTaskStatus blocks until a value is sent on it.
type fakeRemote struct {
	mu        sync.Mutex
	tasks     map[string]tracker.Task
	updateErr error
	listErr   error
	gate      chan struct{}
	started   chan string
	calls     []tracker.TaskStatus

	holdList    bool
	listHeld    chan struct{}
	releaseList chan struct{}
}

// holdNextList makes the next ListTasks read its result, signal listHeld
// and wait for releaseList to close before returning.
func (r *fakeRemote) holdNextList() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holdList = true
	r.listHeld = make(chan struct{}, 1)
	r.releaseList = make(chan struct{})
}

func (r *fakeRemote) setStatus(id string, status tracker.TaskStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tasks[id]
	t.Status = status
	r.tasks[id] = t
}

func newFakeRemote(tasks ...tracker.Task) *fakeRemote {
	r := &fakeRemote{tasks: make(map[string]tracker.Task)}
	for _, t := range tasks {
		r.tasks[t.ID] = t
	}
	return r
}

func (r *fakeRemote) UpdateTaskStatus(ctx context.Context, id string, status tracker.TaskStatus) (tracker.Task, error) {
	r.mu.Lock()
	r.calls = append(r.calls, status)
	gate, started := r.gate, r.started
	r.mu.Unlock()

	if started != nil {
		started <- id
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return tracker.Task{}, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return tracker.Task{}, r.updateErr
	}
	t := r.tasks[id]
	t.Status = status
	r.tasks[id] = t
	return t, nil
}

func (r *fakeRemote) ListTasks(_ context.Context, projectID string) ([]tracker.Task, error) {
	r.mu.Lock()
	if r.listErr != nil {
		r.mu.Unlock()
		return nil, r.listErr
	}
	var out []tracker.Task
	for _, t := range r.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	hold, held, release := r.holdList, r.listHeld, r.releaseList
	r.holdList = false
	r.mu.Unlock()

	if hold {
		held <- struct{}{}
		<-release
	}
	return out, nil
}

func (r *fakeRemote) callOrder() []tracker.TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracker.TaskStatus(nil), r.calls...)
}

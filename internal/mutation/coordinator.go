// Package mutation applies user edits locally before the service confirms
// them and reconciles or rolls back once it answers.
//
// Task status changes are optimistic: the view changes at once, and a
// failure reverts it and notifies. Creates and deletes wait for the service
// before touching local state. At most one mutation per entity id runs at a
// time; later ones queue behind it in arrival order.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/srujanaA02/multi-tenant-saas/internal/api"
	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

var (
	// ErrInvalidStatus is returned for a status outside todo/in_progress/done.
	ErrInvalidStatus = errors.New("invalid task status")
	// ErrTaskNotInView is returned when the view holds no task with the id.
	ErrTaskNotInView = errors.New("task not in view")
)

// Failure message for a rejected status change.
const msgStatusFailed = "Failed to update status"

// TaskView is the local task list a status mutation edits. Implementations
// must ignore writes once the view is closed.
type TaskView interface {
	ProjectID() string
	TaskStatus(id string) (tracker.TaskStatus, bool)
	ApplyTaskStatus(id string, status tracker.TaskStatus)
	ReplaceTasks(tasks []tracker.Task)
}

// Remote is the subset of the API client used for task status changes.
type Remote interface {
	UpdateTaskStatus(ctx context.Context, id string, status tracker.TaskStatus) (tracker.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]tracker.Task, error)
}

type pendingEntry struct {
	tracker.PendingMutation
	target tracker.TaskStatus
}

// fetchState orders task list fetches of one project. A fetch is stale if
// a newer one was already applied or a status change landed after it
// started.
type fetchState struct {
	issued  uint64
	applied uint64
	floor   uint64
}

// Coordinator runs optimistic and confirmed mutations.
type Coordinator struct {
	remote   Remote
	notifier Notifier
	logger   *logging.Logger
	now      func() time.Time
	queue    *entityQueue

	mu      sync.Mutex
	pending map[string]pendingEntry
	fetches map[string]*fetchState
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a Coordinator that talks to remote.
func NewCoordinator(remote Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		remote:   remote,
		notifier: NopNotifier{},
		logger:   logging.NewNop(),
		now:      time.Now,
		queue:    newEntityQueue(),
		pending:  make(map[string]pendingEntry),
		fetches:  make(map[string]*fetchState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTaskStatus changes a task's status optimistically.
//
// The view shows newStatus before the request is sent. On success the
// project's task list is re-fetched and replaces local state. On failure
// the previous status is restored, one failure notification fires (none
// for a 401), and the list is re-fetched. The call blocks while an earlier
// mutation of the same task is in flight.
func (c *Coordinator) SetTaskStatus(ctx context.Context, view TaskView, taskID string, newStatus tracker.TaskStatus) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	ctx = logging.WithEntityID(ctx, taskID)

	waitStart := c.now()
	release, err := c.queue.acquire(ctx, taskID)
	if err != nil {
		return fmt.Errorf("waiting for earlier mutation of task %s: %w", taskID, err)
	}
	defer release()
	QueueWait.Observe(c.now().Sub(waitStart).Seconds())

	previous, ok := view.TaskStatus(taskID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotInView, taskID)
	}

	c.track(pendingEntry{
		PendingMutation: tracker.PendingMutation{
			TargetID:         taskID,
			Kind:             tracker.KindTaskStatus,
			PreviousSnapshot: previous,
			SubmittedAt:      c.now(),
		},
		target: newStatus,
	})
	view.ApplyTaskStatus(taskID, newStatus)

	_, err = c.remote.UpdateTaskStatus(ctx, taskID, newStatus)
	// A 401 is not followed by a re-fetch, so fetches under way stay valid.
	c.settle(taskID, view.ProjectID(), !api.IsUnauthorized(err))

	if err == nil {
		MutationsTotal.WithLabelValues(string(tracker.KindTaskStatus), resultSuccess).Inc()
		c.notifier.Success(ctx, "Task marked as "+newStatus.Label())
		c.reconcile(ctx, view)
		return nil
	}

	view.ApplyTaskStatus(taskID, previous)
	RollbacksTotal.Inc()

	if api.IsUnauthorized(err) {
		MutationsTotal.WithLabelValues(string(tracker.KindTaskStatus), resultUnauthorized).Inc()
		c.logger.Info(ctx, "status change rejected, session expired")
		return err
	}

	MutationsTotal.WithLabelValues(string(tracker.KindTaskStatus), resultFailure).Inc()
	c.logger.Warn(ctx, "status change failed, rolled back",
		zap.String("from", string(newStatus)),
		zap.String("to", string(previous)),
		zap.Error(err),
	)
	c.notifier.Failure(ctx, msgStatusFailed)
	c.reconcile(ctx, view)
	return err
}

// reconcile re-fetches after a status change. Errors are logged only.
func (c *Coordinator) reconcile(ctx context.Context, view TaskView) {
	if err := c.RefreshTasks(ctx, view); err != nil {
		c.logger.Warn(ctx, "failed to re-fetch tasks after mutation",
			zap.String("project_id", view.ProjectID()),
			zap.Error(err),
		)
	}
}

// RefreshTasks replaces the view's tasks with the service's copy. Tasks
// with a status change still in flight keep their optimistic status. A
// list that started before a newer list was applied, or before a status
// change of the project landed, is dropped.
func (c *Coordinator) RefreshTasks(ctx context.Context, view TaskView) error {
	project := view.ProjectID()
	gen := c.beginFetch(project)

	tasks, err := c.remote.ListTasks(ctx, project)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.fetchesFor(project)
	if gen < f.floor || gen <= f.applied {
		c.logger.Debug(ctx, "dropped stale task list",
			zap.String("project_id", project),
			zap.Uint64("generation", gen),
		)
		return nil
	}
	f.applied = gen
	for i := range tasks {
		if p, ok := c.pending[tasks[i].ID]; ok {
			tasks[i].Status = p.target
		}
	}
	view.ReplaceTasks(tasks)
	return nil
}

func (c *Coordinator) beginFetch(project string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.fetchesFor(project)
	f.issued++
	return f.issued
}

// fetchesFor must be called with c.mu held.
func (c *Coordinator) fetchesFor(project string) *fetchState {
	f, ok := c.fetches[project]
	if !ok {
		f = &fetchState{}
		c.fetches[project] = f
	}
	return f
}

func (c *Coordinator) track(p pendingEntry) {
	c.mu.Lock()
	c.pending[p.TargetID] = p
	c.mu.Unlock()
	Pending.Inc()
}

// settle drops the pending entry once the service answered. With
// invalidate set, every list fetch of the project already under way is
// treated as stale.
func (c *Coordinator) settle(id, project string, invalidate bool) {
	c.mu.Lock()
	delete(c.pending, id)
	if invalidate {
		f := c.fetchesFor(project)
		f.floor = f.issued + 1
	}
	c.mu.Unlock()
	Pending.Dec()
}

// PendingMutations returns the optimistic edits awaiting a response.
func (c *Coordinator) PendingMutations() []tracker.PendingMutation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]tracker.PendingMutation, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, p.PendingMutation)
	}
	return out
}

// ListMutation is a create or delete that is confirmed before local state
// changes.
type ListMutation struct {
	Kind tracker.MutationKind
	// TargetID serializes mutations on the same entity. Empty for creates.
	TargetID string
	Call     func(ctx context.Context) error
	// Refresh reloads the owning list after a confirmed change.
	Refresh        func(ctx context.Context) error
	SuccessMessage string
	FailureMessage string
	// PreferServerMessage shows the service's error message when it sent
	// one.
	PreferServerMessage bool
}

// Confirm runs a create or delete. Nothing local changes until the service
// confirms; then the success message fires and the list is refreshed. A
// failure notifies once (never for a 401) and leaves local state alone.
func (c *Coordinator) Confirm(ctx context.Context, m ListMutation) error {
	if m.Call == nil {
		return errors.New("mutation has no call")
	}

	if m.TargetID != "" {
		ctx = logging.WithEntityID(ctx, m.TargetID)
		waitStart := c.now()
		release, err := c.queue.acquire(ctx, m.TargetID)
		if err != nil {
			return fmt.Errorf("waiting for earlier mutation of %s: %w", m.TargetID, err)
		}
		defer release()
		QueueWait.Observe(c.now().Sub(waitStart).Seconds())
	}

	Pending.Inc()
	err := m.Call(ctx)
	Pending.Dec()

	if err == nil {
		MutationsTotal.WithLabelValues(string(m.Kind), resultSuccess).Inc()
		if m.SuccessMessage != "" {
			c.notifier.Success(ctx, m.SuccessMessage)
		}
		if m.Refresh != nil {
			if rerr := m.Refresh(ctx); rerr != nil {
				c.logger.Warn(ctx, "failed to refresh after mutation",
					zap.String("kind", string(m.Kind)),
					zap.Error(rerr),
				)
			}
		}
		return nil
	}

	if api.IsUnauthorized(err) {
		MutationsTotal.WithLabelValues(string(m.Kind), resultUnauthorized).Inc()
		return err
	}

	MutationsTotal.WithLabelValues(string(m.Kind), resultFailure).Inc()
	msg := m.FailureMessage
	if m.PreferServerMessage {
		msg = api.MessageOr(err, m.FailureMessage)
	}
	c.logger.Warn(ctx, "mutation failed",
		zap.String("kind", string(m.Kind)),
		zap.Error(err),
	)
	c.notifier.Failure(ctx, msg)
	return err
}

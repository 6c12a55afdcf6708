package mutation

import (
	"context"
	"sync"
)

// Notifier shows short-lived user messages. The core decides what to say;
// the presentation layer decides how.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Failure(ctx context.Context, msg string)
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Success(context.Context, string) {}
func (NopNotifier) Failure(context.Context, string) {}

// Note is one recorded notification.
type Note struct {
	Success bool
	Message string
}

// Recorder keeps every notification in order.
type Recorder struct {
	mu    sync.Mutex
	notes []Note
}

func (r *Recorder) Success(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Note{Success: true, Message: msg})
}

func (r *Recorder) Failure(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Note{Message: msg})
}

// Notes returns a copy of everything recorded.
func (r *Recorder) Notes() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Note(nil), r.notes...)
}

// Failures returns the failure messages in order.
func (r *Recorder) Failures() []string {
	return r.filter(false)
}

// Successes returns the success messages in order.
func (r *Recorder) Successes() []string {
	return r.filter(true)
}

func (r *Recorder) filter(success bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		if n.Success == success {
			out = append(out, n.Message)
		}
	}
	return out
}

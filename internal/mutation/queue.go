package mutation

import (
	"context"
	"sync"
)

// entityQueue admits one holder per entity id at a time, in arrival order.
type entityQueue struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	tail chan struct{}
	refs int
}

func newEntityQueue() *entityQueue {
	return &entityQueue{slots: make(map[string]*slot)}
}

// acquire waits until every earlier holder of id has released. The returned
// func releases the slot and must be called exactly once.
func (q *entityQueue) acquire(ctx context.Context, id string) (func(), error) {
	q.mu.Lock()
	s, ok := q.slots[id]
	if !ok {
		s = &slot{}
		q.slots[id] = s
	}
	prev := s.tail
	mine := make(chan struct{})
	s.tail = mine
	s.refs++
	q.mu.Unlock()

	release := func() {
		close(mine)
		q.mu.Lock()
		s.refs--
		if s.refs == 0 {
			delete(q.slots, id)
		}
		q.mu.Unlock()
	}

	if prev == nil {
		return release, nil
	}

	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		// Keep the chain intact for whoever queued behind us.
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}

// depth returns how many holders and waiters id has.
func (q *entityQueue) depth(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.slots[id]; ok {
		return s.refs
	}
	return 0
}

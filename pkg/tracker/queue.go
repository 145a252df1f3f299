package tracker

import (
	"context"
	"sync"
)

type job func(context.Context)

// eventQueue hands jobs from the update goroutines to the tracker loop.
// push never blocks: the update pipeline also carries the results of the
// loop's own requests, so waiting on the loop from there can stall both.
type eventQueue struct {
	mu    sync.Mutex
	jobs  []job
	ready chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

// push appends j and returns the backlog length.
func (q *eventQueue) push(j job) int {
	q.mu.Lock()
	q.jobs = append(q.jobs, j)
	n := len(q.jobs)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return n
}

// drain takes every queued job in arrival order.
func (q *eventQueue) drain() []job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.jobs
	q.jobs = nil
	return jobs
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

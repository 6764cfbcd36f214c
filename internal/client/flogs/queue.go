package flogs

import (
	"context"
	"sync"
)

// queue runs jobs one at a time in submission order on a single worker
// goroutine, started on demand and stopped when the queue drains.
type queue struct {
	pending sync.WaitGroup

	mu      sync.Mutex
	jobs    []func()
	running bool
}

// submit appends fn. ctx is detached from cancellation so queued work
// outlives the command that enqueued it.
func (q *queue) submit(ctx context.Context, fn func(ctx context.Context)) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)

	q.pending.Add(1)
	q.mu.Lock()
	q.jobs = append(q.jobs, func() { fn(ctx) })
	start := !q.running
	q.running = true
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

func (q *queue) drain() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		job()
		q.pending.Done()
	}
}

// wait blocks until every submitted job has run.
func (q *queue) wait() { q.pending.Wait() }

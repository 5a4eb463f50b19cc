package dispatch

import (
	"sync"

	"github.com/volnat/murmur/internal/session"
)

// Queues serializes work per session while letting different sessions run
// concurrently: a concurrent map from session identity to a FIFO of jobs,
// drained by at most one goroutine per session. A second message arriving
// while a turn is streaming queues behind it instead of interleaving, so
// history ordering is preserved without any global lock.
type Queues struct {
	mu     sync.Mutex
	queues map[session.ID]*sessionQueue
}

type sessionQueue struct {
	pending []func()
	running bool
}

func NewQueues() *Queues {
	return &Queues{
		queues: make(map[session.ID]*sessionQueue),
	}
}

// Submit enqueues job for the session and starts a drain worker if none is
// running. Jobs for one session execute in submission order.
func (qs *Queues) Submit(id session.ID, job func()) {
	qs.mu.Lock()

	queue, ok := qs.queues[id]
	if !ok {
		queue = &sessionQueue{}
		qs.queues[id] = queue
	}

	queue.pending = append(queue.pending, job)

	if !queue.running {
		queue.running = true
		go qs.drain(id, queue)
	}

	qs.mu.Unlock()
}

func (qs *Queues) drain(id session.ID, queue *sessionQueue) {
	for {
		qs.mu.Lock()
		if len(queue.pending) == 0 {
			queue.running = false
			delete(qs.queues, id)
			qs.mu.Unlock()
			return
		}

		job := queue.pending[0]
		queue.pending = queue.pending[1:]
		qs.mu.Unlock()

		job()
	}
}

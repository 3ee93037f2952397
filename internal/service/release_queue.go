package service

import (
	"context"
	"sync"

	"github.com/haatos/simple-release/internal/store"
)

type ReleaseProcessor func(ctx context.Context, r *store.Release)

func NewReleaseQueue(projectID int64, process ReleaseProcessor, size int64) *ReleaseQueue {
	if size < 1 {
		size = 1
	}
	return &ReleaseQueue{
		projectID: projectID,
		process:   process,
		queue:     make(chan *store.Release, size),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// ReleaseQueue runs the releases of one project strictly one after another.
type ReleaseQueue struct {
	projectID int64
	process   ReleaseProcessor

	queue   chan *store.Release
	done    chan struct{}
	stopped chan struct{}
	mu      sync.Mutex
}

func (rq *ReleaseQueue) Enqueue(r *store.Release) error {
	select {
	case <-rq.done:
		return NewErrReleaseQueueFull(rq.projectID)
	default:
	}
	select {
	case rq.queue <- r:
		return nil
	default:
		return NewErrReleaseQueueFull(rq.projectID)
	}
}

func (rq *ReleaseQueue) Len() int {
	return len(rq.queue)
}

// Run processes releases until Shutdown. A release in progress is always
// finished; releases still queued at shutdown are dropped.
func (rq *ReleaseQueue) Run() {
	defer close(rq.stopped)
	for {
		select {
		case <-rq.done:
			return
		default:
		}
		select {
		case r := <-rq.queue:
			rq.process(context.Background(), r)
		case <-rq.done:
			return
		}
	}
}

func (rq *ReleaseQueue) Shutdown() {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	select {
	case <-rq.done:
	default:
		close(rq.done)
	}
}

// Wait blocks until Run has returned.
func (rq *ReleaseQueue) Wait() {
	<-rq.stopped
}

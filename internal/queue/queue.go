// Package queue implements the worker's concurrent pipeline: a bounded FIFO
// buffer of downloaded jobs, the downloader loop that fills it, and the pool
// of transcription workers that drain it.
package queue

import (
	"context"
	"time"

	"github.com/atcscribe/asr-worker/internal/types"
)

// Queue is a fixed-capacity FIFO buffer between the downloader and the
// transcription workers. Push blocks when full; Pop blocks with a short
// timeout so idle consumers can observe cancellation. Each item is handed
// to exactly one consumer.
type Queue struct {
	ch chan types.QueuedJob
}

// New creates a queue holding at most capacity jobs.
func New(capacity int) *Queue {
	return &Queue{ch: make(chan types.QueuedJob, capacity)}
}

// Push enqueues an item, blocking while the queue is full. It fails only
// when ctx is cancelled before space frees up.
func (q *Queue) Push(ctx context.Context, item types.QueuedJob) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues the oldest item, waiting at most timeout. The second return
// is false when the wait expired with nothing available.
func (q *Queue) Pop(timeout time.Duration) (types.QueuedJob, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item := <-q.ch:
		return item, true
	case <-timer.C:
		return types.QueuedJob{}, false
	}
}

// Len returns the number of buffered jobs.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the configured capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Full reports whether the queue is at capacity. The downloader checks this
// before polling the API so it never pulls a job it cannot buffer.
func (q *Queue) Full() bool {
	return len(q.ch) >= cap(q.ch)
}

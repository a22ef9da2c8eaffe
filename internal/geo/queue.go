package geo

import (
	"context"
	"net/http"
	"time"
)

// RequestQueue serializes outbound requests to the primary geocoding
// provider through a single consumer goroutine, enforcing a minimum
// interval between consecutive requests. One instance exists per process
// and is injected into the Client.
type RequestQueue struct {
	interval time.Duration
	jobs     chan queuedRequest
	done     chan struct{}
}

type queuedRequest struct {
	ctx    context.Context
	do     func() (*http.Response, error)
	result chan queueResult
}

type queueResult struct {
	resp *http.Response
	err  error
}

// NewRequestQueue creates a queue with the given minimum inter-request
// interval and starts its consumer goroutine.
func NewRequestQueue(interval time.Duration) *RequestQueue {
	q := &RequestQueue{
		interval: interval,
		jobs:     make(chan queuedRequest, 64),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *RequestQueue) run() {
	var last time.Time

	for {
		select {
		case <-q.done:
			q.failPending()
			return
		case job := <-q.jobs:
			if wait := q.interval - time.Since(last); !last.IsZero() && wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-q.done:
					timer.Stop()
					job.result <- queueResult{err: context.Canceled}
					q.failPending()
					return
				case <-timer.C:
				}
			}

			if err := job.ctx.Err(); err != nil {
				job.result <- queueResult{err: err}
				continue
			}

			resp, err := job.do()
			last = time.Now()
			job.result <- queueResult{resp: resp, err: err}
		}
	}
}

// Do enqueues a request and blocks until it has been executed in FIFO
// order, or until ctx is cancelled before execution begins.
func (q *RequestQueue) Do(ctx context.Context, fn func() (*http.Response, error)) (*http.Response, error) {
	job := queuedRequest{
		ctx:    ctx,
		do:     fn,
		result: make(chan queueResult, 1),
	}

	select {
	case q.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, context.Canceled
	}

	res := <-job.result
	return res.resp, res.err
}

// failPending fails every job still buffered at shutdown so its caller
// unblocks. Result channels are buffered, so the sends cannot block.
func (q *RequestQueue) failPending() {
	for {
		select {
		case job := <-q.jobs:
			job.result <- queueResult{err: context.Canceled}
		default:
			return
		}
	}
}

// Close stops the consumer goroutine. Pending requests fail.
func (q *RequestQueue) Close() {
	close(q.done)
}

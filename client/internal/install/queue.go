package install

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	berrors "github.com/berrylauncher/berry/client/errors"
	semaphoregroup "github.com/berrylauncher/berry/util/semaphore-group"
)

// DefaultMaxConcurrentDownloads bounds concurrent install runs.
const DefaultMaxConcurrentDownloads = 3

// Runner executes one install request.
type Runner interface {
	Run(ctx context.Context, req Request) error
}

// Result is the outcome of a queued request.
type Result struct {
	Request Request
	Err     error
}

// ErrAlreadyQueued is returned by Enqueue for a version that is queued or running.
type ErrAlreadyQueued struct {
	Version string
}

func (e ErrAlreadyQueued) Error() string {
	return fmt.Sprintf("version %s is already queued", e.Version)
}

// Queue runs install requests with a bounded number of concurrent runs and
// at most one queued or running request per version.
type Queue struct {
	runner Runner
	sg     *semaphoregroup.SemaphoreGroup

	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup
	results chan Result
}

// NewQueue creates a Queue. limit below one runs requests one at a time.
func NewQueue(runner Runner, limit int) *Queue {
	return &Queue{
		runner:  runner,
		sg:      semaphoregroup.NewSemaphoreGroup(limit),
		pending: make(map[string]struct{}),
		results: make(chan Result, 16),
	}
}

// Enqueue schedules req. The run starts once a slot is free.
func (q *Queue) Enqueue(ctx context.Context, req Request) error {
	q.mu.Lock()
	if _, ok := q.pending[req.Version]; ok {
		q.mu.Unlock()
		return ErrAlreadyQueued{Version: req.Version}
	}
	q.pending[req.Version] = struct{}{}
	q.wg.Add(1)
	q.mu.Unlock()

	go q.run(ctx, req)
	return nil
}

func (q *Queue) run(ctx context.Context, req Request) {
	defer q.wg.Done()

	err := q.sg.Add(ctx)
	if err == nil {
		log.Debugf("running %s (%d/%d slots)", req.Version, q.sg.InFlight(), q.sg.Limit())
		err = q.runner.Run(ctx, req)
		q.sg.Done()
	} else {
		err = berrors.New(berrors.KindCancelled, "queue", err).WithVersion(req.Version)
	}

	q.mu.Lock()
	delete(q.pending, req.Version)
	q.mu.Unlock()

	q.results <- Result{Request: req, Err: err}
}

// Results delivers one Result per accepted request. Callers must drain it.
func (q *Queue) Results() <-chan Result {
	return q.results
}

// Wait blocks until every accepted request finished, then closes Results.
// No request may be enqueued after Wait was called.
func (q *Queue) Wait() {
	q.wg.Wait()
	close(q.results)
}


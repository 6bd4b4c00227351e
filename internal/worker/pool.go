package worker

import (
	"context"
	"sync"
)

// Job represents a unit of blocking work executed on a pool worker
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// submission pairs a job with the context and reply channel of its caller
type submission struct {
	ctx context.Context
	job Job
	out chan Result
}

// Pool is a long-lived bounded worker pool. It exists to isolate blocking
// network I/O (backend searches, HEAD checks) from the goroutines that
// orchestrate claim pipelines: callers dispatch jobs and await a reply
// channel while the pool caps how many blocking calls run at once.
//
// The pool is shared across all claims in a batch; no claim owns it.
type Pool struct {
	workers    int
	queue      chan submission
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	startOnce  sync.Once
	stopOnce   sync.Once
}

// NewPool creates a pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:    workers,
		queue:      make(chan submission, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers. Safe to call more than once.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case sub := <-p.queue:
			if sub.ctx.Err() != nil {
				// Caller gave up while the job sat in the queue.
				close(sub.out)
				continue
			}
			sub.out <- sub.job.Execute(sub.ctx)
			close(sub.out)
		}
	}
}

// Dispatch enqueues a job and returns the channel its result will arrive
// on. The channel is closed after at most one result; it is closed empty
// when the job was dropped because the caller's context or the pool was
// cancelled first.
func (p *Pool) Dispatch(ctx context.Context, job Job) <-chan Result {
	out := make(chan Result, 1)

	select {
	case p.queue <- submission{ctx: ctx, job: job, out: out}:
	case <-ctx.Done():
		close(out)
	case <-p.ctx.Done():
		close(out)
	}

	return out
}

// Shutdown stops the pool. Queued jobs that have not started are dropped;
// their reply channels are closed by the abandoned workers' queue.
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		p.cancelFunc()
	})
	p.wg.Wait()
}

package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Indexed pairs a result with the position its job was submitted under
type Indexed struct {
	Index  int
	Result Result
}

// Pool runs jobs on a fixed number of workers. Results arrive in completion
// order; the submission index lets the consumer restore input order.
type Pool struct {
	workers   int
	jobQueue  chan indexedJob
	results   chan Indexed
	wg        sync.WaitGroup
	ctx       context.Context
	closeOnce sync.Once
}

type indexedJob struct {
	index int
	job   Job
}

// NewPool creates a worker pool bound to ctx. Cancelling ctx stops the workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:  workers,
		jobQueue: make(chan indexedJob, workers*2),
		results:  make(chan Indexed, workers*2),
		ctx:      ctx,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok || p.ctx.Err() != nil {
				return
			}
			result := ij.job.Execute(p.ctx)
			select {
			case p.results <- Indexed{Index: ij.index, Result: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job under index. It blocks while the queue is full and
// returns the context error once the pool is cancelled.
// Submit from a different goroutine than the one draining Results.
func (p *Pool) Submit(index int, job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- indexedJob{index: index, job: job}:
		return nil
	}
}

// Close signals that no more jobs will be submitted
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}

// Results streams results as jobs finish. The channel closes after Close
// once every queued job has run, or after cancellation.
func (p *Pool) Results() <-chan Indexed {
	return p.results
}

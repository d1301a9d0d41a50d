package workgroup

import (
	"context"
	"fmt"
	"sync"

	"github.com/bottlerocket-os/modota/pkg/logging"
)

// Task is a unit of work run by a Pool.
type Task func(ctx context.Context)

// Pool runs submitted tasks on a fixed number of workers. Tasks submitted
// while the queue is full are refused rather than blocking the submitter.
type Pool struct {
	log     logging.Logger
	workers int
	queue   chan Task

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a pool of workers draining a queue of depth tasks. Workers
// only start once Run is called, but tasks may be queued before then.
func NewPool(workers, depth int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if depth < 0 {
		depth = 0
	}
	return &Pool{
		log:     logging.New("pool"),
		workers: workers,
		queue:   make(chan Task, depth),
	}
}

// Submit queues task and reports whether it was accepted.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.queue <- task:
		return true
	default:
		return false
	}
}

// Run drives the workers until ctx is done. Tasks still queued at that point
// are discarded; running tasks are waited for.
func (p *Pool) Run(ctx context.Context) error {
	group := WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		id := i
		group.Work(func(ctx context.Context) error {
			p.worker(ctx, id)
			return nil
		})
	}
	<-ctx.Done()
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	return group.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	log := p.log.WithField("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue:
			p.run(ctx, log, task)
		}
	}
}

func (p *Pool) run(ctx context.Context, log logging.Logger, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("task panicked")
		}
	}()
	task(ctx)
}

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("worker queue full")
	ErrStopped   = errors.New("worker pool stopped")
)

type Job struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Pool runs background jobs on a fixed set of workers. Submit never
// blocks: a full queue rejects the job.
type Pool struct {
	jobs       chan Job
	maxWorkers int
	timeout    time.Duration
	logger     *zap.SugaredLogger
	onDrop     func(Job)

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

type Options struct {
	QueueSize  int
	MaxWorkers int
	// JobTimeout bounds each job's context.
	JobTimeout time.Duration
	// OnDrop is called for every job rejected by Submit.
	OnDrop func(Job)
}

func NewPool(options Options, logger *zap.SugaredLogger) *Pool {
	if options.QueueSize <= 0 {
		options.QueueSize = 1024
	}
	if options.MaxWorkers <= 0 {
		options.MaxWorkers = 4
	}
	if options.JobTimeout <= 0 {
		options.JobTimeout = 10 * time.Second
	}

	p := &Pool{
		jobs:       make(chan Job, options.QueueSize),
		maxWorkers: options.MaxWorkers,
		timeout:    options.JobTimeout,
		logger:     logger,
		onDrop:     options.OnDrop,
	}
	p.startWorkers()

	return p
}

func (p *Pool) startWorkers() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for job := range p.jobs {
				p.run(workerID, job)
			}
		}(i)
	}
}

func (p *Pool) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorw("job panicked", "job", job.Name, "worker", workerID, "panic", r)
		}
	}()

	if err := job.Fn(ctx); err != nil {
		p.logger.Warnw("job failed", "job", job.Name, "worker", workerID, "error", err)
	}
}

func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		if p.onDrop != nil {
			p.onDrop(job)
		}
		return ErrQueueFull
	}
}

// Depth is the number of queued jobs not yet picked up.
func (p *Pool) Depth() int {
	return len(p.jobs)
}

// Shutdown stops accepting jobs and waits for queued ones to finish or
// for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package jobs

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Job represents a queued background task.
type Job struct {
	ID string
	// Key groups jobs that target the same record. A job waiting in the queue is replaced by a
	// newer one with the same key. Defaults to ID.
	Key      string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnDrop is invoked once a job has exhausted its retries.
	OnDrop func(Job, error)
}

// Queue is an in-memory job dispatcher backed by goroutines. Enqueue never blocks: waiting
// jobs live in a keyed map, so the backlog is bounded by the number of distinct keys rather
// than by the number of calls. A failing job is retried by the worker that picked it up, and
// two jobs with the same key never run at once. With a single worker, keys are processed in
// the order they were first queued.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	onDrop     func(Job, error)

	mu       sync.Mutex
	pending  map[string]Job
	order    []string
	inflight map[string]struct{}
	started  bool
	stopped  bool

	wake    chan struct{}
	closing chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		onDrop:     cfg.OnDrop,
		pending:    make(map[string]Job),
		inflight:   make(map[string]struct{}),
		wake:       make(chan struct{}, 1),
		closing:    make(chan struct{}),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop refuses new jobs and lets workers drain the backlog. When ctx expires first, workers
// are cancelled and Stop returns without waiting for handlers that ignore cancellation.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.closing)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		q.logger.Sugar().Infow("queue stopped", "queue", q.name)
		return nil
	case <-ctx.Done():
		q.cancel()
		pending := q.Pending()
		q.logger.Sugar().Warnw("queue stop interrupted", "queue", q.name, "pending", pending)
		return fmt.Errorf("queue %s: drain interrupted with %d pending: %w", q.name, pending, ctx.Err())
	}
}

// Pending reports the number of jobs waiting for a worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Enqueue adds a job without blocking. A waiting job with the same key is replaced in place.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopped || q.ctx.Err() != nil {
		q.mu.Unlock()
		return fmt.Errorf("queue %s stopped", q.name)
	}
	if job.Key == "" {
		job.Key = job.ID
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	if _, waiting := q.pending[job.Key]; !waiting {
		q.order = append(q.order, job.Key)
	}
	q.pending[job.Key] = job
	q.mu.Unlock()

	q.signal()
	return nil
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next claims the oldest waiting job whose key is not already being processed.
func (q *Queue) next() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, key := range q.order {
		if _, busy := q.inflight[key]; busy {
			continue
		}
		job := q.pending[key]
		delete(q.pending, key)
		q.order = slices.Delete(q.order, i, i+1)
		q.inflight[key] = struct{}{}
		if len(q.order) > 0 {
			q.signal()
		}
		return job, true
	}
	return Job{}, false
}

func (q *Queue) release(key string) {
	q.mu.Lock()
	delete(q.inflight, key)
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) superseded(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[key]
	return ok
}

func (q *Queue) worker() {
	defer q.wg.Done()
	closing := q.closing
	draining := false
	for {
		if q.ctx.Err() != nil {
			return
		}
		if job, ok := q.next(); ok {
			q.run(job)
			q.release(job.Key)
			continue
		}
		if draining && q.Pending() == 0 {
			return
		}
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		case <-closing:
			closing = nil
			draining = true
		}
	}
}

func (q *Queue) run(job Job) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = q.retryDelay
	policy.MaxInterval = q.retryDelay * 30
	policy.Reset()

	for {
		err := q.handler(q.ctx, job)
		if err == nil {
			return
		}
		job.Attempt++
		if q.superseded(job.Key) {
			q.logger.Sugar().Debugw("job superseded", "queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
			return
		}
		if job.Attempt > q.maxRetries || q.ctx.Err() != nil {
			q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempts", job.Attempt, "error", err)
			if q.onDrop != nil {
				q.onDrop(job, err)
			}
			return
		}

		delay := policy.NextBackOff()
		q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			if q.onDrop != nil {
				q.onDrop(job, q.ctx.Err())
			}
			return
		case <-timer.C:
		}
	}
}

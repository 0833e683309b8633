package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueFull is returned by TryEnqueue when the buffer has no room.
var ErrQueueFull = errors.New("queue buffer full")

// Job represents a queued background task.
type Job struct {
	ID       string
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
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory job dispatcher backed by a fixed set of goroutines.
// Jobs still buffered when Stop is called are drained before workers exit.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
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
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Calling it more than once is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop rejects new jobs, waits for buffered jobs to finish and releases the workers.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	close(q.jobs)
	q.wg.Wait()
	q.cancel()
	q.logger.Info("queue stopped")
}

// Enqueue pushes a job onto the queue, blocking while the buffer is full.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if err := q.acceptable(); err != nil {
		return err
	}
	job = q.stamp(job)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, q.ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

// TryEnqueue pushes a job without blocking and returns ErrQueueFull when the
// buffer has no room.
func (q *Queue) TryEnqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if err := q.acceptable(); err != nil {
		return err
	}
	select {
	case q.jobs <- q.stamp(job):
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) acceptable() error {
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopped {
		return fmt.Errorf("queue %s stopped", q.name)
	}
	return nil
}

func (q *Queue) stamp(job Job) Job {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	return job
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(job)
	}
}

// process runs the handler, retrying in place up to MaxRetries times. Retries
// are abandoned once the queue is stopping.
func (q *Queue) process(job Job) {
	for {
		ctx := q.ctx
		if ctx.Err() != nil {
			ctx = context.Background()
		}
		err := q.handler(ctx, job)
		if err == nil {
			return
		}
		job.Attempt++
		fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
		if job.Attempt > q.cfg.MaxRetries {
			q.logger.Error("job exceeded retries", fields...)
			return
		}
		q.logger.Warn("job failed, retrying", fields...)

		timer := time.NewTimer(q.cfg.RetryDelay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			q.logger.Error("job retry abandoned during shutdown", fields...)
			return
		case <-timer.C:
		}
	}
}

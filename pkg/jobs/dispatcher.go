package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/repairdesk/repairdesk-backend/pkg/logger"
	"github.com/repairdesk/repairdesk-backend/pkg/metrics"
)

// Result tells the dispatcher what to do with a finished job.
type Result int

const (
	// Success acks the job.
	Success Result = iota
	// Retry reschedules the job with backoff until attempts run out.
	Retry
	// Failure acks the job without retrying; the error is logged.
	Failure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Handler executes jobs of one kind.
type Handler interface {
	Handle(ctx context.Context, job Job) (Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, job Job) (Result, error) {
	return f(ctx, job)
}

// Lock guards a dispatch cycle so only one worker claims at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

const (
	defaultPollInterval = 5 * time.Second
	defaultLease        = 2 * time.Minute
	defaultBatchSize    = 50
	defaultMaxAttempts  = 8
	defaultBaseBackoff  = 30 * time.Second
	defaultMaxBackoff   = time.Hour
)

// DispatcherParams configure the dispatcher.
type DispatcherParams struct {
	Queue        Queue
	Logger       *logger.Logger
	Metrics      *metrics.JobMetrics
	Lock         Lock
	PollInterval time.Duration
	Lease        time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	Now          func() time.Time
}

// Dispatcher polls the queue for due jobs and routes them by kind.
type Dispatcher struct {
	queue        Queue
	logg         *logger.Logger
	metrics      *metrics.JobMetrics
	lock         Lock
	pollInterval time.Duration
	lease        time.Duration
	batchSize    int
	maxAttempts  int
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Queue == nil {
		return nil, fmt.Errorf("job queue required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	d := &Dispatcher{
		queue:        params.Queue,
		logg:         params.Logger,
		metrics:      params.Metrics,
		lock:         params.Lock,
		pollInterval: orDuration(params.PollInterval, defaultPollInterval),
		lease:        orDuration(params.Lease, defaultLease),
		batchSize:    orInt(params.BatchSize, defaultBatchSize),
		maxAttempts:  orInt(params.MaxAttempts, defaultMaxAttempts),
		baseBackoff:  orDuration(params.BaseBackoff, defaultBaseBackoff),
		maxBackoff:   orDuration(params.MaxBackoff, defaultMaxBackoff),
		now:          params.Now,
		handlers:     map[string]Handler{},
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Register binds a handler to a job kind. Kinds can only be bound once.
func (d *Dispatcher) Register(kind string, handler Handler) error {
	if kind == "" || handler == nil {
		return errors.New("job kind and handler are required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[kind]; exists {
		return fmt.Errorf("handler already registered for %q", kind)
	}
	d.handlers[kind] = handler
	return nil
}

func (d *Dispatcher) handler(kind string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[kind]
}

// Run polls until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil && ctx.Err() == nil {
			d.logg.Error(ctx, "job dispatch cycle failed", err)
		}
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "job dispatcher context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch of due jobs and processes it. It returns the
// number of jobs handled.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	if d.lock != nil {
		locked, err := d.lock.Acquire(ctx)
		if err != nil {
			return 0, fmt.Errorf("lock acquire: %w", err)
		}
		if !locked {
			return 0, nil
		}
		defer func() {
			if relErr := d.lock.Release(ctx); relErr != nil {
				d.logg.Error(ctx, "failed to release dispatcher lock", relErr)
			}
		}()
	}

	claimed, err := d.queue.Claim(ctx, d.now(), d.lease, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim: %w", err)
	}
	for _, job := range claimed {
		d.process(ctx, job)
	}
	return len(claimed), nil
}

func (d *Dispatcher) process(ctx context.Context, job Job) {
	jobCtx := d.logg.WithFields(ctx, map[string]any{
		"job":     job.Kind,
		"job_key": job.Key,
		"attempt": job.Attempt,
	})

	handler := d.handler(job.Kind)
	if handler == nil {
		d.logg.Error(jobCtx, "no handler registered for job kind", nil)
		d.metrics.IncFailure(job.Kind)
		d.ack(jobCtx, job)
		return
	}

	start := d.now()
	result, err := d.safeHandle(jobCtx, handler, job)
	d.metrics.ObserveDuration(job.Kind, d.now().Sub(start))

	switch result {
	case Success:
		d.metrics.IncSuccess(job.Kind)
		d.ack(jobCtx, job)
	case Retry:
		if job.Attempt+1 >= d.maxAttempts {
			d.logg.Error(jobCtx, "job exhausted retries", err)
			d.metrics.IncFailure(job.Kind)
			d.ack(jobCtx, job)
			return
		}
		at := d.now().Add(d.backoff(job.Attempt))
		d.metrics.IncRetry(job.Kind)
		ok, rerr := d.queue.Retry(jobCtx, job, at)
		if rerr != nil {
			d.logg.Error(jobCtx, "failed to reschedule job", rerr)
			return
		}
		if !ok {
			d.logg.Info(jobCtx, "job superseded before retry")
			return
		}
		retryCtx := d.logg.WithField(jobCtx, "retry_at", at.Format(time.RFC3339))
		if err != nil {
			retryCtx = d.logg.WithField(retryCtx, "reason", err.Error())
		}
		d.logg.Warn(retryCtx, "job scheduled for retry")
	default:
		d.logg.Error(jobCtx, "job failed", err)
		d.metrics.IncFailure(job.Kind)
		d.ack(jobCtx, job)
	}
}

func (d *Dispatcher) safeHandle(ctx context.Context, handler Handler, job Job) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Failure
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, job)
}

func (d *Dispatcher) ack(ctx context.Context, job Job) {
	if _, err := d.queue.Ack(ctx, job); err != nil {
		d.logg.Error(ctx, "failed to ack job", err)
	}
}

// backoff doubles from the base per attempt, capped at the max.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.baseBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= d.maxBackoff {
			return d.maxBackoff
		}
	}
	if delay > d.maxBackoff {
		return d.maxBackoff
	}
	return delay
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func orInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

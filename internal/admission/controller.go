package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"wallets/internal/metrics"

	"golang.org/x/sync/semaphore"
)

const (
	taskQueued int32 = iota
	taskRunning
	taskAbandoned
)

var (
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrConcurrencyLimit = errors.New("too many concurrent operations")
)

type Config struct {
	// MaxConcurrent caps tasks holding a slot at once.
	MaxConcurrent int
	// AcquireWait is how long a caller may wait for a free slot. Zero rejects at once.
	AcquireWait time.Duration
	Workers     int
	QueueSize   int
}

// Controller admits work subject to a rate cap, a concurrency cap and the
// capacity of a bounded worker pool. Anything over a limit is rejected before
// it starts; nothing queues without bound.
type Controller struct {
	limiter     RateLimiter
	slots       *semaphore.Weighted
	acquireWait time.Duration
	pool        *Pool
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewController(cfg Config, limiter RateLimiter, logger *slog.Logger, m *metrics.Metrics) *Controller {
	if limiter == nil {
		limiter = Unlimited()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Controller{
		limiter:     limiter,
		slots:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		acquireWait: cfg.AcquireWait,
		pool:        NewPool(cfg.Workers, cfg.QueueSize),
		logger:      logger,
		metrics:     m,
	}
}

// Do runs task on the worker pool once admitted and returns its error. If ctx
// ends while the task is still queued, the task is dropped and Do returns
// ctx.Err(). Once the task has started, Do waits for it, so the returned error
// always tells whether the task ran to completion. The task is expected to
// honour ctx itself.
func (c *Controller) Do(ctx context.Context, task func(context.Context) error) error {
	allowed, err := c.limiter.Allow(ctx)
	if err != nil {
		c.logger.Warn("Rate limiter unavailable, admitting request", slog.Any("err", err))
	}
	if !allowed {
		c.metrics.RecordRejection("rate")
		return ErrRateLimited
	}

	if err := c.acquire(ctx); err != nil {
		c.metrics.RecordRejection("concurrency")
		return err
	}
	c.metrics.SlotAcquired()

	var state atomic.Int32
	done := make(chan error, 1)
	err = c.pool.TrySubmit(func() {
		defer c.release()
		if !state.CompareAndSwap(taskQueued, taskRunning) {
			return
		}
		if err := ctx.Err(); err != nil {
			done <- err
			return
		}
		done <- task(ctx)
	})
	if err != nil {
		c.release()
		c.metrics.RecordRejection("queue")
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if state.CompareAndSwap(taskQueued, taskAbandoned) {
			return ctx.Err()
		}
		return <-done
	}
}

func (c *Controller) acquire(ctx context.Context) error {
	if c.acquireWait <= 0 {
		if !c.slots.TryAcquire(1) {
			return ErrConcurrencyLimit
		}
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, c.acquireWait)
	defer cancel()
	if err := c.slots.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: no slot within %s", ErrConcurrencyLimit, c.acquireWait)
	}
	return nil
}

func (c *Controller) release() {
	c.slots.Release(1)
	c.metrics.SlotReleased()
}

// Close drains the worker pool. Later calls to Do fail with ErrPoolClosed.
func (c *Controller) Close() {
	c.pool.Close()
}

// IsRejection reports whether err means the request was turned away for load.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrConcurrencyLimit) ||
		errors.Is(err, ErrPoolSaturated) ||
		errors.Is(err, ErrPoolClosed)
}

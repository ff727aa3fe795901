package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"reawwise/internal/logging"
	"reawwise/internal/services"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("job pool closed")

// Result carries a job outcome back to the submitter.
type Result[T any] struct {
	JobID      string
	Generation uint64
	Value      T
	Err        error
	Elapsed    time.Duration
}

// Pool runs jobs with bounded concurrency. Jobs share a context that Close
// cancels.
type Pool struct {
	logger *slog.Logger
	sem    chan struct{}

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool running at most size jobs at once.
func NewPool(ctx context.Context, size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	runCtx, cancel := context.WithCancel(ctx)
	return &Pool{
		logger: logging.NewComponentLogger(logger, "jobs"),
		sem:    make(chan struct{}, size),
		ctx:    runCtx,
		cancel: cancel,
	}
}

// Submit runs fn on the pool and returns a channel that receives exactly one
// Result. generation is copied into the result so callers can match it
// against a Latest.
func Submit[T any](p *Pool, kind string, generation uint64, fn func(context.Context) (T, error)) (<-chan Result[T], error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.wg.Add(1)
	ctx := p.ctx
	p.mu.Unlock()

	jobID := uuid.NewString()
	out := make(chan Result[T], 1)
	go func() {
		defer p.wg.Done()
		ctx = services.WithJob(ctx, jobID)
		logger := logging.WithContext(ctx, p.logger).With(logging.String("kind", kind))

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			out <- Result[T]{JobID: jobID, Generation: generation, Err: ctx.Err()}
			return
		}
		defer func() { <-p.sem }()

		start := time.Now()
		value, err := run(ctx, fn)
		elapsed := time.Since(start)
		if err != nil {
			logger.Debug("job failed", logging.Duration("elapsed", elapsed), logging.Error(err))
		} else {
			logger.Debug("job finished", logging.Duration("elapsed", elapsed))
		}
		out <- Result[T]{JobID: jobID, Generation: generation, Value: value, Err: err, Elapsed: elapsed}
	}()
	return out, nil
}

func run[T any](ctx context.Context, fn func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrTransient, "jobs", "run", "job panicked", fmt.Errorf("%v", r))
		}
	}()
	return fn(ctx)
}

// Close cancels running jobs and waits for them to return.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
}

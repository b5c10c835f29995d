package dispatch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minConcurrency = 1
	defaultBuffer  = 64
)

// Task is one unit of deferred work.
type Task func(ctx context.Context)

// Executor runs deferred delivery work on a bounded in-process queue drained
// by a fixed worker pool. Task outcomes are unobservable to the enqueuer by
// design; they surface only through logs and metrics. The queue does not
// survive a process restart.
type Executor struct {
	tasks       chan Task
	logger      *zap.Logger
	concurrency int

	mu     sync.RWMutex
	closed bool
}

func NewExecutor(buffer, concurrency int, logger *zap.Logger) *Executor {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if concurrency < minConcurrency {
		concurrency = minConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		tasks:       make(chan Task, buffer),
		logger:      logger,
		concurrency: concurrency,
	}
}

// Start consumes tasks until the context is canceled or Close is called.
func (e *Executor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < e.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			e.logger.Info("dispatch worker started", zap.Int("workerId", workerID))

			for {
				select {
				case <-groupCtx.Done():
					e.logger.Info("dispatch worker stopped", zap.Int("workerId", workerID))
					return nil
				case task, ok := <-e.tasks:
					if !ok {
						e.logger.Info("dispatch worker stopped", zap.Int("workerId", workerID))
						return nil
					}
					e.run(groupCtx, task)
				}
			}
		})
	}

	return g.Wait()
}

// Enqueue hands a task to the pool without blocking the caller. It reports
// false when the queue is full or the executor is closed.
func (e *Executor) Enqueue(task Task) bool {
	if e == nil || task == nil {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}

	select {
	case e.tasks <- task:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks; queued tasks are still drained by Start.
func (e *Executor) Close() {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.tasks)
}

func (e *Executor) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("dispatch task panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	task(ctx)
}

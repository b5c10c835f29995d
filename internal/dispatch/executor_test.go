package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutorRunsEnqueuedTasks(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(16, 2, nil)

	done := make(chan error, 1)
	go func() {
		done <- executor.Start(context.Background())
	}()

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		ok := executor.Enqueue(func(ctx context.Context) {
			defer wg.Done()
			ran.Add(1)
		})
		if !ok {
			t.Fatal("Enqueue() should accept while the queue has room")
		}
	}

	wg.Wait()
	if got := ran.Load(); got != 10 {
		t.Fatalf("tasks ran = %d, want 10", got)
	}

	executor.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not stop after Close")
	}
}

func TestExecutorSurvivesPanickingTask(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(4, 1, nil)

	done := make(chan error, 1)
	go func() {
		done <- executor.Start(context.Background())
	}()

	executor.Enqueue(func(ctx context.Context) {
		panic("boom")
	})

	recovered := make(chan struct{})
	executor.Enqueue(func(ctx context.Context) {
		close(recovered)
	})

	select {
	case <-recovered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}

	executor.Close()
	<-done
}

func TestExecutorEnqueueAfterClose(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(4, 1, nil)
	executor.Close()

	if executor.Enqueue(func(ctx context.Context) {}) {
		t.Fatal("Enqueue() should reject tasks after Close")
	}
}

func TestExecutorEnqueueRejectsWhenFull(t *testing.T) {
	t.Parallel()

	// No Start: nothing drains the queue.
	executor := NewExecutor(1, 1, nil)

	if !executor.Enqueue(func(ctx context.Context) {}) {
		t.Fatal("first task should fit the buffer")
	}
	if executor.Enqueue(func(ctx context.Context) {}) {
		t.Fatal("second task should be rejected instead of blocking")
	}
}

func TestExecutorStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(4, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- executor.Start(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not stop after context cancellation")
	}
}

package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool, err := NewWorkerPool(context.Background(), 3, 16)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		if err := pool.Submit(context.Background(), func(context.Context) {
			defer wg.Done()
			ran.Add(1)
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	wg.Wait()
	pool.Close()

	if got := ran.Load(); got != 10 {
		t.Errorf("ran %d jobs, want 10", got)
	}
}

func TestWorkerPoolRunsAcceptedJobsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool, err := NewWorkerPool(ctx, 1, 16)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	var wg sync.WaitGroup
	var sawCancelled atomic.Bool
	for i := 0; i < 4; i++ {
		wg.Add(1)
		if err := pool.Submit(context.Background(), func(jobCtx context.Context) {
			defer wg.Done()
			if jobCtx.Err() != nil {
				sawCancelled.Store(true)
			}
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	cancel()
	wg.Wait() // must not deadlock
	pool.Close()

	if err := pool.Submit(context.Background(), func(context.Context) {}); err == nil {
		t.Error("submit after cancel should be rejected")
	}
	_ = sawCancelled.Load()
}

func TestWorkerPoolRejectsInvalidSizes(t *testing.T) {
	if _, err := NewWorkerPool(context.Background(), 0, 1); err == nil {
		t.Error("zero concurrency accepted")
	}
	if _, err := NewWorkerPool(context.Background(), 1, 0); err == nil {
		t.Error("zero queue size accepted")
	}
}

package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/service"
)

type countingPoller struct {
	calls int32
	err   error
}

func (p *countingPoller) Poll(ctx context.Context, storeID *uint) (*service.PollResult, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	return &service.PollResult{}, nil
}

type countingRetrier struct {
	calls       int32
	maxAttempts int32
	limit       int32
}

func (r *countingRetrier) RetryPending(ctx context.Context, maxAttempts, limit int) (*service.BatchDispatchResult, error) {
	atomic.AddInt32(&r.calls, 1)
	atomic.StoreInt32(&r.maxAttempts, int32(maxAttempts))
	atomic.StoreInt32(&r.limit, int32(limit))
	return &service.BatchDispatchResult{}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("condition not met before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerRunsJobsAndStops(t *testing.T) {
	poller := &countingPoller{err: service.ErrPollInProgress}
	retrier := &countingRetrier{}
	scheduler := NewScheduler(config.FulfillmentConfig{RetryMaxAttempts: 3}, poller, retrier)

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Start(context.Background())
	}()

	waitFor(t, func() bool {
		return atomic.LoadInt32(&poller.calls) > 0 && atomic.LoadInt32(&retrier.calls) > 0
	})
	if got := atomic.LoadInt32(&retrier.maxAttempts); got != 3 {
		t.Fatalf("max attempts want 3 got %d", got)
	}
	if got := atomic.LoadInt32(&retrier.limit); got != config.DefaultRetryBatchSize {
		t.Fatalf("limit want %d got %d", config.DefaultRetryBatchSize, got)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not exit")
	}
}

func TestSchedulerRequiresJobs(t *testing.T) {
	if err := NewScheduler(config.FulfillmentConfig{}, nil, nil).Start(context.Background()); err == nil {
		t.Fatalf("expected error for empty scheduler")
	}
}

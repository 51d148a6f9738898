package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0)
	done := make(chan struct{}, 3)

	q := NewQueue[string]("test", func(ctx context.Context, job Job[string]) error {
		mu.Lock()
		seen = append(seen, job.Payload)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, p := range []string{"a", "b", "c"} {
		id, err := q.Enqueue("noop", p)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	attempts := make(chan int, 3)
	q := NewQueue[int]("retry", func(ctx context.Context, job Job[int]) error {
		attempts <- job.Attempt
		if job.Attempt < 2 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue("flaky", 1)
	require.NoError(t, err)

	got := make([]int, 0, 3)
	for len(got) < 3 {
		select {
		case a := <-attempts:
			got = append(got, a)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, attempts so far: %v", got)
		}
	}
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestQueueRejectsWhenNotStarted(t *testing.T) {
	q := NewQueue[int]("idle", func(context.Context, Job[int]) error { return nil }, QueueConfig{})
	_, err := q.Enqueue("noop", 1)
	require.Error(t, err)
}

func TestQueueStopFinishesBufferedJobs(t *testing.T) {
	gate := make(chan struct{})
	var handled atomic.Int64
	q := NewQueue[int]("drain", func(ctx context.Context, job Job[int]) error {
		<-gate
		require.NoError(t, ctx.Err())
		handled.Add(1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue("slow", i)
		require.NoError(t, err)
	}

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		_, err := q.Enqueue("late", 99)
		return err != nil
	}, time.Second, 5*time.Millisecond)
	close(gate)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}
	assert.Equal(t, int64(5), handled.Load())
	stats := q.Stats()
	assert.Equal(t, int64(5), stats.Processed)
	assert.Zero(t, stats.Pending)
}

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

func TestQueueProcessesAndDrainsOnStop(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0)
	q := NewQueue("activity", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Type)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})

	q.Start(context.Background())
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{Type: "score_change"}))
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 5)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	q := NewQueue("activity", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.TryEnqueue(Job{Type: "score_change"}))
	q.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRejectsBeforeStartAndAfterStop(t *testing.T) {
	q := NewQueue("activity", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.TryEnqueue(Job{}))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(context.Background(), Job{}))
}

func TestTryEnqueueReportsFullBuffer(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("activity", func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.TryEnqueue(Job{}))
	// the worker may or may not have picked up the first job yet
	var full bool
	for i := 0; i < 3; i++ {
		if err := q.TryEnqueue(Job{}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)

	close(release)
	q.Stop()
}

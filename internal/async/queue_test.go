package async_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poextract/poextract/internal/async"
)

func TestQueueProcessesAllJobs(t *testing.T) {
	var mu sync.Mutex
	processed := make(map[string]bool)

	q := async.NewDocumentQueue(func(_ context.Context, job async.Job) error {
		mu.Lock()
		processed[job.Path] = true
		mu.Unlock()
		return nil
	}, nil, async.WithWorkers(3))

	for i := 0; i < 20; i++ {
		err := q.Enqueue(context.Background(), async.Job{Path: fmt.Sprintf("doc-%d.txt", i)})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Len(t, processed, 20)
}

func TestQueueContinuesAfterJobFailure(t *testing.T) {
	var mu sync.Mutex
	var succeeded int

	q := async.NewDocumentQueue(func(_ context.Context, job async.Job) error {
		if job.Path == "bad.txt" {
			return fmt.Errorf("unreadable")
		}
		mu.Lock()
		succeeded++
		mu.Unlock()
		return nil
	}, nil, async.WithWorkers(1))

	for _, p := range []string{"a.txt", "bad.txt", "b.txt"} {
		require.NoError(t, q.Enqueue(context.Background(), async.Job{Path: p}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Equal(t, 2, succeeded)
}

func TestQueueJobTimeoutPropagates(t *testing.T) {
	done := make(chan struct{})

	q := async.NewDocumentQueue(func(ctx context.Context, _ async.Job) error {
		defer close(done)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}, nil, async.WithWorkers(1), async.WithProcessTimeout(10*time.Millisecond))

	require.NoError(t, q.Enqueue(context.Background(), async.Job{Path: "slow.txt"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not observe its timeout")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)
}

func TestQueueEnqueueAfterShutdownIsNoOp(t *testing.T) {
	q := async.NewDocumentQueue(func(_ context.Context, _ async.Job) error { return nil }, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.NoError(t, q.Enqueue(context.Background(), async.Job{Path: "late.txt"}))
}

package coro

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadPoolSchedulesAndRuns(t *testing.T) {
	pool := NewThreadPool(4)
	defer pool.Shutdown(context.Background())

	var n atomic.Int64
	var wg sync.WaitGroup
	const total = 200
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func() {
			defer wg.Done()
			require.NoError(t, pool.Schedule(context.Background()))
			n.Add(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(total), n.Load())
}

func TestThreadPoolFIFOPerWorker(t *testing.T) {
	// A single worker drains the queue in the order items were enqueued.
	pool := NewThreadPool(1)
	defer pool.Shutdown(context.Background())

	const n = 1000
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		pool.Resume(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	require.Len(t, order, n)
	for i, v := range order {
		assert.Equalf(t, i, v, "position %d", i)
	}
}

func TestThreadPoolGracefulShutdownDrainsQueue(t *testing.T) {
	pool := NewThreadPool(2)

	var n atomic.Int64
	const total = 50
	var wg sync.WaitGroup
	wg.Add(total)
	for i := 0; i < total; i++ {
		pool.Resume(func() {
			n.Add(1)
			wg.Done()
		})
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	wg.Wait()
	assert.Equal(t, int64(total), n.Load())
}

func TestThreadPoolScheduleFailsAfterShutdown(t *testing.T) {
	pool := NewThreadPool(2)
	require.NoError(t, pool.Shutdown(context.Background()))

	err := pool.Schedule(context.Background())
	assert.ErrorIs(t, err, ErrPoolShutdown)
}

func TestThreadPoolShutdownIsIdempotent(t *testing.T) {
	pool := NewThreadPool(2)
	require.NoError(t, pool.Shutdown(context.Background()))
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestThreadPoolWorkerStartStopHooksReceiveRealIndex(t *testing.T) {
	const n = 4
	seenStart := make([]int32, n)
	seenStop := make([]int32, n)

	pool := NewThreadPool(n,
		WithOnWorkerStart(func(i int) { atomic.AddInt32(&seenStart[i], 1) }),
		WithOnWorkerStop(func(i int) { atomic.AddInt32(&seenStop[i], 1) }),
	)
	require.NoError(t, pool.Shutdown(context.Background()))

	for i := 0; i < n; i++ {
		assert.Equalf(t, int32(1), seenStart[i], "worker %d start hook", i)
		assert.Equalf(t, int32(1), seenStop[i], "worker %d stop hook", i)
	}
}

func TestThreadPoolYield(t *testing.T) {
	pool := NewThreadPool(1)
	defer pool.Shutdown(context.Background())
	require.NoError(t, pool.Yield(context.Background()))
}

func TestThreadPoolGo(t *testing.T) {
	pool := NewThreadPool(2)
	defer pool.Shutdown(context.Background())

	var ran atomic.Bool
	task := pool.Go(context.Background(), func(context.Context) {
		ran.Store(true)
	})
	_, err := task.Await(context.Background())
	require.NoError(t, err)
	assert.True(t, ran.Load())
}

func TestThreadPoolSizeTracksInFlight(t *testing.T) {
	pool := NewThreadPool(1)
	defer pool.Shutdown(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	pool.Resume(func() {
		close(started)
		<-release
	})
	<-started

	// One running + any additional queued.
	assert.GreaterOrEqual(t, pool.Size(), 1)
	close(release)

	require.Eventually(t, func() bool {
		return pool.Size() == 0
	}, time.Second, time.Millisecond)
}

func TestThreadPoolMetricsOptIn(t *testing.T) {
	pool := NewThreadPool(2, WithPoolMetrics(true))
	defer pool.Shutdown(context.Background())
	require.NotNil(t, pool.Metrics())

	plain := NewThreadPool(2)
	defer plain.Shutdown(context.Background())
	assert.Nil(t, plain.Metrics())
}

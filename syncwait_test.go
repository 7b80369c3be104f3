package coro

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncWaitReturnsValue(t *testing.T) {
	task := NewTask(func(context.Context) (int, error) { return 99, nil })
	v, err := SyncWait(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

func TestSyncWaitReraisesFailure(t *testing.T) {
	wantErr := errors.New("sync wait failure")
	task := NewTask(func(context.Context) (int, error) { return 0, wantErr })
	_, err := SyncWait(context.Background(), task)
	assert.ErrorIs(t, err, wantErr)
}

func TestSyncWaitBridgesExternalExecutor(t *testing.T) {
	// The awaitable is driven by a ThreadPool worker, not SyncWait's own
	// driver goroutine — this is the "bridge from a blocking thread"
	// contract: SyncWait must still observe completion.
	pool := NewThreadPool(2)
	defer pool.Shutdown(context.Background())

	task := pool.Go(context.Background(), func(context.Context) {
		time.Sleep(5 * time.Millisecond)
	})
	_, err := SyncWait(context.Background(), task)
	require.NoError(t, err)
}

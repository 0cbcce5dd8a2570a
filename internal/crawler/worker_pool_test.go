package crawler

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsEveryJob(t *testing.T) {
	pool, err := NewWorkerPool(context.Background(), 3, 16)
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(func(context.Context) { ran.Add(1) }))
	}
	pool.Close()
	assert.Equal(t, int32(10), ran.Load())
}

func TestWorkerPoolDrainsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool, err := NewWorkerPool(ctx, 1, 8)
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	var cancelled atomic.Int32
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) {
			if ctx.Err() != nil {
				cancelled.Add(1)
			}
		}))
	}
	cancel()
	close(release)
	pool.Close()
	assert.Equal(t, int32(3), cancelled.Load())
}

func TestWorkerPoolGrowsPastQueueHint(t *testing.T) {
	pool, err := NewWorkerPool(context.Background(), 1, 1)
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(func(context.Context) { ran.Add(1) }))
	}
	assert.Equal(t, 20, pool.Pending())

	close(release)
	pool.Close()
	assert.Equal(t, int32(20), ran.Load())
	assert.ErrorIs(t, pool.Submit(func(context.Context) {}), ErrPoolClosed)
	pool.Close()
}

func TestWorkerPoolRejectsInvalidSizes(t *testing.T) {
	_, err := NewWorkerPool(context.Background(), 0, 1)
	require.Error(t, err)
	_, err = NewWorkerPool(context.Background(), 1, 0)
	require.Error(t, err)
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsResult(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()

	task, err := pool.Submit(context.Background(), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, task.Wait(context.Background()))

	boom := errors.New("boom")
	task, err = pool.Submit(context.Background(), func(ctx context.Context) error {
		return boom
	})
	require.NoError(t, err)
	assert.ErrorIs(t, task.Wait(context.Background()), boom)
}

func TestSubmitRunsOffCallerGoroutine(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()

	release := make(chan struct{})
	task, err := pool.Submit(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	select {
	case <-task.Done():
		t.Fatal("task finished before it was released")
	default:
	}
	close(release)
	assert.NoError(t, task.Wait(context.Background()))
}

func TestTaskPanicBecomesError(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()

	task, err := pool.Submit(context.Background(), func(ctx context.Context) error {
		panic("kaboom")
	})
	require.NoError(t, err)
	err = task.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestTaskTimeout(t *testing.T) {
	pool := NewPool(20 * time.Millisecond)
	defer pool.Close()

	task, err := pool.Submit(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	assert.ErrorIs(t, task.Wait(context.Background()), ErrTaskTimeout)
}

func TestWaitCancelsTaskWhenCallerGivesUp(t *testing.T) {
	pool := NewPool(0)

	var cancelled atomic.Bool
	task, err := pool.Submit(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, task.Wait(ctx), context.DeadlineExceeded)

	pool.Close()
	assert.True(t, cancelled.Load())
}

func TestCloseWaitsAndRejects(t *testing.T) {
	pool := NewPool(0)

	var finished atomic.Bool
	_, err := pool.Submit(context.Background(), func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	require.NoError(t, err)

	pool.Close()
	assert.True(t, finished.Load())

	_, err = pool.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

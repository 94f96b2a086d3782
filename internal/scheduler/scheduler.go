package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrPoolClosed  = errors.New("worker pool is closed")
	ErrTaskTimeout = errors.New("task timed out")
)

// Pool runs blocking work off the caller's goroutine and hands back a Task
// to wait on. It does not queue or cap work; every submission gets its own
// worker goroutine.
type Pool struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	closed  bool
	timeout time.Duration
}

// NewPool returns a pool whose tasks are cancelled after timeout. Zero
// disables the limit.
func NewPool(timeout time.Duration) *Pool {
	return &Pool{timeout: timeout}
}

type Task struct {
	ID     string
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Submit starts fn on a worker. The context passed to fn is derived from
// ctx and carries the pool timeout.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) error) (*Task, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	var taskCtx context.Context
	var cancel context.CancelFunc
	if p.timeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, p.timeout)
	} else {
		taskCtx, cancel = context.WithCancel(ctx)
	}
	task := &Task{
		ID:     "task-" + uuid.NewString(),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	log.Debug().Str("op", "scheduler/submit").Str("task", task.ID).Msg("task started")

	go func() {
		defer p.wg.Done()
		defer close(task.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("op", "scheduler/worker").Str("task", task.ID).Msgf("task panicked: %v", r)
				task.err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		err := fn(taskCtx)
		if err != nil && errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %v", ErrTaskTimeout, p.timeout, err)
		}
		task.err = err
		log.Debug().Str("op", "scheduler/worker").Str("task", task.ID).Err(err).Msg("task finished")
	}()
	return task, nil
}

// Wait blocks until the task finishes or ctx is done. In the latter case
// the task is cancelled and ctx.Err() is returned.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		t.cancel()
		return ctx.Err()
	}
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Close rejects new submissions and waits for running tasks.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

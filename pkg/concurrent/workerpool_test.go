// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterTask(name string, counter *int64, delta int64) Task {
	return NewTask(name, func(context.Context) error {
		atomic.AddInt64(counter, delta)
		time.Sleep(5 * time.Millisecond)
		return nil
	})
}

func TestWorkerPool_Run(t *testing.T) {
	pool := NewWorkerPool(2)

	var counter int64
	err := pool.Run(context.Background(),
		counterTask("one", &counter, 1),
		counterTask("two", &counter, 2),
		counterTask("three", &counter, 3),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(6), atomic.LoadInt64(&counter))
}

func TestWorkerPool_Run_WithError(t *testing.T) {
	pool := NewWorkerPool(2)
	expected := errors.New("job failed")

	err := pool.Run(context.Background(),
		NewTask("ok", func(context.Context) error { return nil }),
		NewTask("publish", func(context.Context) error { return expected }),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, expected)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "publish", taskErr.Task)
}

func TestWorkerPool_Run_CancelsRemainingTasks(t *testing.T) {
	pool := NewWorkerPool(1)
	var ranAfterFailure atomic.Bool

	err := pool.Run(context.Background(),
		NewTask("fail", func(context.Context) error { return errors.New("boom") }),
		NewTask("late", func(ctx context.Context) error {
			ranAfterFailure.Store(true)
			return nil
		}),
	)
	require.Error(t, err)
	assert.False(t, ranAfterFailure.Load())
}

func TestWorkerPool_RunAll_ExecutesAllTasks(t *testing.T) {
	pool := NewWorkerPool(3)
	var counter int64

	errs := pool.RunAll(context.Background(),
		counterTask("one", &counter, 1),
		NewTask("bad-a", func(context.Context) error { return errors.New("a") }),
		counterTask("two", &counter, 2),
		NewTask("bad-b", func(context.Context) error { return errors.New("b") }),
	)

	assert.Equal(t, int64(3), atomic.LoadInt64(&counter))
	require.Len(t, errs, 2)
	assert.EqualError(t, errs[0], "bad-a: a")
	assert.EqualError(t, errs[1], "bad-b: b")
}

func TestWorkerPool_RunAll_WithCancelledContext(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var counter int64
	errs := pool.RunAll(ctx, counterTask("one", &counter, 1), counterTask("two", &counter, 1))

	assert.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Zero(t, atomic.LoadInt64(&counter))
}

func TestWorkerPool_EmptyTasks(t *testing.T) {
	pool := NewWorkerPool(2)
	assert.NoError(t, pool.Run(context.Background()))
	assert.Nil(t, pool.RunAll(context.Background()))
}

func TestNewWorkerPool_InvalidWorkerCount(t *testing.T) {
	assert.Equal(t, 1, NewWorkerPool(0).workerCount)
	assert.Equal(t, 1, NewWorkerPool(-5).workerCount)
	assert.Equal(t, 4, NewWorkerPool(4).workerCount)
}

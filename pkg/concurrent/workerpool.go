// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task is a named unit of work run by a WorkerPool.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// NewTask is a convenience constructor for Task.
func NewTask(name string, fn func(ctx context.Context) error) Task {
	return Task{Name: name, Fn: fn}
}

// TaskError reports which task failed.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// WorkerPool runs tasks concurrently with a bounded number of goroutines.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// Run executes all tasks and returns the first error encountered.
// The context passed to the remaining tasks is cancelled on the first error.
func (wp *WorkerPool) Run(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(wp.workerCount)

	for _, task := range tasks {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return &TaskError{Task: task.Name, Err: err}
			}
			if err := task.Fn(groupCtx); err != nil {
				return &TaskError{Task: task.Name, Err: err}
			}
			return nil
		})
	}

	return g.Wait()
}

// RunAll executes every task regardless of failures and returns the errors
// of the failed ones in task order.
func (wp *WorkerPool) RunAll(ctx context.Context, tasks ...Task) []error {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]error, len(tasks))
	g := new(errgroup.Group)
	g.SetLimit(wp.workerCount)

	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = &TaskError{Task: task.Name, Err: err}
				return nil
			}
			if err := task.Fn(ctx); err != nil {
				results[i] = &TaskError{Task: task.Name, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Package settle runs independent tasks and waits for every one of them to
// finish, successfully or not. Unlike a plain errgroup, a failing task never
// cancels its siblings and the caller gets every outcome back.
package settle

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work run by All.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the outcome of one task.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// All runs tasks with at most limit of them in flight (limit <= 0 means no
// limit) and returns their results in task order once all of them settled.
// A panicking task settles with an error.
func All[T any](ctx context.Context, limit int, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = run(ctx, task)
			// never report to the group: siblings must keep running
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Values returns the values of the successful results, in task order.
func Values[T any](results []Result[T]) []T {
	values := make([]T, 0, len(results))
	for _, r := range results {
		if r.Ok() {
			values = append(values, r.Value)
		}
	}
	return values
}

// Errors returns the errors of the failed results, in task order.
func Errors[T any](results []Result[T]) []error {
	var errs []error
	for _, r := range results {
		if !r.Ok() {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

func run[T any](ctx context.Context, task Task[T]) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = Result[T]{Err: fmt.Errorf("task panicked: %v", p)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result[T]{Err: err}
	}

	v, err := task(ctx)
	return Result[T]{Value: v, Err: err}
}

// Package pool runs a batch of tasks with a fixed cap on how many are in
// flight and waits for every one of them to settle.
package pool

import (
    "context"
    "fmt"
    "sync"

    "golang.org/x/sync/semaphore"
)

// Result is the settled outcome of one task: either Value or Err.
type Result[T any] struct {
    Value T
    Err   error
}

func (r Result[T]) OK() bool { return r.Err == nil }

// SettleAll calls fn once per input with at most limit calls running at a
// time. Tasks are admitted in input order. It returns after every task has
// settled; results[i] belongs to inputs[i]. A failing task never cancels the
// others.
//
// If ctx is done, inputs that have not been admitted yet settle with
// ctx.Err() without calling fn; tasks already running are waited for.
func SettleAll[In, Out any](ctx context.Context, limit int, inputs []In, fn func(context.Context, In) (Out, error)) []Result[Out] {
    if limit <= 0 { limit = 1 }
    results := make([]Result[Out], len(inputs))
    sem := semaphore.NewWeighted(int64(limit))
    var wg sync.WaitGroup
    for i, in := range inputs {
        if err := sem.Acquire(ctx, 1); err != nil {
            for j := i; j < len(inputs); j++ { results[j].Err = err }
            break
        }
        wg.Add(1)
        go func(i int, in In) {
            defer wg.Done()
            defer sem.Release(1)
            defer func() {
                if p := recover(); p != nil { results[i].Err = &PanicError{Value: p} }
            }()
            v, err := fn(ctx, in)
            results[i] = Result[Out]{Value: v, Err: err}
        }(i, in)
    }
    wg.Wait()
    return results
}

// PanicError carries a panic recovered from a task.
type PanicError struct {
    Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("pool: task panicked: %v", e.Value) }

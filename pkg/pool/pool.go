// Package pool implements the worker pool (C2): a fixed-size pool of
// goroutines executing continuation-style tasks, with explicit
// create-continuation joins and cooperative cancellation via context.
//
// The source (original_source/src/libcvpg) models this as a boost::asynchronous
// servant-and-continuation scheduler; spec §9's design notes direct replacing
// that with tasks plus bounded channels, which is what this package does:
// one buffered channel of pending work, N worker goroutines draining it, and
// plain Go channels standing in for continuation futures.
package pool

import (
	"context"
	"runtime"
	"sync"

	"github.com/cvpg/imageproc/pkg/pperr"
)

// Result is the outcome of one task: a value or a propagated error.
type Result[T any] struct {
	Value T
	Err   error
}

// Future is a single-assignment handle to a task's eventual Result.
type Future[T any] struct {
	done chan struct{}
	res  Result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(res Result[T]) {
	f.res = res
	close(f.done)
}

// Wait blocks until the task completes, or ctx is done first.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Err
	case <-ctx.Done():
		var zero T
		return zero, pperr.New(pperr.Cancelled, "future wait cancelled: %v", ctx.Err())
	}
}

// Task is a unit of work the pool runs on a worker goroutine. It receives
// ctx so it can poll for cooperative cancellation at its entry and at tile
// boundaries, as spec §4.1/§5 require.
type Task[T any] func(ctx context.Context) (T, error)

// Pool is a fixed-size goroutine pool accepting root tasks.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup
}

// New creates a pool with size workers. size <= 0 means hardware
// concurrency, matching the CLI's `--threads N=0` default in spec §6.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}

	p := &Pool{jobs: make(chan func(), 1024)}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}

	return p
}

// Close stops accepting new work and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// Submit enqueues a root task and returns a Future for its result. If ctx
// is already cancelled, the task is never run and the future resolves to
// a Cancelled error, per spec §4.1's "cancelled task ... does not execute
// its body."
func Submit[T any](p *Pool, ctx context.Context, task Task[T]) *Future[T] {
	fut := newFuture[T]()

	p.jobs <- func() {
		if err := ctx.Err(); err != nil {
			fut.complete(Result[T]{Err: pperr.New(pperr.Cancelled, "task cancelled before start")})
			return
		}

		v, err := task(ctx)
		fut.complete(Result[T]{Value: v, Err: err})
	}

	return fut
}

// CreateContinuation registers onAllDone to run once every child future has
// resolved, receiving their results as a slice in the same order as
// children. It fires exactly once, after the last child completes; sibling
// completion order is otherwise unconstrained, matching spec §4.1.
func CreateContinuation[T any](ctx context.Context, children []*Future[T], onAllDone func([]Result[T])) {
	results := make([]Result[T], len(children))
	for i, c := range children {
		v, err := c.Wait(ctx)
		results[i] = Result[T]{Value: v, Err: err}
	}
	onAllDone(results)
}

// FirstError returns the first non-nil error among results, in index order.
func FirstError[T any](results []Result[T]) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

package future

import (
	"context"
	stderrors "errors"
	"runtime"
	"time"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
)

// State is the lifecycle position of a future.
type State uint8

const (
	NotStarted State = iota
	InProgress
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case InProgress:
		return "in progress"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Ops is the native function triple behind a future.
//
// Start issues the operation and returns its completion handle. Poll checks
// the handle without blocking and reports whether the result is ready.
// Destroy releases the handle.
type Ops[C, R any] struct {
	Start   func(config C) native.Ptr
	Poll    func(p native.Ptr) (R, bool)
	Destroy func(p native.Ptr)
	Name    string
}

// Future is a native asynchronous operation that has not been consumed yet.
// It is not safe for concurrent use. A future dropped while in progress
// has its completion handle destroyed once it becomes unreachable.
type Future[C, R any] struct {
	config  C
	ops     Ops[C, R]
	cleanup runtime.Cleanup
	handle  native.Ptr
	state   State
}

// New captures config without issuing the operation.
func New[C, R any](config C, ops Ops[C, R]) *Future[C, R] {
	return &Future[C, R]{config: config, ops: ops}
}

// State returns the current state.
func (f *Future[C, R]) State() State {
	return f.state
}

// Poll advances the future. The first call starts the native operation and
// reports pending. Later calls poll the completion handle; when it is ready
// the handle is destroyed and the result is returned.
func (f *Future[C, R]) Poll() (R, bool) {
	defer runtime.KeepAlive(f)
	var zero R
	switch f.state {
	case NotStarted:
		h := f.ops.Start(f.config)
		if h.IsNull() {
			panic(errors.Fatal(errors.PhaseFuture, "native start of %s returned null", f.name()))
		}
		f.handle = h
		f.state = InProgress
		destroy := f.ops.Destroy
		f.cleanup = runtime.AddCleanup(f, func(h native.Ptr) { destroy(h) }, h)
		return zero, false
	case InProgress:
		r, ok := f.ops.Poll(f.handle)
		if !ok {
			return zero, false
		}
		h := f.handle
		f.handle = 0
		f.state = Done
		f.cleanup.Stop()
		f.ops.Destroy(h)
		return r, true
	default:
		panic(errors.Fatal(errors.PhaseFuture, "%s polled after completion", f.name()))
	}
}

// Close abandons the future, destroying the completion handle if the
// operation is in flight. Closing a finished future does nothing.
func (f *Future[C, R]) Close() error {
	if f.state == InProgress {
		h := f.handle
		f.handle = 0
		f.cleanup.Stop()
		f.ops.Destroy(h)
	}
	f.state = Done
	return nil
}

func (f *Future[C, R]) name() string {
	if f.ops.Name != "" {
		return f.ops.Name
	}
	return "future"
}

// Await polls f every interval until it completes or ctx ends. When ctx ends
// first the future is closed and a canceled or timeout error is returned.
func Await[C, R any](ctx context.Context, f *Future[C, R], interval time.Duration) (R, error) {
	if r, ok := f.Poll(); ok {
		return r, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.Close()
			var zero R
			kind := errors.KindCanceled
			if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
				kind = errors.KindTimeout
			}
			return zero, errors.New(errors.PhaseFuture, kind).
				Detail("%s abandoned", f.name()).
				Cause(ctx.Err()).
				Build()
		case <-ticker.C:
			if r, ok := f.Poll(); ok {
				return r, nil
			}
		}
	}
}

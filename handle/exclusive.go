package handle

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/worker-sdk/native"
)

// Exclusive guards a raw native pointer so that only one caller holds it at
// a time.
type Exclusive struct {
	ptr atomic.Uintptr
	mu  sync.Mutex
}

// NewExclusive wraps p.
func NewExclusive(p native.Ptr) *Exclusive {
	e := &Exclusive{}
	e.ptr.Store(uintptr(p))
	return e
}

// IsNull reports whether the wrapped pointer is null. It never blocks and
// never dereferences the pointer.
func (e *Exclusive) IsNull() bool {
	return e.ptr.Load() == 0
}

// Acquire locks the wrapper and returns the pointer together with the
// function that unlocks it. Other callers block until release is called.
func (e *Exclusive) Acquire() (native.Ptr, func()) {
	e.mu.Lock()
	var once sync.Once
	return native.Ptr(e.ptr.Load()), func() { once.Do(e.mu.Unlock) }
}

// With calls fn with the pointer while holding the wrapper.
func (e *Exclusive) With(fn func(native.Ptr)) {
	p, release := e.Acquire()
	defer release()
	fn(p)
}

// Take detaches the pointer, leaving the wrapper null. It waits for the
// current holder to release.
func (e *Exclusive) Take() native.Ptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return native.Ptr(e.ptr.Swap(0))
}

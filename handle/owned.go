package handle

import (
	"runtime"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
)

// Owned is the single owner of one native object.
type Owned struct {
	kind    Kind
	ex      *Exclusive
	cleanup runtime.Cleanup
}

type orphan struct {
	kind Kind
	ptr  native.Ptr
}

// New creates a native object of kind k. A null result means the native
// allocator broke its contract and panics with a fatal error.
func New(k Kind) *Owned {
	p := k.Create()
	if p.IsNull() {
		panic(errors.Fatal(errors.PhaseNative, "native create of %s returned null", k.Name()))
	}
	return adopt(k, p)
}

// FromRaw takes ownership of p, which must be a live object of kind k.
func FromRaw(k Kind, p native.Ptr) *Owned {
	if p.IsNull() {
		panic(errors.Fatal(errors.PhaseNative, "cannot take ownership of null %s", k.Name()))
	}
	return adopt(k, p)
}

func adopt(k Kind, p native.Ptr) *Owned {
	o := &Owned{kind: k, ex: NewExclusive(p)}
	o.cleanup = runtime.AddCleanup(o, destroyOrphan, orphan{kind: k, ptr: p})
	return o
}

func destroyOrphan(o orphan) {
	o.kind.Destroy(o.ptr)
}

// Kind returns the object kind.
func (o *Owned) Kind() Kind {
	return o.kind
}

// Released reports whether the owner was closed or gave up its pointer.
func (o *Owned) Released() bool {
	return o.ex.IsNull()
}

// Acquire grants exclusive access to the pointer until release is called.
// It panics if the owner was released.
func (o *Owned) Acquire() (native.Ptr, func()) {
	p, release := o.ex.Acquire()
	if p.IsNull() {
		release()
		panic(errors.Fatal(errors.PhaseNative, "use of released %s", o.kind.Name()))
	}
	return p, release
}

// With calls fn with exclusive access to the pointer.
func (o *Owned) With(fn func(native.Ptr)) {
	p, release := o.Acquire()
	defer release()
	fn(p)
}

// Copy returns a new owner of a duplicate made by the kind's copy function.
func (o *Owned) Copy() *Owned {
	var c native.Ptr
	o.With(func(p native.Ptr) {
		c = o.kind.Copy(p)
	})
	if c.IsNull() {
		panic(errors.Fatal(errors.PhaseNative, "native copy of %s returned null", o.kind.Name()))
	}
	return adopt(o.kind, c)
}

// IntoRaw gives up ownership and returns the pointer. The object is not
// destroyed; the caller or native code is now responsible for it.
func (o *Owned) IntoRaw() native.Ptr {
	p := o.ex.Take()
	if p.IsNull() {
		panic(errors.Fatal(errors.PhaseNative, "into raw of released %s", o.kind.Name()))
	}
	o.cleanup.Stop()
	return p
}

// Close destroys the object. Later calls do nothing.
func (o *Owned) Close() error {
	p := o.ex.Take()
	if p.IsNull() {
		return nil
	}
	o.cleanup.Stop()
	o.kind.Destroy(p)
	return nil
}

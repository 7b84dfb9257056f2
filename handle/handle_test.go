package handle

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
)

// countingKind hands out increasing pointers and counts destroys per pointer.
type countingKind struct {
	destroyed map[native.Ptr]int
	next      atomic.Uintptr
	creates   atomic.Int32
	copies    atomic.Int32
	mu        sync.Mutex
	failNext  bool
}

func newCountingKind() *countingKind {
	return &countingKind{destroyed: make(map[native.Ptr]int)}
}

func (k *countingKind) Name() string { return "counting" }

func (k *countingKind) Create() native.Ptr {
	k.creates.Add(1)
	if k.failNext {
		return 0
	}
	return native.Ptr(k.next.Add(1))
}

func (k *countingKind) Destroy(p native.Ptr) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.destroyed[p]++
}

func (k *countingKind) Copy(native.Ptr) native.Ptr {
	k.copies.Add(1)
	return native.Ptr(k.next.Add(1))
}

func (k *countingKind) destroys(p native.Ptr) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.destroyed[p]
}

func (k *countingKind) totalDestroys() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := 0
	for _, c := range k.destroyed {
		n += c
	}
	return n
}

func rawOf(o *Owned) native.Ptr {
	var raw native.Ptr
	o.With(func(p native.Ptr) { raw = p })
	return raw
}

func requireFatal(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		e, ok := r.(*errors.Error)
		require.True(t, ok, "panic value %T", r)
		assert.True(t, e.Fatal())
	}()
	fn()
}

func TestExclusive(t *testing.T) {
	assert.True(t, NewExclusive(0).IsNull())

	e := NewExclusive(42)
	assert.False(t, e.IsNull())

	p, release := e.Acquire()
	assert.Equal(t, native.Ptr(42), p)

	acquired := make(chan struct{})
	go func() {
		e.With(func(native.Ptr) {})
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire must wait for release")
	case <-time.After(20 * time.Millisecond):
	}

	assert.False(t, e.IsNull(), "IsNull does not wait for the holder")
	release()
	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("release did not unblock waiter")
	}
}

func TestOwned_CloseDestroysOnce(t *testing.T) {
	k := newCountingKind()
	o := New(k)
	raw := rawOf(o)

	require.NoError(t, o.Close())
	require.NoError(t, o.Close())

	assert.Equal(t, 1, k.destroys(raw))
	assert.True(t, o.Released())
}

func TestOwned_ConcurrentClose(t *testing.T) {
	k := newCountingKind()
	o := New(k)
	raw := rawOf(o)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, k.destroys(raw))
}

func TestOwned_IntoRawDisarms(t *testing.T) {
	k := newCountingKind()
	o := New(k)
	raw := o.IntoRaw()

	require.False(t, raw.IsNull())
	require.NoError(t, o.Close())
	assert.Zero(t, k.totalDestroys())

	requireFatal(t, func() { o.IntoRaw() })
	requireFatal(t, func() { o.With(func(native.Ptr) {}) })

	back := FromRaw(k, raw)
	require.NoError(t, back.Close())
	assert.Equal(t, 1, k.destroys(raw))
}

func TestOwned_Copy(t *testing.T) {
	k := newCountingKind()
	o := New(k)
	c := o.Copy()

	orig, dup := rawOf(o), rawOf(c)
	assert.NotEqual(t, orig, dup)
	assert.Equal(t, int32(1), k.copies.Load())

	o.Close()
	c.Close()
	assert.Equal(t, 1, k.destroys(orig))
	assert.Equal(t, 1, k.destroys(dup))
}

func TestOwned_NullIsFatal(t *testing.T) {
	k := newCountingKind()
	k.failNext = true
	requireFatal(t, func() { New(k) })
	requireFatal(t, func() { FromRaw(k, 0) })
}

func TestOwned_CleanupOnUnreachable(t *testing.T) {
	k := newCountingKind()
	func() {
		New(k)
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return k.totalDestroys() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestOwned_NoCleanupAfterRelease(t *testing.T) {
	k := newCountingKind()
	var raw native.Ptr
	func() {
		o := New(k)
		raw = o.IntoRaw()
	}()

	for range 3 {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	assert.Zero(t, k.destroys(raw))
}

func TestFuncs(t *testing.T) {
	var destroyed []native.Ptr
	k := Funcs{
		KindName:    "funcs",
		CreateFunc:  func() native.Ptr { return 7 },
		DestroyFunc: func(p native.Ptr) { destroyed = append(destroyed, p) },
		CopyFunc:    func(p native.Ptr) native.Ptr { return p + 1 },
	}

	o := New(k)
	c := o.Copy()
	o.Close()
	c.Close()

	assert.Equal(t, "funcs", o.Kind().Name())
	assert.Equal(t, []native.Ptr{7, 8}, destroyed)
}

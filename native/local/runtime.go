package local

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/resource"
)

// Heap tags for every native object class the runtime hands out.
const (
	tagContainer resource.Tag = iota + 1
	tagObject
	tagOutputStream
	tagInputStream
	tagConnectFuture
	tagConnection
	tagOpList
	tagDeploymentFuture
)

// Config holds configuration for a local runtime.
type Config struct {
	// ConnectPolls is the number of non-blocking polls a connection future
	// reports pending before it completes.
	ConnectPolls int

	// Deployments is returned by deployment list queries.
	Deployments []string

	// RejectWorkerTypes makes connection attempts of these worker types fail.
	RejectWorkerTypes []string
}

// Runtime is an in-process implementation of the native worker ABI.
//
// Objects live in a resource.Table; a native.Ptr is the table handle.
// Connections share one simulated deployment, so updates sent by one
// worker become visible to every connection of the runtime.
type Runtime struct {
	heap   *resource.Table
	world  *world
	cfg    Config
	closed atomic.Bool
}

// New creates a runtime with default configuration.
func New() *Runtime {
	return NewWithConfig(nil)
}

// NewWithConfig creates a runtime with custom configuration.
func NewWithConfig(cfg *Config) *Runtime {
	r := &Runtime{
		heap: resource.NewTable(),
	}
	if cfg != nil {
		r.cfg = *cfg
	}
	r.world = newWorld()
	return r
}

// Objects returns the container ABI.
func (r *Runtime) Objects() native.ObjectABI {
	return objectABI{r}
}

// Schema returns the schema object ABI.
func (r *Runtime) Schema() native.SchemaABI {
	return schemaABI{r}
}

// Snapshots returns the snapshot stream ABI.
func (r *Runtime) Snapshots() native.SnapshotABI {
	return snapshotABI{r}
}

// Worker returns the connection and locator ABI.
func (r *Runtime) Worker() native.WorkerABI {
	return workerABI{r}
}

// Subscribe registers an observer for allocations and frees of native
// objects.
func (r *Runtime) Subscribe(o resource.Observer) {
	r.heap.Subscribe(o)
}

// Unsubscribe removes an observer registered with Subscribe.
func (r *Runtime) Unsubscribe(o resource.Observer) {
	r.heap.Unsubscribe(o)
}

// Live returns the number of native objects that have not been freed,
// including schema objects owned by containers.
func (r *Runtime) Live() int {
	return r.heap.Len()
}

// LiveContainers returns the number of schema containers not yet destroyed.
func (r *Runtime) LiveContainers() int {
	return r.heap.CountTag(tagContainer)
}

// Close frees every object still allocated. Containers destroyed after
// Close are ignored.
func (r *Runtime) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	if n := r.heap.Len(); n > 0 {
		Logger().Debug("closing runtime with live objects", zap.Int("live", n))
	}
	r.world.close(r)
	return r.heap.Close()
}

func (r *Runtime) alloc(tag resource.Tag, v any) native.Ptr {
	h := r.heap.Insert(tag, v)
	return native.Ptr(h)
}

func (r *Runtime) free(p native.Ptr, tag resource.Tag, what string) any {
	if _, ok := r.heap.GetTagged(resource.Handle(p), tag); !ok {
		panic(errors.Fatal(errors.PhaseNative, "destroy of invalid %s pointer %#x", what, uintptr(p)))
	}
	v, _ := r.heap.Remove(resource.Handle(p))
	return v
}

func lookup[T any](r *Runtime, p native.Ptr, tag resource.Tag, what string) T {
	v, ok := r.heap.GetTagged(resource.Handle(p), tag)
	if !ok {
		panic(errors.Fatal(errors.PhaseNative, "invalid %s pointer %#x", what, uintptr(p)))
	}
	return v.(T)
}

var _ native.Runtime = (*Runtime)(nil)

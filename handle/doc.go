// Package handle owns opaque objects allocated by the native runtime.
//
// An Exclusive wraps a raw native.Ptr and hands it out to one caller at a
// time. An Owned pairs an Exclusive with the create/destroy/copy triple of
// its Kind and guarantees the destroy function runs exactly once: on Close,
// or from a GC cleanup when an owner becomes unreachable without having been
// closed. IntoRaw returns the pointer to native code and disarms destruction.
//
// A raw pointer copied out of Acquire or With and kept after release is not
// protected by the wrapper. Owned values may move between goroutines but
// must not be used by two goroutines at once: reads of a schema object can
// materialise child objects, which mutates native state.
package handle

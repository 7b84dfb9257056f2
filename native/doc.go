// Package native defines the C-ABI surface of the worker runtime as Go
// interfaces.
//
// The worker runtime owns every object the SDK manipulates: schema
// containers, schema objects, snapshot streams, connections, op lists and
// completion handles. The SDK only ever holds a Ptr and calls back into the
// runtime to read or mutate what it points to.
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ Go values ←→ [schema codec] ←→ Ptr ←→ [Runtime ABI] ←→ native │
//	└──────────────────────────────────────────────────────────────┘
//
// # Contracts
//
//   - ObjectABI.Create never returns null unless the allocator failed.
//   - Every created or copied container is destroyed exactly once.
//   - Schema objects reachable from a container are borrowed; they die with it.
//   - Calls that transfer ownership say so on the method; the caller must
//     not destroy a pointer it has handed over.
//   - Fallible snapshot and messaging calls return an error string, empty on
//     success.
//
// The local sub-package provides a pure-Go runtime implementing this ABI,
// used by the tooling in cmd/ and by tests. Bindings to the shared library
// implement the same interfaces.
package native

// Package errors provides structured error types for the worker SDK.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries context: field path, Go type, component name and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("position", "coords").
//		GoType("string").
//		Component("improbable.Position").
//		Detail("cannot decode coordinates").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownComponent(errors.PhaseRegistry, 1234)
//	err := errors.NativeError(errors.PhaseSnapshot, "write entity", msg)
//
// # Failure classes
//
// Reportable failures (unknown component ids, native error strings, invalid
// parameters) are returned to the caller. Contract violations (a null handle
// from a native allocator, polling a completed future) are built with Fatal
// and raised with panic; Error.Fatal reports which class an error belongs to.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

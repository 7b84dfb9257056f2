// Package workersdk is a Go binding over a native worker runtime that
// exchanges typed entity and component state with a simulation backend.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	workersdk/           Root package with entity id helpers
//	├── native/          The native ABI as Go interfaces
//	│   └── local/       In-process implementation of the native ABI
//	├── resource/        Handle table backing the local native heap
//	├── handle/          Exclusive access and single ownership of native objects
//	├── schema/          Typed field codec over native schema objects
//	├── component/       Component definitions and the vtable registry
//	├── future/          Start/poll/destroy completion adapter
//	├── improbable/      Standard components (Position, EntityAcl, ...)
//	├── entity/          Entities as sets of component data
//	├── snapshot/        Snapshot output and input streams
//	├── worker/          Worker parameters, connections and op lists
//	├── bundle/          JSON schema bundles as dynamic components
//	├── errors/          Structured error types
//	└── cmd/snapshot/    Snapshot generation and inspection tool
//
// # Quick Start
//
// Write a snapshot holding one entity:
//
//	rt := local.New()
//	defer rt.Close()
//
//	e := entity.New(improbable.Registry())
//	defer e.Close()
//	entity.Add(e, rt, improbable.PositionComponent, improbable.Position{})
//	entity.Add(e, rt, improbable.PersistenceComponent, improbable.Persistence{})
//
//	out, err := snapshot.Create(rt, "default.snapshot")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := out.Write(1, e); err != nil {
//	    log.Fatal(err)
//	}
//	if err := out.Close(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Handling
//
// Broken native contracts (a null object from an allocator, destroying an
// object twice, polling a finished future) panic with an *errors.Error whose
// Fatal method reports true. Everything a caller can act on, such as an
// unknown component id or a failed snapshot write, is returned as an
// *errors.Error. Reading an unset schema field is not an error: it yields
// the default value.
//
// # Thread Safety
//
// Registries are safe for concurrent lookups. Owned native objects may move
// between goroutines but must be used by one goroutine at a time.
package workersdk

// Package local implements the native worker ABI in pure Go.
//
// A Runtime keeps every native object in a resource.Table, so pointers
// handed to the SDK are table handles and misuse (destroying twice, using a
// destroyed pointer) is detected and raised as a fatal contract error
// instead of corrupting memory.
//
// # Schema Objects
//
// Schema objects store appended values per field id in append order and
// serialise to the protobuf wire format. Length-delimited values are parsed
// into nested objects the first time they are read as objects.
//
// # Snapshots
//
// Snapshot files start with the "WSNP" magic and a version, followed by
// length-prefixed entity records.
//
// # Simulated Deployment
//
// Connections opened through the worker ABI join a loopback deployment:
//
//	rt := local.New()
//	defer rt.Close()
//
//	if err := rt.LoadSnapshot("default.snapshot"); err != nil {
//	    return err
//	}
//
// A connecting worker receives AddEntity, AddComponent and AuthorityChange
// ops for every entity. Component updates are applied to the stored data
// and echoed to every connection; command requests are delivered back to
// the sender, which is authoritative over everything.
//
// # Thread Safety
//
// The heap and the deployment are safe for concurrent use. A single schema
// object must only be used by one goroutine at a time.
package local

// Package schema provides typed access to native schema objects.
//
// A schema object is an append-only set of field values keyed by small
// positive field ids. Each value is stored with one of four native wire
// types; a Kind maps a Go type onto one of them:
//
//	Bool, Int32, Int64, Uint32, Uint64, Sint32, Sint64, Enum  varint
//	Fixed32, Sfixed32, Float                                  fixed32
//	Fixed64, Sfixed64, Double                                 fixed64
//	String, Bytes, ObjectKind                                 bytes
//
// Reads never fail. A scalar read returns the last appended value, or the
// zero value when the field was never written; a list read returns every
// value in append order, or an empty slice. Kinds are trusted: reading a
// field with a different kind than it was written with returns whatever the
// stored bits decode to, or the default when the wire types differ.
//
// Objects obtained from a container are borrowed views. They stay valid
// while the owning container is alive and must be used by one goroutine at
// a time, since reading a nested object may materialise it.
package schema

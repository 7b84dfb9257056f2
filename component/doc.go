// Package component binds Go component types to their schema encoding.
//
// A Definition describes one component: its id, the Type that encodes its
// data, the UpdateType that encodes partial updates, and the merge function
// applying an update to a value. Definitions are type-erased into Vtables
// and collected into a Registry when the program starts. The registry is
// passed explicitly to whatever needs decode-by-id and cannot change after
// construction, so lookups take no lock.
//
// Component ids 1-99 and 190000-199999 are reserved for the standard
// component set; only definitions marked Standard may use them.
package component

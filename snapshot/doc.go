// Package snapshot writes and reads snapshot files: sequences of entities,
// each keyed by a strictly positive entity id and holding zero or more
// component data objects.
//
// Writing goes through OutputStream. Every native failure comes back as an
// *errors.Error of kind native_error carrying the runtime's message. Reading
// goes through InputStream, which hands out entities the caller owns.
package snapshot

// Package improbable defines the standard components every deployment
// understands: Position, Persistence, Metadata and EntityAcl, plus the
// Coordinates and worker requirement types they are built from.
//
// The standard components use ids from the reserved range and are
// registered with Standard set. Registry returns a registry holding all of
// them; user registries are usually built with Registry().Merged(...).
package improbable

package improbable

import (
	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/schema"
)

// Standard component ids.
const (
	EntityAclID   uint32 = 50
	MetadataID    uint32 = 53
	PositionID    uint32 = 54
	PersistenceID uint32 = 55
)

// Position places an entity in the world.
type Position struct {
	Coords Coordinates
}

// PositionUpdate changes the coordinates of an entity.
type PositionUpdate struct {
	Coords *Coordinates
}

// PositionComponent is the definition of Position.
var PositionComponent = &component.Definition[Position, PositionUpdate]{
	ID:       PositionID,
	Name:     "improbable.Position",
	Standard: true,
	Data: schema.TypeFuncs[Position]{
		EncodeFunc: func(p Position, o schema.Object) {
			schema.Add(o.Field(1), CoordinatesKind, p.Coords)
		},
		DecodeFunc: func(o schema.Object) Position {
			return Position{Coords: schema.Get(o.Field(1), CoordinatesKind)}
		},
	},
	Update: component.UpdateFuncs[PositionUpdate]{
		EncodeFunc: func(u PositionUpdate, upd *schema.ComponentUpdate) {
			schema.AddOption(upd.Fields().Field(1), CoordinatesKind, u.Coords)
		},
		DecodeFunc: func(upd *schema.ComponentUpdate) PositionUpdate {
			return PositionUpdate{Coords: schema.GetOption(upd.Fields().Field(1), CoordinatesKind)}
		},
	},
	Merge: func(p *Position, u PositionUpdate) {
		if u.Coords != nil {
			p.Coords = *u.Coords
		}
	},
}

// Persistence marks an entity to be kept in snapshots.
type Persistence struct{}

// PersistenceUpdate carries no fields.
type PersistenceUpdate struct{}

// PersistenceComponent is the definition of Persistence.
var PersistenceComponent = &component.Definition[Persistence, PersistenceUpdate]{
	ID:       PersistenceID,
	Name:     "improbable.Persistence",
	Standard: true,
	Data: schema.TypeFuncs[Persistence]{
		EncodeFunc: func(Persistence, schema.Object) {},
		DecodeFunc: func(schema.Object) Persistence { return Persistence{} },
	},
	Update: component.UpdateFuncs[PersistenceUpdate]{
		EncodeFunc: func(PersistenceUpdate, *schema.ComponentUpdate) {},
		DecodeFunc: func(*schema.ComponentUpdate) PersistenceUpdate { return PersistenceUpdate{} },
	},
	Merge: func(*Persistence, PersistenceUpdate) {},
}

// Metadata names the type of an entity.
type Metadata struct {
	EntityType string
}

// MetadataUpdate changes the entity type.
type MetadataUpdate struct {
	EntityType *string
}

// MetadataComponent is the definition of Metadata.
var MetadataComponent = &component.Definition[Metadata, MetadataUpdate]{
	ID:       MetadataID,
	Name:     "improbable.Metadata",
	Standard: true,
	Data: schema.TypeFuncs[Metadata]{
		EncodeFunc: func(m Metadata, o schema.Object) {
			schema.Add(o.Field(1), schema.String, m.EntityType)
		},
		DecodeFunc: func(o schema.Object) Metadata {
			return Metadata{EntityType: schema.Get(o.Field(1), schema.String)}
		},
	},
	Update: component.UpdateFuncs[MetadataUpdate]{
		EncodeFunc: func(u MetadataUpdate, upd *schema.ComponentUpdate) {
			schema.AddOption(upd.Fields().Field(1), schema.String, u.EntityType)
		},
		DecodeFunc: func(upd *schema.ComponentUpdate) MetadataUpdate {
			return MetadataUpdate{EntityType: schema.GetOption(upd.Fields().Field(1), schema.String)}
		},
	},
	Merge: func(m *Metadata, u MetadataUpdate) {
		if u.EntityType != nil {
			m.EntityType = *u.EntityType
		}
	},
}

// EntityAcl controls which workers may read an entity and which may write
// each of its components.
type EntityAcl struct {
	ComponentWriteAcl map[uint32]WorkerRequirementSet
	ReadAcl           WorkerRequirementSet
}

// EntityAclUpdate changes the read or write access lists. A non-nil empty
// ComponentWriteAcl clears the map.
type EntityAclUpdate struct {
	ReadAcl           *WorkerRequirementSet
	ComponentWriteAcl *map[uint32]WorkerRequirementSet
}

// EntityAclComponent is the definition of EntityAcl.
var EntityAclComponent = &component.Definition[EntityAcl, EntityAclUpdate]{
	ID:       EntityAclID,
	Name:     "improbable.EntityAcl",
	Standard: true,
	Data: schema.TypeFuncs[EntityAcl]{
		EncodeFunc: func(a EntityAcl, o schema.Object) {
			schema.Add(o.Field(1), WorkerRequirementSetKind, a.ReadAcl)
			schema.AddMap(o.Field(2), schema.Uint32, WorkerRequirementSetKind, a.ComponentWriteAcl)
		},
		DecodeFunc: func(o schema.Object) EntityAcl {
			return EntityAcl{
				ReadAcl:           schema.Get(o.Field(1), WorkerRequirementSetKind),
				ComponentWriteAcl: schema.GetMap(o.Field(2), schema.Uint32, WorkerRequirementSetKind),
			}
		},
	},
	Update: component.UpdateFuncs[EntityAclUpdate]{
		EncodeFunc: func(u EntityAclUpdate, upd *schema.ComponentUpdate) {
			o := upd.Fields()
			schema.AddOption(o.Field(1), WorkerRequirementSetKind, u.ReadAcl)
			if u.ComponentWriteAcl != nil {
				if len(*u.ComponentWriteAcl) == 0 {
					upd.AddClearedField(2)
				}
				schema.AddMap(o.Field(2), schema.Uint32, WorkerRequirementSetKind, *u.ComponentWriteAcl)
			}
		},
		DecodeFunc: func(upd *schema.ComponentUpdate) EntityAclUpdate {
			o := upd.Fields()
			u := EntityAclUpdate{ReadAcl: schema.GetOption(o.Field(1), WorkerRequirementSetKind)}
			if schema.Has(o.Field(2), WorkerRequirementSetKind) || upd.IsCleared(2) {
				m := schema.GetMap(o.Field(2), schema.Uint32, WorkerRequirementSetKind)
				u.ComponentWriteAcl = &m
			}
			return u
		},
	},
	Merge: func(a *EntityAcl, u EntityAclUpdate) {
		if u.ReadAcl != nil {
			a.ReadAcl = *u.ReadAcl
		}
		if u.ComponentWriteAcl != nil {
			a.ComponentWriteAcl = *u.ComponentWriteAcl
		}
	},
}

// Vtables returns the vtables of the standard components.
func Vtables() []component.Vtable {
	return []component.Vtable{
		EntityAclComponent.Vtable(),
		MetadataComponent.Vtable(),
		PositionComponent.Vtable(),
		PersistenceComponent.Vtable(),
	}
}

// Registry returns a registry of the standard components.
func Registry() *component.Registry {
	return component.MustRegistry(Vtables()...)
}

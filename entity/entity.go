// Package entity holds the component data of one entity.
package entity

import (
	"slices"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/schema"
)

// Entity is a set of component data keyed by component id. It owns the
// data and destroys it on Close.
type Entity struct {
	reg        *component.Registry
	components map[uint32]*schema.ComponentData
}

// New creates an empty entity. reg is used to decode components by id and
// may be nil when only typed access is needed.
func New(reg *component.Registry) *Entity {
	return &Entity{
		reg:        reg,
		components: make(map[uint32]*schema.ComponentData),
	}
}

// Add encodes v with vt and stores it.
func (e *Entity) Add(rt native.Runtime, vt component.Vtable, v any) error {
	if e.Has(vt.ID()) {
		return duplicate(vt.ID(), vt.Name())
	}
	data := schema.NewComponentData(rt, vt.ID())
	if err := vt.EncodeData(v, data.Fields()); err != nil {
		data.Close()
		return err
	}
	e.components[vt.ID()] = data
	return nil
}

// Add encodes v with def and stores it on e.
func Add[T, U any](e *Entity, rt native.Runtime, def *component.Definition[T, U], v T) error {
	if e.Has(def.ID) {
		return duplicate(def.ID, def.Name)
	}
	e.components[def.ID] = def.NewData(rt, v)
	return nil
}

// Get decodes the component of def. ok is false when the entity does not
// have it.
func Get[T, U any](e *Entity, def *component.Definition[T, U]) (v T, ok bool, err error) {
	data, found := e.components[def.ID]
	if !found {
		return v, false, nil
	}
	v, err = def.Read(data)
	return v, err == nil, err
}

// AddData stores data, taking ownership of it.
func (e *Entity) AddData(data *schema.ComponentData) error {
	id := data.ComponentID()
	if e.Has(id) {
		return duplicate(id, "")
	}
	e.components[id] = data
	return nil
}

// Data returns the stored data of component id, or nil. The entity keeps
// ownership.
func (e *Entity) Data(id uint32) *schema.ComponentData {
	return e.components[id]
}

// Decode decodes the component id through the registry.
func (e *Entity) Decode(id uint32) (any, error) {
	data, ok := e.components[id]
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindNotFound).
			Component(componentName(e.reg, id)).
			Detail("entity has no component %d", id).
			Build()
	}
	if e.reg == nil {
		return nil, errors.UnknownComponent(errors.PhaseRegistry, id)
	}
	return e.reg.DecodeData(data)
}

// Apply merges an update into the stored data of its component.
func (e *Entity) Apply(upd *schema.ComponentUpdate) error {
	data, ok := e.components[upd.ComponentID()]
	if !ok {
		return errors.New(errors.PhaseDecode, errors.KindNotFound).
			Component(componentName(e.reg, upd.ComponentID())).
			Detail("entity has no component %d", upd.ComponentID()).
			Build()
	}
	data.Apply(upd)
	return nil
}

// Has reports whether the entity has component id.
func (e *Entity) Has(id uint32) bool {
	_, ok := e.components[id]
	return ok
}

// Remove destroys the data of component id.
func (e *Entity) Remove(id uint32) {
	if data, ok := e.components[id]; ok {
		data.Close()
		delete(e.components, id)
	}
}

// ComponentIDs returns the ids of the stored components in ascending order.
func (e *Entity) ComponentIDs() []uint32 {
	ids := make([]uint32, 0, len(e.components))
	for id := range e.components {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of components.
func (e *Entity) Len() int {
	return len(e.components)
}

// Copy returns an entity holding deep copies of every component.
func (e *Entity) Copy() *Entity {
	c := New(e.reg)
	for id, data := range e.components {
		c.components[id] = data.Copy()
	}
	return c
}

// Close destroys every component.
func (e *Entity) Close() error {
	for id, data := range e.components {
		data.Close()
		delete(e.components, id)
	}
	return nil
}

func duplicate(id uint32, name string) error {
	return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
		Component(name).
		Value(id).
		Detail("entity already has component %d", id).
		Build()
}

func componentName(reg *component.Registry, id uint32) string {
	if reg != nil {
		if vt, err := reg.Lookup(id); err == nil {
			return vt.Name()
		}
	}
	return ""
}

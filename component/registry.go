package component

import (
	"slices"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/schema"
)

// Registry maps component ids to vtables. It is immutable once built and
// safe for concurrent lookups.
type Registry struct {
	byID   map[uint32]Vtable
	byName map[string]Vtable
	ids    []uint32
}

// IsReserved reports whether id lies in a range reserved for standard
// components.
func IsReserved(id uint32) bool {
	return (id >= 1 && id <= 99) || (id >= 190000 && id <= 199999)
}

// NewRegistry builds a registry from vtables. Duplicate ids or names, id 0
// and reserved ids of non-standard components are rejected.
func NewRegistry(vts ...Vtable) (*Registry, error) {
	r := &Registry{
		byID:   make(map[uint32]Vtable, len(vts)),
		byName: make(map[string]Vtable, len(vts)),
	}
	for _, vt := range vts {
		id, name := vt.ID(), vt.Name()
		if id == 0 {
			return nil, errors.Registration(id, name, "component id 0 is invalid")
		}
		if IsReserved(id) && !vt.Standard() {
			return nil, errors.ReservedID(id, name)
		}
		if prev, ok := r.byID[id]; ok {
			return nil, errors.Registration(id, name, "component id already registered by "+prev.Name())
		}
		if name != "" {
			if _, ok := r.byName[name]; ok {
				return nil, errors.Registration(id, name, "component name already registered")
			}
			r.byName[name] = vt
		}
		r.byID[id] = vt
		r.ids = append(r.ids, id)
	}
	slices.Sort(r.ids)
	return r, nil
}

// MustRegistry is NewRegistry for static component lists. It panics on a
// registration error.
func MustRegistry(vts ...Vtable) *Registry {
	r, err := NewRegistry(vts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Merged returns a registry holding the vtables of r and vts.
func (r *Registry) Merged(vts ...Vtable) (*Registry, error) {
	all := make([]Vtable, 0, len(r.ids)+len(vts))
	for _, id := range r.ids {
		all = append(all, r.byID[id])
	}
	return NewRegistry(append(all, vts...)...)
}

// Lookup returns the vtable of id. An unregistered id is an ordinary
// occurrence and yields an unknown component error.
func (r *Registry) Lookup(id uint32) (Vtable, error) {
	vt, ok := r.byID[id]
	if !ok {
		return nil, errors.UnknownComponent(errors.PhaseRegistry, id)
	}
	return vt, nil
}

// LookupName returns the vtable registered under name.
func (r *Registry) LookupName(name string) (Vtable, error) {
	vt, ok := r.byName[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRegistry, "component", name)
	}
	return vt, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id uint32) bool {
	_, ok := r.byID[id]
	return ok
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []uint32 {
	return slices.Clone(r.ids)
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	return len(r.ids)
}

// DecodeData decodes component data of any registered component.
func (r *Registry) DecodeData(data *schema.ComponentData) (any, error) {
	vt, err := r.Lookup(data.ComponentID())
	if err != nil {
		return nil, err
	}
	return vt.DecodeData(data.Fields()), nil
}

// DecodeUpdate decodes a component update of any registered component.
func (r *Registry) DecodeUpdate(upd *schema.ComponentUpdate) (any, error) {
	vt, err := r.Lookup(upd.ComponentID())
	if err != nil {
		return nil, err
	}
	return vt.DecodeUpdate(upd), nil
}

// EncodeData writes v into o using the vtable of id.
func (r *Registry) EncodeData(id uint32, v any, o schema.Object) error {
	vt, err := r.Lookup(id)
	if err != nil {
		return err
	}
	return vt.EncodeData(v, o)
}

// Merge applies update u to the value dst points to.
func (r *Registry) Merge(id uint32, dst any, u any) error {
	vt, err := r.Lookup(id)
	if err != nil {
		return err
	}
	return vt.Merge(dst, u)
}

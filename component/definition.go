package component

import (
	"fmt"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/schema"
)

// UpdateType is the encode/decode pair of a component update. Encode may
// mark fields as cleared on the update.
type UpdateType[U any] interface {
	EncodeUpdate(u U, upd *schema.ComponentUpdate)
	DecodeUpdate(upd *schema.ComponentUpdate) U
}

// UpdateFuncs adapts plain functions to UpdateType.
type UpdateFuncs[U any] struct {
	EncodeFunc func(u U, upd *schema.ComponentUpdate)
	DecodeFunc func(upd *schema.ComponentUpdate) U
}

func (f UpdateFuncs[U]) EncodeUpdate(u U, upd *schema.ComponentUpdate) { f.EncodeFunc(u, upd) }

func (f UpdateFuncs[U]) DecodeUpdate(upd *schema.ComponentUpdate) U { return f.DecodeFunc(upd) }

// Definition is the statically typed description of component T with update
// type U.
type Definition[T, U any] struct {
	Data   schema.Type[T]
	Update UpdateType[U]
	// Merge applies every field present in u to v.
	Merge    func(v *T, u U)
	Name     string
	ID       uint32
	Standard bool
}

// Vtable erases the Go types of the definition.
func (d *Definition[T, U]) Vtable() Vtable {
	return vtable[T, U]{d}
}

// NewData encodes v into new component data.
func (d *Definition[T, U]) NewData(rt native.Runtime, v T) *schema.ComponentData {
	data := schema.NewComponentData(rt, d.ID)
	d.Data.Encode(v, data.Fields())
	return data
}

// Read decodes component data, which must belong to this component.
func (d *Definition[T, U]) Read(data *schema.ComponentData) (T, error) {
	if data.ComponentID() != d.ID {
		var zero T
		return zero, d.mismatch(errors.PhaseDecode, data.ComponentID())
	}
	return d.Data.Decode(data.Fields()), nil
}

// NewUpdate encodes u into a new component update.
func (d *Definition[T, U]) NewUpdate(rt native.Runtime, u U) *schema.ComponentUpdate {
	upd := schema.NewComponentUpdate(rt, d.ID)
	d.Update.EncodeUpdate(u, upd)
	return upd
}

// ReadUpdate decodes a component update, which must belong to this component.
func (d *Definition[T, U]) ReadUpdate(upd *schema.ComponentUpdate) (U, error) {
	if upd.ComponentID() != d.ID {
		var zero U
		return zero, d.mismatch(errors.PhaseDecode, upd.ComponentID())
	}
	return d.Update.DecodeUpdate(upd), nil
}

func (d *Definition[T, U]) mismatch(phase errors.Phase, got uint32) *errors.Error {
	return errors.New(phase, errors.KindTypeMismatch).
		Component(d.Name).
		Value(got).
		Detail("container holds component %d, want %d", got, d.ID).
		Build()
}

func (d *Definition[T, U]) String() string {
	return fmt.Sprintf("%s(%d)", d.Name, d.ID)
}

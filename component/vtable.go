package component

import (
	"fmt"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/schema"
)

// Vtable is the type-erased encode/decode/merge table of one component.
//
// Values are passed as T or *T and updates as U or *U of the underlying
// definition; anything else is a type mismatch.
type Vtable interface {
	ID() uint32
	Name() string
	Standard() bool

	EncodeData(v any, o schema.Object) error
	DecodeData(o schema.Object) any
	EncodeUpdate(u any, upd *schema.ComponentUpdate) error
	DecodeUpdate(upd *schema.ComponentUpdate) any
	// Merge applies u to the value dst points to.
	Merge(dst any, u any) error
	// Apply returns a copy of v with u applied.
	Apply(v any, u any) (any, error)
}

type vtable[T, U any] struct {
	def *Definition[T, U]
}

func (v vtable[T, U]) ID() uint32     { return v.def.ID }
func (v vtable[T, U]) Name() string   { return v.def.Name }
func (v vtable[T, U]) Standard() bool { return v.def.Standard }

func (v vtable[T, U]) EncodeData(val any, o schema.Object) error {
	t, ok := valueOf[T](val)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, v.def.Name, typeName[T](), val)
	}
	v.def.Data.Encode(t, o)
	return nil
}

func (v vtable[T, U]) DecodeData(o schema.Object) any {
	return v.def.Data.Decode(o)
}

func (v vtable[T, U]) EncodeUpdate(val any, upd *schema.ComponentUpdate) error {
	u, ok := valueOf[U](val)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, v.def.Name, typeName[U](), val)
	}
	v.def.Update.EncodeUpdate(u, upd)
	return nil
}

func (v vtable[T, U]) DecodeUpdate(upd *schema.ComponentUpdate) any {
	return v.def.Update.DecodeUpdate(upd)
}

func (v vtable[T, U]) Merge(dst any, val any) error {
	p, ok := dst.(*T)
	if !ok || p == nil {
		return errors.TypeMismatch(errors.PhaseDecode, v.def.Name, "*"+typeName[T](), dst)
	}
	u, ok := valueOf[U](val)
	if !ok {
		return errors.TypeMismatch(errors.PhaseDecode, v.def.Name, typeName[U](), val)
	}
	v.def.Merge(p, u)
	return nil
}

func (v vtable[T, U]) Apply(val any, upd any) (any, error) {
	t, ok := valueOf[T](val)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseDecode, v.def.Name, typeName[T](), val)
	}
	u, ok := valueOf[U](upd)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseDecode, v.def.Name, typeName[U](), upd)
	}
	v.def.Merge(&t, u)
	return t, nil
}

func valueOf[T any](v any) (T, bool) {
	switch x := v.(type) {
	case T:
		return x, true
	case *T:
		if x != nil {
			return *x, true
		}
	}
	var zero T
	return zero, false
}

func typeName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

package schema

import (
	"runtime"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/handle"
	"github.com/wippyai/worker-sdk/native"
)

// Object is a borrowed view of a native schema object. A view taken from a
// container keeps the container reachable, and using it after the
// container was closed or given away panics with a fatal error.
type Object struct {
	abi   native.SchemaABI
	owner *handle.Owned
	ptr   native.Ptr
}

// View wraps a schema object pointer owned elsewhere. The caller keeps the
// owner alive while the view is in use.
func View(abi native.SchemaABI, p native.Ptr) Object {
	return Object{abi: abi, ptr: p}
}

func viewOf(c Container, p native.Ptr) Object {
	return Object{abi: c.rt.Schema(), owner: c.owned, ptr: p}
}

// live returns the object pointer after checking that the owning container
// still holds it.
func (o Object) live() native.Ptr {
	if o.owner != nil && o.owner.Released() {
		panic(errors.Fatal(errors.PhaseNative, "use of schema object of released %s", o.owner.Kind().Name()))
	}
	return o.ptr
}

func (o Object) child(p native.Ptr) Object {
	return Object{abi: o.abi, owner: o.owner, ptr: p}
}

// IsNull reports whether the view points at nothing.
func (o Object) IsNull() bool {
	return o.abi == nil || o.ptr.IsNull()
}

// Field returns an accessor bound to one field id.
func (o Object) Field(id native.FieldID) Field {
	return Field{obj: o, id: id}
}

// FieldIDs returns the ids of the fields holding at least one value.
func (o Object) FieldIDs() []native.FieldID {
	defer runtime.KeepAlive(o.owner)
	return o.abi.FieldIDs(o.live())
}

// AddObject appends an empty nested object to field id and returns it.
func (o Object) AddObject(id native.FieldID) Object {
	defer runtime.KeepAlive(o.owner)
	return o.child(o.abi.AddObject(o.live(), id))
}

// GetObject returns the last nested object of field id. An absent field
// yields an empty object; this is a mutation of the native object.
func (o Object) GetObject(id native.FieldID) Object {
	defer runtime.KeepAlive(o.owner)
	return o.child(o.abi.GetObject(o.live(), id))
}

// IndexObject returns the i-th nested object of field id.
func (o Object) IndexObject(id native.FieldID, i int) Object {
	defer runtime.KeepAlive(o.owner)
	return o.child(o.abi.IndexObject(o.live(), id, uint32(i)))
}

// ClearField removes every value of field id.
func (o Object) ClearField(id native.FieldID) {
	defer runtime.KeepAlive(o.owner)
	o.abi.ClearField(o.live(), id)
}

// Clear removes every field.
func (o Object) Clear() {
	defer runtime.KeepAlive(o.owner)
	o.abi.Clear(o.live())
}

// Serialize returns the encoded form of the object.
func (o Object) Serialize() []byte {
	defer runtime.KeepAlive(o.owner)
	return o.abi.Serialize(o.live())
}

// Merge appends the fields encoded in data.
func (o Object) Merge(data []byte) error {
	defer runtime.KeepAlive(o.owner)
	if msg := o.abi.Merge(o.live(), data); msg != "" {
		return errors.NativeError(errors.PhaseDecode, "merge schema object", msg)
	}
	return nil
}

// CopyTo appends every field of o to dst.
func (o Object) CopyTo(dst Object) error {
	return dst.Merge(o.Serialize())
}

// Field is an accessor for the values of one field of an object.
type Field struct {
	obj Object
	id  native.FieldID
}

// ID returns the field id.
func (f Field) ID() native.FieldID {
	return f.id
}

// Object returns the object the field belongs to.
func (f Field) Object() Object {
	return f.obj
}

// Clear removes every value of the field.
func (f Field) Clear() {
	f.obj.ClearField(f.id)
}

// Has reports whether the field holds a value of kind k.
func Has[T any](f Field, k Kind[T]) bool {
	return k.Count(f.obj, f.id) > 0
}

// Get returns the last value of the field, or the zero value of T when the
// field was never written.
func Get[T any](f Field, k Kind[T]) T {
	n := k.Count(f.obj, f.id)
	if n == 0 {
		var zero T
		return zero
	}
	return k.Index(f.obj, f.id, n-1)
}

// Add appends v to the field.
func Add[T any](f Field, k Kind[T], v T) {
	k.Add(f.obj, f.id, v)
}

// Count returns the number of values of kind k in the field.
func Count[T any](f Field, k Kind[T]) int {
	return k.Count(f.obj, f.id)
}

// Index returns the i-th value of the field, or the zero value when i is
// out of range.
func Index[T any](f Field, k Kind[T], i int) T {
	if i < 0 || i >= k.Count(f.obj, f.id) {
		var zero T
		return zero
	}
	return k.Index(f.obj, f.id, i)
}

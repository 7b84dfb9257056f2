package schema

import (
	"cmp"
	"runtime"
	"slices"

	"github.com/wippyai/worker-sdk/native"
)

// Map entries are nested objects with the key in field 1 and the value in
// field 2.
const (
	MapKeyField   native.FieldID = 1
	MapValueField native.FieldID = 2
)

// GetList returns every value of the field in append order. A field that was
// never written yields an empty, non-nil slice.
func GetList[T any](f Field, k Kind[T]) []T {
	n := k.Count(f.obj, f.id)
	out := make([]T, n)
	for i := range n {
		out[i] = k.Index(f.obj, f.id, i)
	}
	return out
}

// AddList appends every element of vs to the field.
func AddList[T any](f Field, k Kind[T], vs []T) {
	for _, v := range vs {
		k.Add(f.obj, f.id, v)
	}
}

// GetOption returns the last value of the field, or nil when the field was
// never written.
func GetOption[T any](f Field, k Kind[T]) *T {
	n := k.Count(f.obj, f.id)
	if n == 0 {
		return nil
	}
	v := k.Index(f.obj, f.id, n-1)
	return &v
}

// AddOption appends *v when v is not nil.
func AddOption[T any](f Field, k Kind[T], v *T) {
	if v != nil {
		k.Add(f.obj, f.id, *v)
	}
}

// GetMap reads a map stored as repeated key/value entry objects. Later
// entries with the same key win. A field that was never written yields an
// empty, non-nil map.
func GetMap[K comparable, V any](f Field, kk Kind[K], vk Kind[V]) map[K]V {
	defer runtime.KeepAlive(f.obj.owner)
	n := int(f.obj.abi.Count(f.obj.live(), f.id, native.WireBytes))
	out := make(map[K]V, n)
	for i := range n {
		entry := f.obj.IndexObject(f.id, i)
		out[Get(entry.Field(MapKeyField), kk)] = Get(entry.Field(MapValueField), vk)
	}
	return out
}

// AddMap appends one entry object per element of m, in ascending key order.
func AddMap[K cmp.Ordered, V any](f Field, kk Kind[K], vk Kind[V], m map[K]V) {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		entry := f.obj.AddObject(f.id)
		kk.Add(entry, MapKeyField, key)
		vk.Add(entry, MapValueField, m[key])
	}
}

package local

import (
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
)

// value is one appended field value. Length-delimited values hold either raw
// bytes or a parsed child object; a raw value is parsed into a child the
// first time it is read as an object.
type value struct {
	raw   []byte
	num   uint64
	child native.Ptr
	id    native.FieldID
	wt    native.WireType
}

// object is a schema object: field values in append order plus the objects
// materialised for absent fields.
type object struct {
	values  []value
	scratch []native.Ptr
}

func (r *Runtime) newObject() native.Ptr {
	return r.alloc(tagObject, &object{})
}

func (r *Runtime) object(p native.Ptr) *object {
	return lookup[*object](r, p, tagObject, "schema object")
}

// freeObject releases an object and every child it owns.
func (r *Runtime) freeObject(p native.Ptr) {
	o := r.free(p, tagObject, "schema object").(*object)
	r.releaseChildren(o.values, o.scratch)
}

func (r *Runtime) releaseChildren(values []value, scratch []native.Ptr) {
	for _, v := range values {
		if v.child != 0 {
			r.freeObject(v.child)
		}
	}
	for _, s := range scratch {
		r.freeObject(s)
	}
}

func checkField(field native.FieldID) {
	if field == 0 {
		panic(errors.Fatal(errors.PhaseNative, "field id 0 is not a valid schema field"))
	}
}

func (o *object) append(v value) {
	o.values = append(o.values, v)
}

// nth returns the index into o.values of the i-th value of field with wire
// type wt, or -1.
func (o *object) nth(field native.FieldID, wt native.WireType, i uint32) int {
	var seen uint32
	for idx := range o.values {
		v := &o.values[idx]
		if v.id != field || v.wt != wt {
			continue
		}
		if seen == i {
			return idx
		}
		seen++
	}
	return -1
}

func (o *object) count(field native.FieldID, wt native.WireType) uint32 {
	var n uint32
	for _, v := range o.values {
		if v.id == field && v.wt == wt {
			n++
		}
	}
	return n
}

func (o *object) fieldIDs() []native.FieldID {
	var ids []native.FieldID
	seen := make(map[native.FieldID]struct{})
	for _, v := range o.values {
		if _, ok := seen[v.id]; ok {
			continue
		}
		seen[v.id] = struct{}{}
		ids = append(ids, v.id)
	}
	return ids
}

// removeField drops the values of field and returns them.
func (o *object) removeField(field native.FieldID) []value {
	var removed []value
	kept := o.values[:0]
	for _, v := range o.values {
		if v.id == field {
			removed = append(removed, v)
			continue
		}
		kept = append(kept, v)
	}
	// Clear the tail so dropped children are not retained
	for i := len(kept); i < len(o.values); i++ {
		o.values[i] = value{}
	}
	o.values = kept
	return removed
}

// bytesOf returns the encoded form of a length-delimited value.
func (r *Runtime) bytesOf(v *value) []byte {
	if v.child != 0 {
		return r.serialize(v.child)
	}
	return v.raw
}

// objectOf parses a length-delimited value into a child object on first use.
func (r *Runtime) objectOf(v *value) native.Ptr {
	if v.child != 0 {
		return v.child
	}
	child := r.newObject()
	if msg := r.merge(child, v.raw); msg != "" {
		// Unparseable payloads read as an empty object
		Logger().Debug("schema object payload is not an object")
		r.schemaClear(child)
	}
	v.child = child
	v.raw = nil
	return child
}

// copyObject deep-copies src into a fresh object.
func (r *Runtime) copyObject(src native.Ptr) native.Ptr {
	dst := r.newObject()
	r.merge(dst, r.serialize(src))
	return dst
}

func (r *Runtime) schemaClear(p native.Ptr) {
	o := r.object(p)
	values, scratch := o.values, o.scratch
	o.values, o.scratch = nil, nil
	r.releaseChildren(values, scratch)
}

package local

import (
	"github.com/wippyai/worker-sdk/native"
)

type schemaABI struct {
	r *Runtime
}

func (s schemaABI) AddVarint(obj native.Ptr, field native.FieldID, v uint64) {
	checkField(field)
	s.r.object(obj).append(value{id: field, wt: native.WireVarint, num: v})
}

func (s schemaABI) AddFixed32(obj native.Ptr, field native.FieldID, v uint32) {
	checkField(field)
	s.r.object(obj).append(value{id: field, wt: native.WireFixed32, num: uint64(v)})
}

func (s schemaABI) AddFixed64(obj native.Ptr, field native.FieldID, v uint64) {
	checkField(field)
	s.r.object(obj).append(value{id: field, wt: native.WireFixed64, num: v})
}

func (s schemaABI) AddBytes(obj native.Ptr, field native.FieldID, b []byte) {
	checkField(field)
	s.r.object(obj).append(value{id: field, wt: native.WireBytes, raw: append([]byte(nil), b...)})
}

func (s schemaABI) AddObject(obj native.Ptr, field native.FieldID) native.Ptr {
	checkField(field)
	o := s.r.object(obj)
	child := s.r.newObject()
	o.append(value{id: field, wt: native.WireBytes, child: child})
	return child
}

func (s schemaABI) Count(obj native.Ptr, field native.FieldID, wt native.WireType) uint32 {
	return s.r.object(obj).count(field, wt)
}

func (s schemaABI) IndexVarint(obj native.Ptr, field native.FieldID, i uint32) uint64 {
	return s.number(obj, field, native.WireVarint, i)
}

func (s schemaABI) IndexFixed32(obj native.Ptr, field native.FieldID, i uint32) uint32 {
	return uint32(s.number(obj, field, native.WireFixed32, i))
}

func (s schemaABI) IndexFixed64(obj native.Ptr, field native.FieldID, i uint32) uint64 {
	return s.number(obj, field, native.WireFixed64, i)
}

func (s schemaABI) number(obj native.Ptr, field native.FieldID, wt native.WireType, i uint32) uint64 {
	o := s.r.object(obj)
	idx := o.nth(field, wt, i)
	if idx < 0 {
		return 0
	}
	return o.values[idx].num
}

func (s schemaABI) IndexBytes(obj native.Ptr, field native.FieldID, i uint32) []byte {
	o := s.r.object(obj)
	idx := o.nth(field, native.WireBytes, i)
	if idx < 0 {
		return nil
	}
	return s.r.bytesOf(&o.values[idx])
}

func (s schemaABI) IndexObject(obj native.Ptr, field native.FieldID, i uint32) native.Ptr {
	o := s.r.object(obj)
	idx := o.nth(field, native.WireBytes, i)
	if idx < 0 {
		return s.scratch(o)
	}
	return s.r.objectOf(&o.values[idx])
}

func (s schemaABI) GetObject(obj native.Ptr, field native.FieldID) native.Ptr {
	o := s.r.object(obj)
	n := o.count(field, native.WireBytes)
	if n == 0 {
		return s.scratch(o)
	}
	idx := o.nth(field, native.WireBytes, n-1)
	return s.r.objectOf(&o.values[idx])
}

// scratch materialises an empty object owned by o without adding a field.
func (s schemaABI) scratch(o *object) native.Ptr {
	child := s.r.newObject()
	o.scratch = append(o.scratch, child)
	return child
}

func (s schemaABI) FieldIDs(obj native.Ptr) []native.FieldID {
	return s.r.object(obj).fieldIDs()
}

func (s schemaABI) ClearField(obj native.Ptr, field native.FieldID) {
	removed := s.r.object(obj).removeField(field)
	s.r.releaseChildren(removed, nil)
}

func (s schemaABI) Clear(obj native.Ptr) {
	s.r.schemaClear(obj)
}

func (s schemaABI) Serialize(obj native.Ptr) []byte {
	return s.r.serialize(obj)
}

func (s schemaABI) Merge(obj native.Ptr, data []byte) string {
	return s.r.merge(obj, data)
}

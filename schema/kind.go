package schema

import (
	"math"
	"runtime"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/wippyai/worker-sdk/native"
)

// Kind maps values of T onto the native storage of a field.
type Kind[T any] interface {
	Name() string
	Add(o Object, id native.FieldID, v T)
	Count(o Object, id native.FieldID) int
	Index(o Object, id native.FieldID, i int) T
}

// Predefined kinds for every primitive wire-kind.
var (
	Bool     Kind[bool]    = varintKind[bool]{"bool", encodeBool, decodeBool}
	Int32    Kind[int32]   = varintKind[int32]{"int32", func(v int32) uint64 { return uint64(int64(v)) }, func(u uint64) int32 { return int32(u) }}
	Int64    Kind[int64]   = varintKind[int64]{"int64", func(v int64) uint64 { return uint64(v) }, func(u uint64) int64 { return int64(u) }}
	Uint32   Kind[uint32]  = varintKind[uint32]{"uint32", func(v uint32) uint64 { return uint64(v) }, func(u uint64) uint32 { return uint32(u) }}
	Uint64   Kind[uint64]  = varintKind[uint64]{"uint64", func(v uint64) uint64 { return v }, func(u uint64) uint64 { return u }}
	Sint32   Kind[int32]   = varintKind[int32]{"sint32", encodeSint32, decodeSint32}
	Sint64   Kind[int64]   = varintKind[int64]{"sint64", protowire.EncodeZigZag, protowire.DecodeZigZag}
	Fixed32  Kind[uint32]  = fixed32Kind[uint32]{"fixed32", func(v uint32) uint32 { return v }, func(u uint32) uint32 { return u }}
	Sfixed32 Kind[int32]   = fixed32Kind[int32]{"sfixed32", func(v int32) uint32 { return uint32(v) }, func(u uint32) int32 { return int32(u) }}
	Float    Kind[float32] = fixed32Kind[float32]{"float", math.Float32bits, math.Float32frombits}
	Fixed64  Kind[uint64]  = fixed64Kind[uint64]{"fixed64", func(v uint64) uint64 { return v }, func(u uint64) uint64 { return u }}
	Sfixed64 Kind[int64]   = fixed64Kind[int64]{"sfixed64", func(v int64) uint64 { return uint64(v) }, func(u uint64) int64 { return int64(u) }}
	Double   Kind[float64] = fixed64Kind[float64]{"double", math.Float64bits, math.Float64frombits}
	String   Kind[string]  = bytesKind[string]{"string", func(v string) []byte { return []byte(v) }, func(b []byte) string { return string(b) }}
	Bytes    Kind[[]byte]  = bytesKind[[]byte]{"bytes", func(v []byte) []byte { return v }, cloneBytes}

	// EntityID stores an entity id as a signed varint.
	EntityID Kind[int64] = varintKind[int64]{"entity_id", func(v int64) uint64 { return uint64(v) }, func(u uint64) int64 { return int64(u) }}
)

// Enum returns the kind of an enum type backed by uint32 values.
func Enum[E ~uint32]() Kind[E] {
	return varintKind[E]{"enum", func(v E) uint64 { return uint64(v) }, func(u uint64) E { return E(uint32(u)) }}
}

func encodeBool(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func decodeBool(u uint64) bool {
	return u != 0
}

func encodeSint32(v int32) uint64 {
	return protowire.EncodeZigZag(int64(v))
}

func decodeSint32(u uint64) int32 {
	return int32(protowire.DecodeZigZag(u & math.MaxUint32))
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

type varintKind[T any] struct {
	name   string
	encode func(T) uint64
	decode func(uint64) T
}

func (k varintKind[T]) Name() string { return k.name }

func (k varintKind[T]) Add(o Object, id native.FieldID, v T) {
	defer runtime.KeepAlive(o.owner)
	o.abi.AddVarint(o.live(), id, k.encode(v))
}

func (k varintKind[T]) Count(o Object, id native.FieldID) int {
	defer runtime.KeepAlive(o.owner)
	return int(o.abi.Count(o.live(), id, native.WireVarint))
}

func (k varintKind[T]) Index(o Object, id native.FieldID, i int) T {
	defer runtime.KeepAlive(o.owner)
	return k.decode(o.abi.IndexVarint(o.live(), id, uint32(i)))
}

type fixed32Kind[T any] struct {
	name   string
	encode func(T) uint32
	decode func(uint32) T
}

func (k fixed32Kind[T]) Name() string { return k.name }

func (k fixed32Kind[T]) Add(o Object, id native.FieldID, v T) {
	defer runtime.KeepAlive(o.owner)
	o.abi.AddFixed32(o.live(), id, k.encode(v))
}

func (k fixed32Kind[T]) Count(o Object, id native.FieldID) int {
	defer runtime.KeepAlive(o.owner)
	return int(o.abi.Count(o.live(), id, native.WireFixed32))
}

func (k fixed32Kind[T]) Index(o Object, id native.FieldID, i int) T {
	defer runtime.KeepAlive(o.owner)
	return k.decode(o.abi.IndexFixed32(o.live(), id, uint32(i)))
}

type fixed64Kind[T any] struct {
	name   string
	encode func(T) uint64
	decode func(uint64) T
}

func (k fixed64Kind[T]) Name() string { return k.name }

func (k fixed64Kind[T]) Add(o Object, id native.FieldID, v T) {
	defer runtime.KeepAlive(o.owner)
	o.abi.AddFixed64(o.live(), id, k.encode(v))
}

func (k fixed64Kind[T]) Count(o Object, id native.FieldID) int {
	defer runtime.KeepAlive(o.owner)
	return int(o.abi.Count(o.live(), id, native.WireFixed64))
}

func (k fixed64Kind[T]) Index(o Object, id native.FieldID, i int) T {
	defer runtime.KeepAlive(o.owner)
	return k.decode(o.abi.IndexFixed64(o.live(), id, uint32(i)))
}

type bytesKind[T any] struct {
	name   string
	encode func(T) []byte
	decode func([]byte) T
}

func (k bytesKind[T]) Name() string { return k.name }

func (k bytesKind[T]) Add(o Object, id native.FieldID, v T) {
	defer runtime.KeepAlive(o.owner)
	o.abi.AddBytes(o.live(), id, k.encode(v))
}

func (k bytesKind[T]) Count(o Object, id native.FieldID) int {
	defer runtime.KeepAlive(o.owner)
	return int(o.abi.Count(o.live(), id, native.WireBytes))
}

func (k bytesKind[T]) Index(o Object, id native.FieldID, i int) T {
	defer runtime.KeepAlive(o.owner)
	return k.decode(o.abi.IndexBytes(o.live(), id, uint32(i)))
}

// Type is the encode/decode pair of a structured value stored as a nested
// schema object.
type Type[T any] interface {
	Encode(v T, o Object)
	Decode(o Object) T
}

// TypeFuncs adapts plain functions to Type.
type TypeFuncs[T any] struct {
	EncodeFunc func(v T, o Object)
	DecodeFunc func(o Object) T
}

func (t TypeFuncs[T]) Encode(v T, o Object) { t.EncodeFunc(v, o) }

func (t TypeFuncs[T]) Decode(o Object) T { return t.DecodeFunc(o) }

// ObjectKind returns the kind of values of type t stored as nested objects.
func ObjectKind[T any](name string, t Type[T]) Kind[T] {
	return objectKind[T]{name: name, t: t}
}

type objectKind[T any] struct {
	t    Type[T]
	name string
}

func (k objectKind[T]) Name() string { return k.name }

func (k objectKind[T]) Add(o Object, id native.FieldID, v T) {
	k.t.Encode(v, o.AddObject(id))
}

func (k objectKind[T]) Count(o Object, id native.FieldID) int {
	defer runtime.KeepAlive(o.owner)
	return int(o.abi.Count(o.live(), id, native.WireBytes))
}

func (k objectKind[T]) Index(o Object, id native.FieldID, i int) T {
	return k.t.Decode(o.IndexObject(id, i))
}

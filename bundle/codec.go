package bundle

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/schema"
)

// Record is the dynamic value of a record type or component, keyed by
// field name.
type Record map[string]any

// Entry is one key/value pair of a map field.
type Entry struct {
	Key   any
	Value any
}

// codec encodes one schema type held in an any.
type codec struct {
	kind   schema.Kind[any]
	check  func(path []string, v any) (any, error)
	zero   func() any
	record *recordType
	name   string
	mapKey bool
}

// anyKind erases a typed kind. Values reaching Add have passed the codec
// check, so the assertion holds.
type anyKind[T any] struct {
	k schema.Kind[T]
}

func (a anyKind[T]) Name() string { return a.k.Name() }

func (a anyKind[T]) Add(o schema.Object, id native.FieldID, v any) { a.k.Add(o, id, v.(T)) }

func (a anyKind[T]) Count(o schema.Object, id native.FieldID) int { return a.k.Count(o, id) }

func (a anyKind[T]) Index(o schema.Object, id native.FieldID, i int) any {
	return a.k.Index(o, id, i)
}

func primitive[T any](name string, k schema.Kind[T], mapKey bool, conv func(any) (T, bool)) *codec {
	return &codec{
		name:   name,
		kind:   anyKind[T]{k},
		mapKey: mapKey,
		zero: func() any {
			var zero T
			return zero
		},
		check: func(path []string, v any) (any, error) {
			t, ok := conv(v)
			if !ok {
				return nil, mismatch(path, name, v)
			}
			return t, nil
		},
	}
}

var primitives = map[string]*codec{
	"bool":     primitive("bool", schema.Bool, true, toBool),
	"int32":    primitive("int32", schema.Int32, true, toSigned[int32]),
	"int64":    primitive("int64", schema.Int64, true, toSigned[int64]),
	"uint32":   primitive("uint32", schema.Uint32, true, toUnsigned[uint32]),
	"uint64":   primitive("uint64", schema.Uint64, true, toUnsigned[uint64]),
	"sint32":   primitive("sint32", schema.Sint32, true, toSigned[int32]),
	"sint64":   primitive("sint64", schema.Sint64, true, toSigned[int64]),
	"fixed32":  primitive("fixed32", schema.Fixed32, true, toUnsigned[uint32]),
	"fixed64":  primitive("fixed64", schema.Fixed64, true, toUnsigned[uint64]),
	"sfixed32": primitive("sfixed32", schema.Sfixed32, true, toSigned[int32]),
	"sfixed64": primitive("sfixed64", schema.Sfixed64, true, toSigned[int64]),
	"float":    primitive("float", schema.Float, false, toFloat[float32]),
	"double":   primitive("double", schema.Double, false, toFloat[float64]),
	"string":   primitive("string", schema.String, true, toString),
	"bytes":    primitive("bytes", schema.Bytes, false, toBytes),
	"EntityId": primitive("EntityId", schema.EntityID, true, toSigned[int64]),
}

func mismatch(path []string, want string, got any) error {
	return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
		Path(path...).
		GoType(fmt.Sprintf("%T", got)).
		Value(got).
		Detail("expected %s", want).
		Build()
}

func toBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func toString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func toBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	}
	return nil, false
}

// number widens any Go or JSON number. Integral values come back exact.
func number(v any) (i int64, u uint64, f float64, kind byte, ok bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), 0, 0, 'i', true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return 0, rv.Uint(), 0, 'u', true
	case reflect.Float32, reflect.Float64:
		return 0, 0, rv.Float(), 'f', true
	case reflect.String:
		if n, isNum := v.(json.Number); isNum {
			if i, err := n.Int64(); err == nil {
				return i, 0, 0, 'i', true
			}
			if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
				return 0, u, 0, 'u', true
			}
			if f, err := n.Float64(); err == nil {
				return 0, 0, f, 'f', true
			}
		}
	}
	return 0, 0, 0, 0, false
}

type signed interface{ ~int32 | ~int64 }

type unsigned interface{ ~uint32 | ~uint64 }

func toSigned[T signed](v any) (T, bool) {
	i, u, f, kind, ok := number(v)
	if !ok {
		return 0, false
	}
	switch kind {
	case 'u':
		if u > math.MaxInt64 {
			return 0, false
		}
		i = int64(u)
	case 'f':
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		i = int64(f)
	}
	t := T(i)
	if int64(t) != i {
		return 0, false
	}
	return t, true
}

func toUnsigned[T unsigned](v any) (T, bool) {
	i, u, f, kind, ok := number(v)
	if !ok {
		return 0, false
	}
	switch kind {
	case 'i':
		if i < 0 {
			return 0, false
		}
		u = uint64(i)
	case 'f':
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		u = uint64(f)
	}
	t := T(u)
	if uint64(t) != u {
		return 0, false
	}
	return t, true
}

func toFloat[T ~float32 | ~float64](v any) (T, bool) {
	i, u, f, kind, ok := number(v)
	if !ok {
		return 0, false
	}
	switch kind {
	case 'i':
		return T(i), true
	case 'u':
		return T(u), true
	}
	return T(f), true
}

// enumCodec encodes enum values as uint32 and accepts value names.
type enumCodec struct {
	codec  *codec
	values map[string]uint32
	names  map[uint32]string
}

func newEnum(def EnumDef) (*enumCodec, error) {
	if len(def.Values) == 0 {
		return nil, errors.Load(def.Name+": enum has no values", nil)
	}
	e := &enumCodec{
		values: make(map[string]uint32, len(def.Values)),
		names:  make(map[uint32]string, len(def.Values)),
	}
	for _, v := range def.Values {
		if _, dup := e.values[v.Name]; dup || v.Name == "" {
			return nil, errors.Load(fmt.Sprintf("%s: bad or duplicate value name %q", def.Name, v.Name), nil)
		}
		if _, dup := e.names[v.Value]; dup {
			return nil, errors.Load(fmt.Sprintf("%s: value %d used twice", def.Name, v.Value), nil)
		}
		e.values[v.Name] = v.Value
		e.names[v.Value] = v.Name
	}
	first := def.Values[0].Value
	e.codec = &codec{
		name:   def.Name,
		kind:   anyKind[uint32]{schema.Uint32},
		mapKey: true,
		zero:   func() any { return first },
		check: func(path []string, v any) (any, error) {
			if s, ok := v.(string); ok {
				if n, known := e.values[s]; known {
					return n, nil
				}
				return nil, errors.InvalidData(errors.PhaseEncode, path,
					fmt.Sprintf("%s has no value %q", def.Name, s))
			}
			n, ok := toUnsigned[uint32](v)
			if !ok {
				return nil, mismatch(path, def.Name, v)
			}
			if _, known := e.names[n]; !known {
				return nil, errors.InvalidData(errors.PhaseEncode, path,
					fmt.Sprintf("%s has no value %d", def.Name, n))
			}
			return n, nil
		},
	}
	return e, nil
}

type field struct {
	elem      *codec
	key       *codec
	entry     schema.Kind[Entry]
	name      string
	container string
	id        native.FieldID
}

// recordType is a record type or the data record of a component.
type recordType struct {
	byName map[string]*field
	codec  *codec
	name   string
	fields []*field
}

func newRecordType(name string) *recordType {
	t := &recordType{name: name, byName: make(map[string]*field)}
	t.codec = &codec{
		name:   name,
		record: t,
		kind: anyKind[Record]{schema.ObjectKind[Record](name, schema.TypeFuncs[Record]{
			EncodeFunc: t.encode,
			DecodeFunc: t.decode,
		})},
		zero: func() any { return t.defaults() },
		check: func(path []string, v any) (any, error) {
			return t.check(path, v)
		},
	}
	return t
}

func (t *recordType) add(f *field) {
	t.fields = append(t.fields, f)
	t.byName[f.name] = f
}

func (t *recordType) defaults() Record {
	rec := make(Record, len(t.fields))
	for _, f := range t.fields {
		rec[f.name] = f.empty()
	}
	return rec
}

// check validates v against the type and returns its canonical form.
// Absent fields stay absent.
func (t *recordType) check(path []string, v any) (Record, error) {
	var in map[string]any
	switch r := v.(type) {
	case Record:
		in = r
	case map[string]any:
		in = r
	default:
		return nil, mismatch(path, t.name, v)
	}
	out := make(Record, len(in))
	for name, fv := range in {
		f, ok := t.byName[name]
		if !ok {
			return nil, errors.InvalidData(errors.PhaseEncode, append(path, name),
				fmt.Sprintf("%s has no field %q", t.name, name))
		}
		if fv == nil && f.container != Option {
			continue
		}
		cv, err := f.check(append(slices.Clip(path), name), fv)
		if err != nil {
			return nil, err
		}
		out[name] = cv
	}
	return out, nil
}

func (t *recordType) encode(rec Record, o schema.Object) {
	for _, f := range t.fields {
		if v, ok := rec[f.name]; ok && v != nil {
			f.encode(o, v)
		}
	}
}

func (t *recordType) decode(o schema.Object) Record {
	rec := make(Record, len(t.fields))
	for _, f := range t.fields {
		rec[f.name] = f.decode(o)
	}
	return rec
}

func (f *field) empty() any {
	switch f.container {
	case List:
		return []any{}
	case Option:
		return nil
	case Map:
		return []Entry{}
	default:
		return f.elem.zero()
	}
}

func (f *field) check(path []string, v any) (any, error) {
	switch f.container {
	case Option:
		if v == nil {
			return nil, nil
		}
		return f.elem.check(path, v)
	case List:
		items, ok := sliceOf(v)
		if !ok {
			return nil, mismatch(path, "list<"+f.elem.name+">", v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := f.elem.check(append(slices.Clip(path), fmt.Sprintf("[%d]", i)), item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case Map:
		return f.checkMap(path, v)
	default:
		return f.elem.check(path, v)
	}
}

func (f *field) checkMap(path []string, v any) (any, error) {
	var entries []Entry
	switch m := v.(type) {
	case []Entry:
		entries = m
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map {
			return nil, mismatch(path, "map<"+f.key.name+", "+f.elem.name+">", v)
		}
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, Entry{Key: iter.Key().Interface(), Value: iter.Value().Interface()})
		}
	}

	out := make([]Entry, 0, len(entries))
	seen := make(map[any]struct{}, len(entries))
	for _, e := range entries {
		k, err := f.key.check(append(slices.Clip(path), "key"), e.Key)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[k]; dup {
			return nil, errors.InvalidData(errors.PhaseEncode, path, fmt.Sprintf("duplicate map key %v", k))
		}
		seen[k] = struct{}{}
		val, err := f.elem.check(append(slices.Clip(path), fmt.Sprint(k)), e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: k, Value: val})
	}
	// Entries from Go maps have no order; write them by key
	if _, isList := v.([]Entry); !isList {
		slices.SortFunc(out, func(a, b Entry) int { return compareKeys(a.Key, b.Key) })
	}
	return out, nil
}

func (f *field) encode(o schema.Object, v any) {
	switch f.container {
	case List:
		for _, item := range v.([]any) {
			f.elem.kind.Add(o, f.id, item)
		}
	case Map:
		for _, e := range v.([]Entry) {
			f.entry.Add(o, f.id, e)
		}
	default:
		f.elem.kind.Add(o, f.id, v)
	}
}

func (f *field) decode(o schema.Object) any {
	switch f.container {
	case List:
		n := f.elem.kind.Count(o, f.id)
		out := make([]any, n)
		for i := range n {
			out[i] = f.elem.kind.Index(o, f.id, i)
		}
		return out
	case Map:
		n := f.entry.Count(o, f.id)
		out := make([]Entry, n)
		for i := range n {
			out[i] = f.entry.Index(o, f.id, i)
		}
		return out
	case Option:
		n := f.elem.kind.Count(o, f.id)
		if n == 0 {
			return nil
		}
		return f.elem.kind.Index(o, f.id, n-1)
	default:
		n := f.elem.kind.Count(o, f.id)
		if n == 0 {
			return f.elem.zero()
		}
		return f.elem.kind.Index(o, f.id, n-1)
	}
}

// present reports whether o carries any value for the field.
func (f *field) present(o schema.Object) bool {
	if f.container == Map {
		return f.entry.Count(o, f.id) > 0
	}
	return f.elem.kind.Count(o, f.id) > 0
}

func newEntryKind(key, val *codec) schema.Kind[Entry] {
	read := func(c *codec, o schema.Object, id native.FieldID) any {
		n := c.kind.Count(o, id)
		if n == 0 {
			return c.zero()
		}
		return c.kind.Index(o, id, n-1)
	}
	return schema.ObjectKind[Entry]("map entry", schema.TypeFuncs[Entry]{
		EncodeFunc: func(e Entry, o schema.Object) {
			key.kind.Add(o, schema.MapKeyField, e.Key)
			val.kind.Add(o, schema.MapValueField, e.Value)
		},
		DecodeFunc: func(o schema.Object) Entry {
			return Entry{
				Key:   read(key, o, schema.MapKeyField),
				Value: read(val, o, schema.MapValueField),
			}
		},
	})
}

func sliceOf(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// compareKeys orders canonical map keys: numbers by value, strings
// lexically, false before true.
func compareKeys(a, b any) int {
	switch x := a.(type) {
	case int32:
		return cmp.Compare(x, b.(int32))
	case int64:
		return cmp.Compare(x, b.(int64))
	case uint32:
		return cmp.Compare(x, b.(uint32))
	case uint64:
		return cmp.Compare(x, b.(uint64))
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		switch {
		case x == b.(bool):
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return 0
}

package bundle_test

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/worker-sdk/bundle"
	"github.com/wippyai/worker-sdk/entity"
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/improbable"
	"github.com/wippyai/worker-sdk/native/local"
	"github.com/wippyai/worker-sdk/schema"
)

const demoBundle = `{
  "enums": [{"name": "demo.Color", "values": [{"name": "RED", "value": 0}, {"name": "GREEN", "value": 1}]}],
  "types": [
    {"name": "demo.Vec", "fields": [
      {"name": "x", "id": 1, "type": "double"},
      {"name": "y", "id": 2, "type": "double"}
    ]},
    {"name": "demo.Node", "fields": [
      {"name": "label", "id": 1, "type": "string"},
      {"name": "children", "id": 2, "type": "demo.Node", "container": "list"}
    ]}
  ],
  "components": [{
    "name": "demo.Health", "id": 1000,
    "fields": [
      {"name": "current", "id": 1, "type": "int32"},
      {"name": "color", "id": 2, "type": "demo.Color"},
      {"name": "tags", "id": 3, "type": "string", "container": "list"},
      {"name": "origin", "id": 4, "type": "demo.Vec"},
      {"name": "target", "id": 5, "type": "EntityId", "container": "option"},
      {"name": "scores", "id": 6, "type": "int64", "container": "map", "key_type": "string"},
      {"name": "tree", "id": 7, "type": "demo.Node"}
    ]
  }]
}`

func loadDemo(t *testing.T) (*bundle.Schema, *bundle.Component) {
	t.Helper()
	s, err := bundle.Parse([]byte(demoBundle))
	require.NoError(t, err)
	c, ok := s.Component("demo.Health")
	require.True(t, ok)
	return s, c
}

func roundTrip(t *testing.T, rt *local.Runtime, c *bundle.Component, v any) bundle.Record {
	t.Helper()
	data := schema.NewComponentData(rt, c.ID())
	defer data.Close()
	require.NoError(t, c.EncodeData(v, data.Fields()))
	return c.DecodeData(data.Fields()).(bundle.Record)
}

func TestComponent_RoundTrip(t *testing.T) {
	rt := local.New()
	defer rt.Close()
	_, c := loadDemo(t)

	got := roundTrip(t, rt, c, map[string]any{
		"current": 5,
		"color":   "GREEN",
		"tags":    []string{"a", "b"},
		"origin":  map[string]any{"x": 1.5},
		"target":  7,
		"scores":  map[string]int{"b": 2, "a": 1},
		"tree": bundle.Record{
			"label":    "root",
			"children": []any{bundle.Record{"label": "leaf"}},
		},
	})

	assert.Equal(t, bundle.Record{
		"current": int32(5),
		"color":   uint32(1),
		"tags":    []any{"a", "b"},
		"origin":  bundle.Record{"x": 1.5, "y": 0.0},
		"target":  int64(7),
		"scores":  []bundle.Entry{{Key: "a", Value: int64(1)}, {Key: "b", Value: int64(2)}},
		"tree": bundle.Record{
			"label":    "root",
			"children": []any{bundle.Record{"label": "leaf", "children": []any{}}},
		},
	}, got)
}

func TestComponent_Defaults(t *testing.T) {
	rt := local.New()
	defer rt.Close()
	_, c := loadDemo(t)

	got := roundTrip(t, rt, c, bundle.Record{})
	assert.Equal(t, c.Defaults(), got)
	assert.Equal(t, int32(0), got["current"])
	assert.Equal(t, []any{}, got["tags"])
	assert.Nil(t, got["target"])
	assert.Equal(t, []bundle.Entry{}, got["scores"])
	assert.Equal(t, bundle.Record{"label": "", "children": []any{}}, got["tree"])
}

func TestComponent_JSONNumbers(t *testing.T) {
	rt := local.New()
	defer rt.Close()
	_, c := loadDemo(t)

	dec := json.NewDecoder(bytes.NewReader([]byte(`{"current": 12, "origin": {"x": 2, "y": -0.5}, "scores": {"k": 3}}`)))
	dec.UseNumber()
	var in map[string]any
	require.NoError(t, dec.Decode(&in))

	got := roundTrip(t, rt, c, in)
	assert.Equal(t, int32(12), got["current"])
	assert.Equal(t, bundle.Record{"x": 2.0, "y": -0.5}, got["origin"])
	assert.Equal(t, []bundle.Entry{{Key: "k", Value: int64(3)}}, got["scores"])
}

func TestComponent_JSONLargeUnsigned(t *testing.T) {
	rt := local.New()
	defer rt.Close()
	s, err := bundle.Parse([]byte(`{"components": [{"name": "demo.Counter", "id": 1001, "fields": [
		{"name": "big", "type": "uint64", "id": 1},
		{"name": "bits", "type": "fixed64", "id": 2},
		{"name": "signed", "type": "int64", "id": 3}
	]}]}`))
	require.NoError(t, err)
	c, ok := s.Component("demo.Counter")
	require.True(t, ok)

	decode := func(doc string) map[string]any {
		dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
		dec.UseNumber()
		var in map[string]any
		require.NoError(t, dec.Decode(&in))
		return in
	}

	got := roundTrip(t, rt, c, decode(`{"big": 9223372036854775809, "bits": 18446744073709551615}`))
	assert.Equal(t, uint64(1)<<63+1, got["big"])
	assert.Equal(t, uint64(math.MaxUint64), got["bits"])

	data := schema.NewComponentData(rt, c.ID())
	defer data.Close()
	err = c.EncodeData(decode(`{"signed": 9223372036854775808}`), data.Fields())
	assert.ErrorIs(t, err, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).Build())
}

func TestComponent_EncodeErrors(t *testing.T) {
	rt := local.New()
	defer rt.Close()
	_, c := loadDemo(t)

	tests := []struct {
		name  string
		value any
		kind  errors.Kind
	}{
		{"not a record", 5, errors.KindTypeMismatch},
		{"unknown field", bundle.Record{"mana": 1}, errors.KindInvalidData},
		{"string for int", bundle.Record{"current": "x"}, errors.KindTypeMismatch},
		{"out of range", bundle.Record{"current": int64(1) << 40}, errors.KindTypeMismatch},
		{"fractional int", bundle.Record{"current": 1.5}, errors.KindTypeMismatch},
		{"unknown enum name", bundle.Record{"color": "BLUE"}, errors.KindInvalidData},
		{"unknown enum value", bundle.Record{"color": 9}, errors.KindInvalidData},
		{"list element", bundle.Record{"tags": []any{"a", 1}}, errors.KindTypeMismatch},
		{"nested field", bundle.Record{"origin": bundle.Record{"z": 1}}, errors.KindInvalidData},
		{"map key", bundle.Record{"scores": map[int]int{1: 1}}, errors.KindTypeMismatch},
		{"duplicate map key", bundle.Record{"scores": []bundle.Entry{{Key: "a", Value: 1}, {Key: "a", Value: 2}}}, errors.KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := schema.NewComponentData(rt, c.ID())
			defer data.Close()

			err := c.EncodeData(tt.value, data.Fields())
			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errors.PhaseEncode, e.Phase)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Empty(t, data.Fields().FieldIDs(), "nothing written on error")
		})
	}
}

func TestComponent_UpdateMergeClears(t *testing.T) {
	rt := local.New()
	defer rt.Close()
	s, c := loadDemo(t)
	reg, err := s.Registry(improbable.Vtables()...)
	require.NoError(t, err)

	e := entity.New(reg)
	defer e.Close()
	require.NoError(t, e.Add(rt, c, bundle.Record{
		"current": 5,
		"tags":    []any{"a"},
		"target":  3,
	}))

	upd := schema.NewComponentUpdate(rt, c.ID())
	defer upd.Close()
	require.NoError(t, c.EncodeUpdate(bundle.Update{
		Fields:  bundle.Record{"current": 9, "tags": []string{}},
		Cleared: []string{"target"},
	}, upd))

	decoded := c.DecodeUpdate(upd).(bundle.Update)
	assert.Equal(t, bundle.Record{"current": int32(9)}, decoded.Fields)
	assert.Equal(t, []string{"tags", "target"}, decoded.Cleared)

	before, err := e.Decode(c.ID())
	require.NoError(t, err)
	merged, err := c.Apply(before, decoded)
	require.NoError(t, err)
	assert.Equal(t, int32(5), before.(bundle.Record)["current"], "Apply leaves the input alone")

	require.NoError(t, e.Apply(upd))
	after, err := e.Decode(c.ID())
	require.NoError(t, err)
	assert.Equal(t, after, merged, "native and Go merges agree")

	rec := after.(bundle.Record)
	assert.Equal(t, int32(9), rec["current"])
	assert.Equal(t, []any{}, rec["tags"])
	assert.Nil(t, rec["target"])
}

func TestComponent_UpdateErrors(t *testing.T) {
	rt := local.New()
	defer rt.Close()
	_, c := loadDemo(t)

	upd := schema.NewComponentUpdate(rt, c.ID())
	defer upd.Close()

	assert.Error(t, c.EncodeUpdate(bundle.Record{}, upd))
	assert.Error(t, c.EncodeUpdate(bundle.Update{Cleared: []string{"current"}}, upd))
	assert.Error(t, c.EncodeUpdate(bundle.Update{Cleared: []string{"nope"}}, upd))

	var rec bundle.Record
	require.NoError(t, c.Merge(&rec, &bundle.Update{Fields: bundle.Record{"current": int32(2)}}))
	assert.Equal(t, int32(2), rec["current"])
	assert.Equal(t, []any{}, rec["tags"], "merging into nil starts from defaults")
	assert.Error(t, c.Merge(rec, bundle.Update{}))
}

func TestCompile_Errors(t *testing.T) {
	field := func(name string, id uint32, typ string) bundle.FieldDef {
		return bundle.FieldDef{Name: name, ID: id, Type: typ}
	}
	comp := func(fields ...bundle.FieldDef) []bundle.ComponentDef {
		return []bundle.ComponentDef{{Name: "demo.C", ID: 1000, Fields: fields}}
	}

	tests := []struct {
		name string
		file bundle.File
	}{
		{"component id 0", bundle.File{Components: []bundle.ComponentDef{{Name: "demo.C"}}}},
		{"duplicate component id", bundle.File{Components: []bundle.ComponentDef{
			{Name: "demo.A", ID: 1000}, {Name: "demo.B", ID: 1000},
		}}},
		{"duplicate name", bundle.File{
			Types:      []bundle.TypeDef{{Name: "demo.C"}},
			Components: comp(),
		}},
		{"primitive name", bundle.File{Types: []bundle.TypeDef{{Name: "int32"}}}},
		{"unknown type", bundle.File{Components: comp(field("a", 1, "demo.Missing"))}},
		{"field id 0", bundle.File{Components: comp(field("a", 0, "int32"))}},
		{"duplicate field id", bundle.File{Components: comp(field("a", 1, "int32"), field("b", 1, "int32"))}},
		{"duplicate field name", bundle.File{Components: comp(field("a", 1, "int32"), field("a", 2, "int32"))}},
		{"unknown container", bundle.File{Components: comp(bundle.FieldDef{Name: "a", ID: 1, Type: "int32", Container: "set"})}},
		{"key type on list", bundle.File{Components: comp(bundle.FieldDef{Name: "a", ID: 1, Type: "int32", Container: "list", KeyType: "string"})}},
		{"float map key", bundle.File{Components: comp(bundle.FieldDef{Name: "a", ID: 1, Type: "int32", Container: "map", KeyType: "float"})}},
		{"empty enum", bundle.File{Enums: []bundle.EnumDef{{Name: "demo.E"}}}},
		{"duplicate enum value", bundle.File{Enums: []bundle.EnumDef{{Name: "demo.E", Values: []bundle.EnumValue{
			{Name: "A", Value: 1}, {Name: "B", Value: 1},
		}}}}},
		{"cycle by value", bundle.File{Types: []bundle.TypeDef{
			{Name: "demo.A", Fields: []bundle.FieldDef{field("b", 1, "demo.B")}},
			{Name: "demo.B", Fields: []bundle.FieldDef{field("a", 1, "demo.A")}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bundle.Compile(tt.file)
			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errors.PhaseLoad, e.Phase)
		})
	}

	_, err := bundle.Compile(bundle.File{Types: []bundle.TypeDef{
		{Name: "demo.List", Fields: []bundle.FieldDef{{Name: "next", ID: 1, Type: "demo.List", Container: "option"}}},
	}})
	assert.NoError(t, err, "recursion through an option is allowed")
}

func TestParse_Errors(t *testing.T) {
	_, err := bundle.Parse([]byte(`{"components": [], "extra": 1}`))
	assert.Error(t, err)

	_, err = bundle.Parse([]byte(`{`))
	assert.Error(t, err)

	_, err = bundle.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSchema_Registry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(demoBundle), 0o644))

	s, err := bundle.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "GREEN", s.EnumName("demo.Color", 1))
	assert.Empty(t, s.EnumName("demo.Color", 7))

	reg, err := s.Registry()
	require.NoError(t, err)
	vt, err := reg.LookupName("demo.Health")
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), vt.ID())
	assert.Equal(t, []string{"current", "color", "tags", "origin", "target", "scores", "tree"}, s.Components()[0].Fields())

	reserved, err := bundle.Compile(bundle.File{Components: []bundle.ComponentDef{{Name: "demo.Low", ID: 50}}})
	require.NoError(t, err)
	_, err = reserved.Registry()
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindReservedID, e.Kind)
}

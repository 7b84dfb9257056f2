package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
)

// Field containers.
const (
	Singular = ""
	List     = "list"
	Option   = "option"
	Map      = "map"
)

// File is the JSON layout of a schema bundle.
type File struct {
	Enums      []EnumDef      `json:"enums,omitempty"`
	Types      []TypeDef      `json:"types,omitempty"`
	Components []ComponentDef `json:"components"`
}

// EnumDef declares an enum.
type EnumDef struct {
	Name   string      `json:"name"`
	Values []EnumValue `json:"values"`
}

// EnumValue is one named enum value.
type EnumValue struct {
	Name  string `json:"name"`
	Value uint32 `json:"value"`
}

// TypeDef declares a record type.
type TypeDef struct {
	Name   string     `json:"name"`
	Fields []FieldDef `json:"fields"`
}

// ComponentDef declares a component and its data fields.
type ComponentDef struct {
	Name   string     `json:"name"`
	Fields []FieldDef `json:"fields"`
	ID     uint32     `json:"id"`
}

// FieldDef declares one field of a type or component.
type FieldDef struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Container string `json:"container,omitempty"`
	KeyType   string `json:"key_type,omitempty"`
	ID        uint32 `json:"id"`
}

// Schema is a validated bundle.
type Schema struct {
	enums      map[string]*enumCodec
	types      map[string]*recordType
	components []*Component
}

// Load reads and validates the bundle at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("cannot read "+path, err)
	}
	return Parse(data)
}

// Parse validates a bundle held in memory. Unknown JSON keys are rejected.
func Parse(data []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Load("malformed schema bundle", err)
	}
	return Compile(f)
}

// Compile validates a bundle and builds its codecs.
func Compile(f File) (*Schema, error) {
	s := &Schema{
		enums: make(map[string]*enumCodec),
		types: make(map[string]*recordType),
	}
	names := make(map[string]struct{})
	declare := func(name string) error {
		if name == "" {
			return errors.Load("declaration without a name", nil)
		}
		if _, ok := primitives[name]; ok {
			return errors.Load(fmt.Sprintf("%s shadows a primitive type", name), nil)
		}
		if _, dup := names[name]; dup {
			return errors.Load(fmt.Sprintf("%s declared twice", name), nil)
		}
		names[name] = struct{}{}
		return nil
	}

	for _, e := range f.Enums {
		if err := declare(e.Name); err != nil {
			return nil, err
		}
		ec, err := newEnum(e)
		if err != nil {
			return nil, err
		}
		s.enums[e.Name] = ec
	}
	// Record shells first so fields may reference any type
	for _, t := range f.Types {
		if err := declare(t.Name); err != nil {
			return nil, err
		}
		s.types[t.Name] = newRecordType(t.Name)
	}
	for _, t := range f.Types {
		if err := s.resolve(s.types[t.Name], t.Fields); err != nil {
			return nil, err
		}
	}
	if err := s.checkCycles(); err != nil {
		return nil, err
	}

	ids := make(map[uint32]string)
	for _, c := range f.Components {
		if err := declare(c.Name); err != nil {
			return nil, err
		}
		if c.ID == 0 {
			return nil, errors.Load(c.Name+": component id 0 is invalid", nil)
		}
		if other, dup := ids[c.ID]; dup {
			return nil, errors.Load(fmt.Sprintf("%s: component id %d already used by %s", c.Name, c.ID, other), nil)
		}
		ids[c.ID] = c.Name

		rec := newRecordType(c.Name)
		if err := s.resolve(rec, c.Fields); err != nil {
			return nil, err
		}
		s.components = append(s.components, &Component{id: c.ID, rec: rec})
	}
	return s, nil
}

func (s *Schema) resolve(rec *recordType, defs []FieldDef) error {
	for _, d := range defs {
		where := rec.name + "." + d.Name
		switch {
		case d.Name == "":
			return errors.Load(rec.name+": field without a name", nil)
		case d.ID == 0:
			return errors.Load(where+": field id 0 is invalid", nil)
		case rec.byName[d.Name] != nil:
			return errors.Load(where+": field declared twice", nil)
		case slices.ContainsFunc(rec.fields, func(f *field) bool { return f.id == native.FieldID(d.ID) }):
			return errors.Load(fmt.Sprintf("%s: field id %d used twice", where, d.ID), nil)
		}

		elem, err := s.codec(d.Type)
		if err != nil {
			return errors.Load(where, err)
		}
		f := &field{name: d.Name, id: native.FieldID(d.ID), container: d.Container, elem: elem}
		switch d.Container {
		case Singular, List, Option:
			if d.KeyType != "" {
				return errors.Load(where+": key_type is only valid on maps", nil)
			}
		case Map:
			key, err := s.codec(d.KeyType)
			if err != nil {
				return errors.Load(where+" key", err)
			}
			if !key.mapKey {
				return errors.Load(fmt.Sprintf("%s: %s cannot be a map key", where, d.KeyType), nil)
			}
			f.key = key
			f.entry = newEntryKind(key, elem)
		default:
			return errors.Load(fmt.Sprintf("%s: unknown container %q", where, d.Container), nil)
		}
		rec.add(f)
	}
	return nil
}

func (s *Schema) codec(typ string) (*codec, error) {
	if p, ok := primitives[typ]; ok {
		return p, nil
	}
	if e, ok := s.enums[typ]; ok {
		return e.codec, nil
	}
	if t, ok := s.types[typ]; ok {
		return t.codec, nil
	}
	return nil, errors.NotFound(errors.PhaseLoad, "type", typ)
}

// checkCycles rejects types that contain themselves through singular
// fields; their default value would be infinite.
func (s *Schema) checkCycles() error {
	state := make(map[*recordType]uint8)
	var visit func(t *recordType) error
	visit = func(t *recordType) error {
		switch state[t] {
		case 1:
			return errors.Load(t.name+": type contains itself by value", nil)
		case 2:
			return nil
		}
		state[t] = 1
		for _, f := range t.fields {
			if f.container == Singular && f.elem.record != nil {
				if err := visit(f.elem.record); err != nil {
					return err
				}
			}
		}
		state[t] = 2
		return nil
	}
	for _, name := range slices.Sorted(maps.Keys(s.types)) {
		if err := visit(s.types[name]); err != nil {
			return err
		}
	}
	return nil
}

// Components returns the components in declaration order.
func (s *Schema) Components() []*Component {
	return slices.Clone(s.components)
}

// Component returns the component with the given name.
func (s *Schema) Component(name string) (*Component, bool) {
	for _, c := range s.components {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// EnumName returns the name of an enum value, or "" when it has none.
func (s *Schema) EnumName(enum string, v uint32) string {
	e, ok := s.enums[enum]
	if !ok {
		return ""
	}
	return e.names[v]
}

// Vtables returns a vtable per component.
func (s *Schema) Vtables() []component.Vtable {
	vts := make([]component.Vtable, len(s.components))
	for i, c := range s.components {
		vts[i] = c
	}
	return vts
}

// Registry builds a registry of the bundle's components plus extra.
func (s *Schema) Registry(extra ...component.Vtable) (*component.Registry, error) {
	return component.NewRegistry(append(s.Vtables(), extra...)...)
}

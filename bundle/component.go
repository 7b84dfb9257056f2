package bundle

import (
	"fmt"
	"maps"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/schema"
)

// Update is the dynamic update of a bundle component. Fields replace the
// named fields; Cleared empties list, option and map fields. A list or map
// field set to an empty value is cleared as well.
type Update struct {
	Fields  Record
	Cleared []string
}

// Component is a component declared in a bundle. It implements
// component.Vtable over Record values and Update updates.
type Component struct {
	rec *recordType
	id  uint32
}

var _ component.Vtable = (*Component)(nil)

func (c *Component) ID() uint32     { return c.id }
func (c *Component) Name() string   { return c.rec.name }
func (c *Component) Standard() bool { return false }

// Fields returns the field names in declaration order.
func (c *Component) Fields() []string {
	names := make([]string, len(c.rec.fields))
	for i, f := range c.rec.fields {
		names[i] = f.name
	}
	return names
}

// Defaults returns the value every field decodes to when absent.
func (c *Component) Defaults() Record {
	return c.rec.defaults()
}

func (c *Component) EncodeData(v any, o schema.Object) error {
	if p, ok := v.(*Record); ok && p != nil {
		v = *p
	}
	rec, err := c.rec.check([]string{c.rec.name}, v)
	if err != nil {
		return err
	}
	c.rec.encode(rec, o)
	return nil
}

func (c *Component) DecodeData(o schema.Object) any {
	return c.rec.decode(o)
}

func (c *Component) checkUpdate(v any) (Update, error) {
	var u Update
	switch x := v.(type) {
	case Update:
		u = x
	case *Update:
		if x == nil {
			return Update{}, errors.TypeMismatch(errors.PhaseEncode, c.rec.name, "bundle.Update", v)
		}
		u = *x
	default:
		return Update{}, errors.TypeMismatch(errors.PhaseEncode, c.rec.name, "bundle.Update", v)
	}

	fields, err := c.rec.check([]string{c.rec.name}, map[string]any(u.Fields))
	if err != nil {
		return Update{}, err
	}
	for _, name := range u.Cleared {
		f, ok := c.rec.byName[name]
		if !ok {
			return Update{}, errors.InvalidData(errors.PhaseEncode, []string{c.rec.name, name},
				fmt.Sprintf("%s has no field %q", c.rec.name, name))
		}
		if f.container == Singular {
			return Update{}, errors.InvalidData(errors.PhaseEncode, []string{c.rec.name, name},
				"only list, option and map fields can be cleared")
		}
	}
	return Update{Fields: fields, Cleared: u.Cleared}, nil
}

func (c *Component) EncodeUpdate(v any, upd *schema.ComponentUpdate) error {
	u, err := c.checkUpdate(v)
	if err != nil {
		return err
	}
	o := upd.Fields()
	for _, f := range c.rec.fields {
		val, ok := u.Fields[f.name]
		if !ok {
			continue
		}
		if isEmpty(val) && f.container != Singular {
			upd.AddClearedField(f.id)
			continue
		}
		f.encode(o, val)
	}
	for _, name := range u.Cleared {
		upd.AddClearedField(c.rec.byName[name].id)
	}
	return nil
}

func (c *Component) DecodeUpdate(upd *schema.ComponentUpdate) any {
	o := upd.Fields()
	u := Update{Fields: make(Record)}
	for _, f := range c.rec.fields {
		switch {
		case f.present(o):
			u.Fields[f.name] = f.decode(o)
		case upd.IsCleared(f.id):
			u.Cleared = append(u.Cleared, f.name)
		}
	}
	return u
}

func (c *Component) Merge(dst any, v any) error {
	p, ok := dst.(*Record)
	if !ok || p == nil {
		return errors.TypeMismatch(errors.PhaseDecode, c.rec.name, "*bundle.Record", dst)
	}
	u, ok := v.(Update)
	if !ok {
		if up, isPtr := v.(*Update); isPtr && up != nil {
			u, ok = *up, true
		}
	}
	if !ok {
		return errors.TypeMismatch(errors.PhaseDecode, c.rec.name, "bundle.Update", v)
	}
	if *p == nil {
		*p = c.rec.defaults()
	}
	c.merge(*p, u)
	return nil
}

func (c *Component) Apply(v any, u any) (any, error) {
	var rec Record
	switch x := v.(type) {
	case Record:
		rec = maps.Clone(x)
	case *Record:
		if x != nil {
			rec = maps.Clone(*x)
		}
	default:
		return nil, errors.TypeMismatch(errors.PhaseDecode, c.rec.name, "bundle.Record", v)
	}
	if err := c.Merge(&rec, u); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Component) merge(rec Record, u Update) {
	maps.Copy(rec, u.Fields)
	for _, name := range u.Cleared {
		if f, ok := c.rec.byName[name]; ok {
			rec[name] = f.empty()
		}
	}
}

func (c *Component) String() string {
	return fmt.Sprintf("%s(%d)", c.rec.name, c.id)
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []any:
		return len(x) == 0
	case []Entry:
		return len(x) == 0
	}
	return false
}

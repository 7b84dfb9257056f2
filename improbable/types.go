package improbable

import (
	"github.com/wippyai/worker-sdk/schema"
)

// Coordinates is a point in world space.
type Coordinates struct {
	X, Y, Z float64
}

var coordinatesType = schema.TypeFuncs[Coordinates]{
	EncodeFunc: func(c Coordinates, o schema.Object) {
		schema.Add(o.Field(1), schema.Double, c.X)
		schema.Add(o.Field(2), schema.Double, c.Y)
		schema.Add(o.Field(3), schema.Double, c.Z)
	},
	DecodeFunc: func(o schema.Object) Coordinates {
		return Coordinates{
			X: schema.Get(o.Field(1), schema.Double),
			Y: schema.Get(o.Field(2), schema.Double),
			Z: schema.Get(o.Field(3), schema.Double),
		}
	},
}

// CoordinatesKind stores Coordinates as a nested object.
var CoordinatesKind = schema.ObjectKind[Coordinates]("improbable.Coordinates", coordinatesType)

// WorkerAttributeSet is matched by a worker holding every attribute.
type WorkerAttributeSet struct {
	Attribute []string
}

var attributeSetType = schema.TypeFuncs[WorkerAttributeSet]{
	EncodeFunc: func(s WorkerAttributeSet, o schema.Object) {
		schema.AddList(o.Field(1), schema.String, s.Attribute)
	},
	DecodeFunc: func(o schema.Object) WorkerAttributeSet {
		return WorkerAttributeSet{Attribute: schema.GetList(o.Field(1), schema.String)}
	},
}

// WorkerAttributeSetKind stores a WorkerAttributeSet as a nested object.
var WorkerAttributeSetKind = schema.ObjectKind[WorkerAttributeSet]("improbable.WorkerAttributeSet", attributeSetType)

// WorkerRequirementSet is matched by a worker matching any attribute set.
type WorkerRequirementSet struct {
	AttributeSet []WorkerAttributeSet
}

var requirementSetType = schema.TypeFuncs[WorkerRequirementSet]{
	EncodeFunc: func(s WorkerRequirementSet, o schema.Object) {
		schema.AddList(o.Field(1), WorkerAttributeSetKind, s.AttributeSet)
	},
	DecodeFunc: func(o schema.Object) WorkerRequirementSet {
		return WorkerRequirementSet{AttributeSet: schema.GetList(o.Field(1), WorkerAttributeSetKind)}
	},
}

// WorkerRequirementSetKind stores a WorkerRequirementSet as a nested object.
var WorkerRequirementSetKind = schema.ObjectKind[WorkerRequirementSet]("improbable.WorkerRequirementSet", requirementSetType)

// RequireAny matches workers holding any one of attrs.
func RequireAny(attrs ...string) WorkerRequirementSet {
	sets := make([]WorkerAttributeSet, len(attrs))
	for i, a := range attrs {
		sets[i] = WorkerAttributeSet{Attribute: []string{a}}
	}
	return WorkerRequirementSet{AttributeSet: sets}
}

// RequireAll matches workers holding every one of attrs.
func RequireAll(attrs ...string) WorkerRequirementSet {
	return WorkerRequirementSet{AttributeSet: []WorkerAttributeSet{{Attribute: attrs}}}
}

// Attributes returns the attributes of every set in order.
func (s WorkerRequirementSet) Attributes() []string {
	var out []string
	for _, set := range s.AttributeSet {
		out = append(out, set.Attribute...)
	}
	return out
}

// Matches reports whether a worker with the given attributes satisfies s.
func (s WorkerRequirementSet) Matches(workerAttrs []string) bool {
	have := make(map[string]struct{}, len(workerAttrs))
	for _, a := range workerAttrs {
		have[a] = struct{}{}
	}
	for _, set := range s.AttributeSet {
		ok := true
		for _, a := range set.Attribute {
			if _, found := have[a]; !found {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

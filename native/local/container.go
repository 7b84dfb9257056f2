package local

import (
	"slices"

	"github.com/wippyai/worker-sdk/native"
)

// container owns the root schema object of one schema type instance.
type container struct {
	cleared     []native.FieldID
	fields      native.Ptr
	events      native.Ptr
	componentID uint32
	kind        native.ObjectKind
}

type objectABI struct {
	r *Runtime
}

func (a objectABI) Create(kind native.ObjectKind, componentID uint32) native.Ptr {
	return a.r.newContainer(kind, componentID)
}

func (r *Runtime) newContainer(kind native.ObjectKind, componentID uint32) native.Ptr {
	c := &container{
		kind:        kind,
		componentID: componentID,
		fields:      r.newObject(),
	}
	if kind == native.KindComponentUpdate {
		c.events = r.newObject()
	}
	return r.alloc(tagContainer, c)
}

func (a objectABI) Destroy(p native.Ptr) {
	if a.r.closed.Load() {
		return
	}
	a.r.freeContainer(p)
}

func (r *Runtime) freeContainer(p native.Ptr) {
	c := r.free(p, tagContainer, "container").(*container)
	r.freeObject(c.fields)
	if c.events != 0 {
		r.freeObject(c.events)
	}
}

func (a objectABI) Copy(p native.Ptr) native.Ptr {
	return a.r.copyContainer(p)
}

func (r *Runtime) copyContainer(p native.Ptr) native.Ptr {
	src := r.container(p)
	dst := &container{
		kind:        src.kind,
		componentID: src.componentID,
		fields:      r.copyObject(src.fields),
		cleared:     slices.Clone(src.cleared),
	}
	if src.events != 0 {
		dst.events = r.copyObject(src.events)
	}
	return r.alloc(tagContainer, dst)
}

func (r *Runtime) container(p native.Ptr) *container {
	return lookup[*container](r, p, tagContainer, "container")
}

func (a objectABI) Kind(p native.Ptr) native.ObjectKind {
	return a.r.container(p).kind
}

func (a objectABI) ComponentID(p native.Ptr) uint32 {
	return a.r.container(p).componentID
}

func (a objectABI) Fields(p native.Ptr) native.Ptr {
	return a.r.container(p).fields
}

func (a objectABI) Events(p native.Ptr) native.Ptr {
	c := a.r.container(p)
	if c.events == 0 {
		// Non-update containers expose an empty scratch events object
		c.events = a.r.newObject()
	}
	return c.events
}

func (a objectABI) AddClearedField(update native.Ptr, field native.FieldID) {
	checkField(field)
	c := a.r.container(update)
	if !slices.Contains(c.cleared, field) {
		c.cleared = append(c.cleared, field)
	}
}

func (a objectABI) ClearedFields(update native.Ptr) []native.FieldID {
	return slices.Clone(a.r.container(update).cleared)
}

func (a objectABI) ApplyUpdate(data native.Ptr, update native.Ptr) {
	a.r.applyUpdate(data, update)
}

// applyUpdate empties the cleared fields of data, then replaces each field
// that update carries.
func (r *Runtime) applyUpdate(data native.Ptr, update native.Ptr) {
	d := r.container(data)
	u := r.container(update)
	dst := r.object(d.fields)
	src := r.object(u.fields)

	for _, id := range u.cleared {
		r.releaseChildren(dst.removeField(id), nil)
	}
	for _, id := range src.fieldIDs() {
		r.releaseChildren(dst.removeField(id), nil)
		for i := range src.values {
			v := &src.values[i]
			if v.id != id {
				continue
			}
			nv := value{id: v.id, wt: v.wt, num: v.num}
			if v.wt == native.WireBytes {
				nv.raw = append([]byte(nil), r.bytesOf(v)...)
			}
			dst.append(nv)
		}
	}
}

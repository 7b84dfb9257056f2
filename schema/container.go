package schema

import (
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/handle"
	"github.com/wippyai/worker-sdk/native"
)

// Container owns one native schema container and its root object.
type Container struct {
	owned       *handle.Owned
	rt          native.Runtime
	kind        native.ObjectKind
	componentID uint32
}

func newContainer(rt native.Runtime, kind native.ObjectKind, componentID uint32) Container {
	return Container{
		owned:       handle.New(handle.Container(rt.Objects(), kind, componentID)),
		rt:          rt,
		kind:        kind,
		componentID: componentID,
	}
}

// adoptContainer takes ownership of p after checking its object kind.
func adoptContainer(rt native.Runtime, want native.ObjectKind, p native.Ptr) Container {
	if p.IsNull() {
		panic(errors.Fatal(errors.PhaseNative, "cannot take ownership of null %s", want))
	}
	objs := rt.Objects()
	if got := objs.Kind(p); got != want {
		panic(errors.Fatal(errors.PhaseNative, "pointer %#x is %s, not %s", uintptr(p), got, want))
	}
	id := objs.ComponentID(p)
	return Container{
		owned:       handle.FromRaw(handle.Container(objs, want, id), p),
		rt:          rt,
		kind:        want,
		componentID: id,
	}
}

func (c Container) copy() Container {
	return Container{
		owned:       c.owned.Copy(),
		rt:          c.rt,
		kind:        c.kind,
		componentID: c.componentID,
	}
}

// ObjectKind returns the native kind of the container.
func (c Container) ObjectKind() native.ObjectKind {
	return c.kind
}

// ComponentID returns the component the container belongs to, or 0 for
// generic data.
func (c Container) ComponentID() uint32 {
	return c.componentID
}

// Runtime returns the native runtime the container was allocated by.
func (c Container) Runtime() native.Runtime {
	return c.rt
}

// Fields returns the root schema object.
func (c Container) Fields() Object {
	var fields native.Ptr
	c.owned.With(func(p native.Ptr) {
		fields = c.rt.Objects().Fields(p)
	})
	return viewOf(c, fields)
}

// Acquire grants exclusive access to the container pointer until release
// is called.
func (c Container) Acquire() (native.Ptr, func()) {
	return c.owned.Acquire()
}

// With calls fn with exclusive access to the container pointer.
func (c Container) With(fn func(native.Ptr)) {
	c.owned.With(fn)
}

// IntoRaw gives the container to the caller without destroying it.
func (c Container) IntoRaw() native.Ptr {
	return c.owned.IntoRaw()
}

// Released reports whether the container was closed or given away.
func (c Container) Released() bool {
	return c.owned.Released()
}

// Close destroys the container. Later calls do nothing.
func (c Container) Close() error {
	return c.owned.Close()
}

// GenericData is a free-standing schema object.
type GenericData struct {
	Container
}

// NewGenericData allocates an empty generic data object.
func NewGenericData(rt native.Runtime) *GenericData {
	return &GenericData{newContainer(rt, native.KindGenericData, 0)}
}

// Parse decodes serialized schema object bytes into new generic data.
func Parse(rt native.Runtime, data []byte) (*GenericData, error) {
	d := NewGenericData(rt)
	if err := d.Fields().Merge(data); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Copy returns an independent deep copy.
func (d *GenericData) Copy() *GenericData {
	return &GenericData{d.copy()}
}

// ComponentData is the full state of one component.
type ComponentData struct {
	Container
}

// NewComponentData allocates empty data for component id.
func NewComponentData(rt native.Runtime, componentID uint32) *ComponentData {
	return &ComponentData{newContainer(rt, native.KindComponentData, componentID)}
}

// ComponentDataFromRaw takes ownership of a component data pointer.
func ComponentDataFromRaw(rt native.Runtime, p native.Ptr) *ComponentData {
	return &ComponentData{adoptContainer(rt, native.KindComponentData, p)}
}

// Copy returns an independent deep copy.
func (d *ComponentData) Copy() *ComponentData {
	return &ComponentData{d.copy()}
}

// Apply merges update into the data: cleared fields are emptied, then every
// field the update carries replaces the stored one.
func (d *ComponentData) Apply(u *ComponentUpdate) {
	d.owned.With(func(data native.Ptr) {
		u.owned.With(func(update native.Ptr) {
			d.rt.Objects().ApplyUpdate(data, update)
		})
	})
}

// ComponentUpdate is a partial change to one component.
type ComponentUpdate struct {
	Container
}

// NewComponentUpdate allocates an empty update for component id.
func NewComponentUpdate(rt native.Runtime, componentID uint32) *ComponentUpdate {
	return &ComponentUpdate{newContainer(rt, native.KindComponentUpdate, componentID)}
}

// ComponentUpdateFromRaw takes ownership of a component update pointer.
func ComponentUpdateFromRaw(rt native.Runtime, p native.Ptr) *ComponentUpdate {
	return &ComponentUpdate{adoptContainer(rt, native.KindComponentUpdate, p)}
}

// Copy returns an independent deep copy.
func (u *ComponentUpdate) Copy() *ComponentUpdate {
	return &ComponentUpdate{u.copy()}
}

// Events returns the object carrying the events of the update.
func (u *ComponentUpdate) Events() Object {
	var events native.Ptr
	u.owned.With(func(p native.Ptr) {
		events = u.rt.Objects().Events(p)
	})
	return viewOf(u.Container, events)
}

// AddClearedField marks a field as emptied by the update. Clearing is how an
// update sets a list, map or option to empty.
func (u *ComponentUpdate) AddClearedField(id native.FieldID) {
	u.owned.With(func(p native.Ptr) {
		u.rt.Objects().AddClearedField(p, id)
	})
}

// ClearedFields returns the fields emptied by the update.
func (u *ComponentUpdate) ClearedFields() []native.FieldID {
	var ids []native.FieldID
	u.owned.With(func(p native.Ptr) {
		ids = u.rt.Objects().ClearedFields(p)
	})
	return ids
}

// IsCleared reports whether id is listed as cleared.
func (u *ComponentUpdate) IsCleared(id native.FieldID) bool {
	for _, c := range u.ClearedFields() {
		if c == id {
			return true
		}
	}
	return false
}

// CommandRequest is the payload of a command sent to a component.
type CommandRequest struct {
	Container
}

// NewCommandRequest allocates an empty request for component id.
func NewCommandRequest(rt native.Runtime, componentID uint32) *CommandRequest {
	return &CommandRequest{newContainer(rt, native.KindCommandRequest, componentID)}
}

// CommandRequestFromRaw takes ownership of a command request pointer.
func CommandRequestFromRaw(rt native.Runtime, p native.Ptr) *CommandRequest {
	return &CommandRequest{adoptContainer(rt, native.KindCommandRequest, p)}
}

// CommandResponse is the payload answering a command request.
type CommandResponse struct {
	Container
}

// NewCommandResponse allocates an empty response for component id.
func NewCommandResponse(rt native.Runtime, componentID uint32) *CommandResponse {
	return &CommandResponse{newContainer(rt, native.KindCommandResponse, componentID)}
}

// CommandResponseFromRaw takes ownership of a command response pointer.
func CommandResponseFromRaw(rt native.Runtime, p native.Ptr) *CommandResponse {
	return &CommandResponse{adoptContainer(rt, native.KindCommandResponse, p)}
}

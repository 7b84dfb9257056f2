package handle

import (
	"fmt"

	"github.com/wippyai/worker-sdk/native"
)

// Kind is the create/destroy/copy function triple of one native object kind.
type Kind interface {
	Name() string
	Create() native.Ptr
	Destroy(p native.Ptr)
	Copy(p native.Ptr) native.Ptr
}

// Funcs adapts plain functions to Kind.
type Funcs struct {
	CreateFunc  func() native.Ptr
	DestroyFunc func(native.Ptr)
	CopyFunc    func(native.Ptr) native.Ptr
	KindName    string
}

func (f Funcs) Name() string { return f.KindName }

func (f Funcs) Create() native.Ptr { return f.CreateFunc() }

func (f Funcs) Destroy(p native.Ptr) { f.DestroyFunc(p) }

func (f Funcs) Copy(p native.Ptr) native.Ptr { return f.CopyFunc(p) }

// containerKind is the triple of a schema container for one component id.
type containerKind struct {
	objs        native.ObjectABI
	componentID uint32
	kind        native.ObjectKind
}

// Container returns the Kind of schema containers of the given object kind.
// componentID is ignored for generic data.
func Container(objs native.ObjectABI, kind native.ObjectKind, componentID uint32) Kind {
	return containerKind{objs: objs, kind: kind, componentID: componentID}
}

func (k containerKind) Name() string {
	if k.kind == native.KindGenericData {
		return k.kind.String()
	}
	return fmt.Sprintf("%s %d", k.kind, k.componentID)
}

func (k containerKind) Create() native.Ptr {
	return k.objs.Create(k.kind, k.componentID)
}

func (k containerKind) Destroy(p native.Ptr) {
	k.objs.Destroy(p)
}

func (k containerKind) Copy(p native.Ptr) native.Ptr {
	return k.objs.Copy(p)
}

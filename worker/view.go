package worker

import (
	"maps"
	"slices"
	"sync"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/errors"
)

// View is the worker's picture of the entities it can see, maintained from
// op lists. Component values are the decoded Go values of the registry.
type View struct {
	reg        *component.Registry
	entities   map[int64]map[uint32]any
	authority  map[int64]map[uint32]Authority
	disconnect *DisconnectOp
	mu         sync.RWMutex
}

// NewView returns an empty view that merges updates with reg.
func NewView(reg *component.Registry) *View {
	return &View{
		reg:       reg,
		entities:  make(map[int64]map[uint32]any),
		authority: make(map[int64]map[uint32]Authority),
	}
}

// Apply folds the ops of l into the view. Ops that could not be decoded or
// merged are skipped; their errors are returned in order.
func (v *View) Apply(l *OpList) []error {
	v.mu.Lock()
	defer v.mu.Unlock()

	var errs []error
	for _, op := range l.Ops {
		if err := v.apply(op); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (v *View) apply(op Op) error {
	switch o := op.(type) {
	case DisconnectOp:
		v.disconnect = &o
	case AddEntityOp:
		if _, ok := v.entities[o.EntityID]; !ok {
			v.entities[o.EntityID] = make(map[uint32]any)
		}
	case RemoveEntityOp:
		delete(v.entities, o.EntityID)
		delete(v.authority, o.EntityID)
	case AddComponentOp:
		if o.Err != nil {
			return o.Err
		}
		comps, ok := v.entities[o.EntityID]
		if !ok {
			comps = make(map[uint32]any)
			v.entities[o.EntityID] = comps
		}
		comps[o.ComponentID] = o.Value
	case RemoveComponentOp:
		delete(v.entities[o.EntityID], o.ComponentID)
		delete(v.authority[o.EntityID], o.ComponentID)
	case AuthorityChangeOp:
		auth, ok := v.authority[o.EntityID]
		if !ok {
			auth = make(map[uint32]Authority)
			v.authority[o.EntityID] = auth
		}
		auth[o.ComponentID] = o.Authority
	case ComponentUpdateOp:
		if o.Err != nil {
			return o.Err
		}
		cur, ok := v.entities[o.EntityID][o.ComponentID]
		if !ok {
			return errors.New(errors.PhaseDecode, errors.KindNotFound).
				Value(o.EntityID).
				Detail("update for component %d of entity %d not in view", o.ComponentID, o.EntityID).
				Build()
		}
		vt, err := v.reg.Lookup(o.ComponentID)
		if err != nil {
			return err
		}
		next, err := vt.Apply(cur, o.Update)
		if err != nil {
			return err
		}
		v.entities[o.EntityID][o.ComponentID] = next
	}
	return nil
}

// Entities returns the ids of the entities in view, sorted.
func (v *View) Entities() []int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Sorted(maps.Keys(v.entities))
}

// HasEntity reports whether an entity is in view.
func (v *View) HasEntity(id int64) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.entities[id]
	return ok
}

// Component returns the current value of a component.
func (v *View) Component(entityID int64, componentID uint32) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c, ok := v.entities[entityID][componentID]
	return c, ok
}

// Authority returns the worker's authority over a component.
func (v *View) Authority(entityID int64, componentID uint32) Authority {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.authority[entityID][componentID]
}

// Disconnected returns the disconnect op seen by the view, if any.
func (v *View) Disconnected() (DisconnectOp, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.disconnect == nil {
		return DisconnectOp{}, false
	}
	return *v.disconnect, true
}

// ViewComponent returns the typed value of a def component.
func ViewComponent[T, U any](v *View, def *component.Definition[T, U], entityID int64) (T, bool) {
	var zero T
	c, ok := v.Component(entityID, def.ID)
	if !ok {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}

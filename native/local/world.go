package local

import (
	"slices"
	"sync"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
)

// world is the simulated deployment shared by every connection of a
// runtime. It owns one component data container per entity component.
type world struct {
	entities    map[int64]map[uint32]native.Ptr
	connections []native.Ptr
	mu          sync.Mutex
}

func newWorld() *world {
	return &world{entities: make(map[int64]map[uint32]native.Ptr)}
}

// LoadSnapshot seeds the simulated deployment with the entities of a
// snapshot file. Entities already present are replaced.
func (r *Runtime) LoadSnapshot(path string) error {
	s := snapshotABI{r}
	stream, msg := s.CreateInputStream(path)
	if msg != "" {
		return errors.NativeError(errors.PhaseSnapshot, "open snapshot", msg)
	}
	defer s.DestroyInputStream(stream)

	for s.HasNext(stream) {
		id, comps, msg := s.ReadEntity(stream)
		if msg != "" {
			return errors.NativeError(errors.PhaseSnapshot, "read entity", msg)
		}
		copies := make([]native.Ptr, len(comps))
		for i, c := range comps {
			copies[i] = r.copyContainer(c)
		}
		r.AddEntity(id, copies...)
	}
	return nil
}

// AddEntity places an entity in the simulated deployment, taking ownership
// of the component data containers. A later container with the same
// component id replaces an earlier one, which is freed.
func (r *Runtime) AddEntity(id int64, components ...native.Ptr) {
	w := r.world
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.entities[id]; ok {
		for _, p := range old {
			r.freeContainer(p)
		}
	}
	comps := make(map[uint32]native.Ptr, len(components))
	for _, p := range components {
		id := r.container(p).componentID
		if prev, dup := comps[id]; dup {
			r.freeContainer(prev)
		}
		comps[id] = p
	}
	w.entities[id] = comps
}

// EntityIDs returns the ids of the entities in the simulated deployment.
func (r *Runtime) EntityIDs() []int64 {
	w := r.world
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]int64, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ComponentData returns a copy of the stored data of one entity component,
// or the null pointer. The caller owns the copy.
func (r *Runtime) ComponentData(entityID int64, componentID uint32) native.Ptr {
	w := r.world
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.entities[entityID][componentID]
	if !ok {
		return 0
	}
	return r.copyContainer(p)
}

func (w *world) close(r *Runtime) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, comps := range w.entities {
		for _, p := range comps {
			r.freeContainer(p)
		}
	}
	w.entities = make(map[int64]map[uint32]native.Ptr)
}

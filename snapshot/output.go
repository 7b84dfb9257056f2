package snapshot

import (
	"go.uber.org/zap"

	workersdk "github.com/wippyai/worker-sdk"
	"github.com/wippyai/worker-sdk/entity"
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/handle"
	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/schema"
)

// OutputStream writes entities to a snapshot file.
type OutputStream struct {
	abi     native.SnapshotABI
	stream  *handle.Exclusive
	path    string
	written int
}

// Create opens a snapshot file for writing, replacing any existing file.
func Create(rt native.Runtime, path string) (*OutputStream, error) {
	abi := rt.Snapshots()
	p, msg := abi.CreateOutputStream(path)
	if msg != "" {
		return nil, errors.NativeError(errors.PhaseSnapshot, "create output stream", msg)
	}
	if p.IsNull() {
		panic(errors.Fatal(errors.PhaseSnapshot, "native output stream for %s is null", path))
	}
	return &OutputStream{abi: abi, stream: handle.NewExclusive(p), path: path}, nil
}

// Write appends entity e under id. The entity keeps ownership of its data.
func (s *OutputStream) Write(id int64, e *entity.Entity) error {
	comps := make([]*schema.ComponentData, 0, e.Len())
	for _, cid := range e.ComponentIDs() {
		comps = append(comps, e.Data(cid))
	}
	return s.WriteComponents(id, comps...)
}

// WriteComponents appends an entity made of the given component data.
func (s *OutputStream) WriteComponents(id int64, comps ...*schema.ComponentData) error {
	if err := workersdk.CheckEntityID(errors.PhaseSnapshot, id); err != nil {
		return err
	}

	seen := make(map[uint32]struct{}, len(comps))
	for _, c := range comps {
		if _, dup := seen[c.ComponentID()]; dup {
			return errors.New(errors.PhaseSnapshot, errors.KindInvalidInput).
				Value(id).
				Detail("entity %d: duplicate component %d", id, c.ComponentID()).
				Build()
		}
		seen[c.ComponentID()] = struct{}{}
	}

	ptrs := make([]native.Ptr, len(comps))
	for i, c := range comps {
		p, release := c.Acquire()
		defer release()
		ptrs[i] = p
	}

	stream, release := s.stream.Acquire()
	defer release()
	if stream.IsNull() {
		return errors.Closed(errors.PhaseSnapshot, "output stream")
	}

	if msg := s.abi.WriteEntity(stream, id, ptrs); msg != "" {
		Logger().Debug("snapshot write failed",
			zap.String("path", s.path),
			zap.Int64("entity_id", id),
			zap.String("error", msg))
		return errors.NativeError(errors.PhaseSnapshot, "write entity", msg)
	}
	s.written++
	return nil
}

// Written returns the number of entities written so far.
func (s *OutputStream) Written() int {
	return s.written
}

// Close flushes and closes the file. Later calls do nothing.
func (s *OutputStream) Close() error {
	p := s.stream.Take()
	if p.IsNull() {
		return nil
	}
	if msg := s.abi.DestroyOutputStream(p); msg != "" {
		return errors.NativeError(errors.PhaseSnapshot, "close output stream", msg)
	}
	Logger().Info("snapshot written",
		zap.String("path", s.path),
		zap.Int("entities", s.written))
	return nil
}

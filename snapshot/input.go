package snapshot

import (
	"go.uber.org/zap"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/entity"
	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/handle"
	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/schema"
)

// InputStream reads entities back from a snapshot file.
type InputStream struct {
	rt     native.Runtime
	reg    *component.Registry
	stream *handle.Exclusive
	path   string
}

// Open opens a snapshot file for reading. reg is attached to the entities
// read and may be nil.
func Open(rt native.Runtime, reg *component.Registry, path string) (*InputStream, error) {
	p, msg := rt.Snapshots().CreateInputStream(path)
	if msg != "" {
		return nil, errors.NativeError(errors.PhaseSnapshot, "open input stream", msg)
	}
	if p.IsNull() {
		panic(errors.Fatal(errors.PhaseSnapshot, "native input stream for %s is null", path))
	}
	return &InputStream{rt: rt, reg: reg, stream: handle.NewExclusive(p), path: path}, nil
}

// HasNext reports whether another entity can be read.
func (s *InputStream) HasNext() bool {
	stream, release := s.stream.Acquire()
	defer release()
	if stream.IsNull() {
		return false
	}
	return s.rt.Snapshots().HasNext(stream)
}

// Next reads the next entity. The caller owns the returned entity.
func (s *InputStream) Next() (int64, *entity.Entity, error) {
	stream, release := s.stream.Acquire()
	defer release()
	if stream.IsNull() {
		return 0, nil, errors.Closed(errors.PhaseSnapshot, "input stream")
	}

	id, ptrs, msg := s.rt.Snapshots().ReadEntity(stream)
	if msg != "" {
		return 0, nil, errors.NativeError(errors.PhaseSnapshot, "read entity", msg)
	}

	objs := s.rt.Objects()
	e := entity.New(s.reg)
	for _, p := range ptrs {
		// The stream owns what it returns; keep independent copies
		data := schema.ComponentDataFromRaw(s.rt, objs.Copy(p))
		if err := e.AddData(data); err != nil {
			data.Close()
			e.Close()
			return 0, nil, err
		}
	}
	return id, e, nil
}

// Close releases the stream. Later calls do nothing.
func (s *InputStream) Close() error {
	p := s.stream.Take()
	if p.IsNull() {
		return nil
	}
	s.rt.Snapshots().DestroyInputStream(p)
	return nil
}

// Record is one entity read from a snapshot.
type Record struct {
	Entity *entity.Entity
	ID     int64
}

// ReadAll reads every entity of the snapshot at path. On error the entities
// read so far are closed.
func ReadAll(rt native.Runtime, reg *component.Registry, path string) ([]Record, error) {
	in, err := Open(rt, reg, path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var out []Record
	for in.HasNext() {
		id, e, err := in.Next()
		if err != nil {
			for _, r := range out {
				r.Entity.Close()
			}
			return nil, err
		}
		out = append(out, Record{ID: id, Entity: e})
	}
	Logger().Debug("snapshot read",
		zap.String("path", path),
		zap.Int("entities", len(out)))
	return out, nil
}

package local

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/resource"
)

// Snapshot file layout:
//
//	magic "WSNP" | varint version | record*
//	record    = varint length | entity
//	entity    = 1: varint entity id, 2: component*
//	component = 1: varint component id, 2: bytes fields object
const (
	snapshotMagic   = "WSNP"
	snapshotVersion = 1

	// maxRecordSize bounds the length prefix of one entity record.
	maxRecordSize = 64 << 20

	entityFieldID        protowire.Number = 1
	entityFieldComponent protowire.Number = 2
	componentFieldID     protowire.Number = 1
	componentFieldData   protowire.Number = 2
)

type outputStream struct {
	file    *os.File
	w       *bufio.Writer
	written map[int64]struct{}
	path    string
	failed  string
}

// Drop flushes and closes the file. It runs when the stream is destroyed
// and for streams still open when the runtime is closed.
func (o *outputStream) Drop() {
	if o.file == nil {
		return
	}
	if err := o.w.Flush(); err != nil && o.failed == "" {
		o.failed = err.Error()
	}
	if err := o.file.Close(); err != nil && o.failed == "" {
		o.failed = err.Error()
	}
	o.file = nil
}

type inputStream struct {
	file    *os.File
	r       *bufio.Reader
	current []native.Ptr
	path    string
	size    int64
}

// Drop closes the file. Component data of the current entity is freed by
// DestroyInputStream, or with the rest of the heap on runtime close.
func (in *inputStream) Drop() {
	if in.file == nil {
		return
	}
	if err := in.file.Close(); err != nil {
		Logger().Warn("failed to close snapshot input stream",
			zap.String("path", in.path),
			zap.Error(err))
	}
	in.file = nil
}

type snapshotABI struct {
	r *Runtime
}

func (s snapshotABI) CreateOutputStream(path string) (native.Ptr, string) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err.Error()
	}
	w := bufio.NewWriter(f)
	header := append([]byte(snapshotMagic), protowire.AppendVarint(nil, snapshotVersion)...)
	if _, err := w.Write(header); err != nil {
		f.Close()
		return 0, err.Error()
	}
	Logger().Debug("snapshot output stream created", zap.String("path", path))
	return s.r.alloc(tagOutputStream, &outputStream{
		file:    f,
		w:       w,
		path:    path,
		written: make(map[int64]struct{}),
	}), ""
}

func (s snapshotABI) WriteEntity(stream native.Ptr, entityID int64, components []native.Ptr) string {
	out := lookup[*outputStream](s.r, stream, tagOutputStream, "snapshot output stream")
	if out.failed != "" {
		return out.failed
	}
	if entityID <= 0 {
		return fmt.Sprintf("entity id %d is not positive", entityID)
	}
	if _, dup := out.written[entityID]; dup {
		return fmt.Sprintf("entity %d already written", entityID)
	}

	var rec []byte
	rec = protowire.AppendTag(rec, entityFieldID, protowire.VarintType)
	rec = protowire.AppendVarint(rec, uint64(entityID))

	seen := make(map[uint32]struct{}, len(components))
	for _, p := range components {
		c, ok := s.r.heap.GetTagged(resource.Handle(p), tagContainer)
		if !ok {
			return fmt.Sprintf("entity %d: invalid component data pointer", entityID)
		}
		cd := c.(*container)
		if cd.kind != native.KindComponentData {
			return fmt.Sprintf("entity %d: %s is not component data", entityID, cd.kind)
		}
		if _, dup := seen[cd.componentID]; dup {
			return fmt.Sprintf("entity %d: duplicate component %d", entityID, cd.componentID)
		}
		seen[cd.componentID] = struct{}{}

		var comp []byte
		comp = protowire.AppendTag(comp, componentFieldID, protowire.VarintType)
		comp = protowire.AppendVarint(comp, uint64(cd.componentID))
		comp = protowire.AppendTag(comp, componentFieldData, protowire.BytesType)
		comp = protowire.AppendBytes(comp, s.r.serialize(cd.fields))

		rec = protowire.AppendTag(rec, entityFieldComponent, protowire.BytesType)
		rec = protowire.AppendBytes(rec, comp)
	}

	if _, err := out.w.Write(protowire.AppendBytes(nil, rec)); err != nil {
		out.failed = err.Error()
		return out.failed
	}
	out.written[entityID] = struct{}{}
	return ""
}

func (s snapshotABI) DestroyOutputStream(stream native.Ptr) string {
	if s.r.closed.Load() {
		return ""
	}
	out := s.r.free(stream, tagOutputStream, "snapshot output stream").(*outputStream)
	out.Drop()
	msg := out.failed
	Logger().Debug("snapshot output stream closed",
		zap.String("path", out.path),
		zap.Int("entities", len(out.written)))
	return msg
}

func (s snapshotABI) CreateInputStream(path string) (native.Ptr, string) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err.Error()
	}
	r := bufio.NewReader(f)
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil || !bytes.Equal(magic, []byte(snapshotMagic)) {
		f.Close()
		return 0, path + ": not a snapshot file"
	}
	version, err := binary.ReadUvarint(r)
	if err != nil {
		f.Close()
		return 0, path + ": truncated snapshot header"
	}
	if version != snapshotVersion {
		f.Close()
		return 0, fmt.Sprintf("%s: unsupported snapshot version %d", path, version)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, err.Error()
	}
	return s.r.alloc(tagInputStream, &inputStream{file: f, r: r, path: path, size: info.Size()}), ""
}

func (s snapshotABI) HasNext(stream native.Ptr) bool {
	in := lookup[*inputStream](s.r, stream, tagInputStream, "snapshot input stream")
	_, err := in.r.Peek(1)
	return err == nil
}

func (s snapshotABI) ReadEntity(stream native.Ptr) (int64, []native.Ptr, string) {
	in := lookup[*inputStream](s.r, stream, tagInputStream, "snapshot input stream")
	s.r.releaseCurrent(in)

	size, err := binary.ReadUvarint(in.r)
	if err != nil {
		return 0, nil, "read entity length: " + err.Error()
	}
	if size > maxRecordSize || size > uint64(in.size) {
		return 0, nil, fmt.Sprintf("%s: invalid entity record length %d", in.path, size)
	}
	rec := make([]byte, size)
	if _, err := io.ReadFull(in.r, rec); err != nil {
		return 0, nil, "read entity: " + err.Error()
	}

	var entityID int64
	for len(rec) > 0 {
		num, typ, n := protowire.ConsumeTag(rec)
		if n < 0 {
			return 0, nil, protowire.ParseError(n).Error()
		}
		rec = rec[n:]
		switch {
		case num == entityFieldID && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(rec)
			if m < 0 {
				return 0, nil, protowire.ParseError(m).Error()
			}
			entityID = int64(v)
			n = m
		case num == entityFieldComponent && typ == protowire.BytesType:
			b, m := protowire.ConsumeBytes(rec)
			if m < 0 {
				return 0, nil, protowire.ParseError(m).Error()
			}
			p, msg := s.r.readComponent(b)
			if msg != "" {
				return 0, nil, msg
			}
			in.current = append(in.current, p)
			n = m
		default:
			m := protowire.ConsumeFieldValue(num, typ, rec)
			if m < 0 {
				return 0, nil, protowire.ParseError(m).Error()
			}
			n = m
		}
		rec = rec[n:]
	}
	if entityID <= 0 {
		return 0, nil, fmt.Sprintf("entity id %d is not positive", entityID)
	}
	return entityID, append([]native.Ptr(nil), in.current...), ""
}

func (r *Runtime) readComponent(b []byte) (native.Ptr, string) {
	var (
		id   uint32
		data []byte
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, protowire.ParseError(n).Error()
		}
		b = b[n:]
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return 0, protowire.ParseError(m).Error()
		}
		switch {
		case num == componentFieldID && typ == protowire.VarintType:
			v, _ := protowire.ConsumeVarint(b)
			id = uint32(v)
		case num == componentFieldData && typ == protowire.BytesType:
			data, _ = protowire.ConsumeBytes(b)
		}
		b = b[m:]
	}
	p := r.newContainer(native.KindComponentData, id)
	if msg := r.merge(r.container(p).fields, data); msg != "" {
		r.freeContainer(p)
		return 0, fmt.Sprintf("component %d: %s", id, msg)
	}
	return p, ""
}

func (r *Runtime) releaseCurrent(in *inputStream) {
	for _, p := range in.current {
		r.freeContainer(p)
	}
	in.current = in.current[:0]
}

func (s snapshotABI) DestroyInputStream(stream native.Ptr) {
	if s.r.closed.Load() {
		return
	}
	in := s.r.free(stream, tagInputStream, "snapshot input stream").(*inputStream)
	in.Drop()
	s.r.releaseCurrent(in)
}

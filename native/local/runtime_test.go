package local

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/wippyai/worker-sdk/errors"
	"github.com/wippyai/worker-sdk/native"
	"github.com/wippyai/worker-sdk/resource"
)

func TestSchema_AppendOrder(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	c := objs.Create(native.KindGenericData, 0)
	defer objs.Destroy(c)
	obj := objs.Fields(c)

	for _, v := range []uint64{3, 1, 2} {
		s.AddVarint(obj, 1, v)
	}
	s.AddBytes(obj, 2, []byte("x"))
	s.AddVarint(obj, 1, 9)

	require.Equal(t, uint32(4), s.Count(obj, 1, native.WireVarint))
	var got []uint64
	for i := uint32(0); i < 4; i++ {
		got = append(got, s.IndexVarint(obj, 1, i))
	}
	assert.Equal(t, []uint64{3, 1, 2, 9}, got)
	assert.Equal(t, []native.FieldID{1, 2}, s.FieldIDs(obj))

	assert.Zero(t, s.Count(obj, 7, native.WireVarint))
	assert.Zero(t, s.IndexVarint(obj, 7, 0))
	assert.Nil(t, s.IndexBytes(obj, 7, 0))
}

func TestSchema_WireTypesAreSeparate(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	c := objs.Create(native.KindGenericData, 0)
	defer objs.Destroy(c)
	obj := objs.Fields(c)

	s.AddFixed32(obj, 1, math.Float32bits(1.5))
	assert.Zero(t, s.Count(obj, 1, native.WireVarint))
	assert.Equal(t, uint32(1), s.Count(obj, 1, native.WireFixed32))
	assert.Equal(t, float32(1.5), math.Float32frombits(s.IndexFixed32(obj, 1, 0)))
}

func TestSchema_SerializeMergeRoundTrip(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	src := objs.Create(native.KindGenericData, 0)
	defer objs.Destroy(src)
	obj := objs.Fields(src)

	s.AddVarint(obj, 1, 42)
	s.AddFixed64(obj, 2, math.Float64bits(-10.25))
	s.AddBytes(obj, 3, []byte("RustWorker"))
	child := s.AddObject(obj, 4)
	s.AddVarint(child, 1, 7)
	grandchild := s.AddObject(child, 2)
	s.AddBytes(grandchild, 1, []byte("deep"))

	dst := objs.Create(native.KindGenericData, 0)
	defer objs.Destroy(dst)
	out := objs.Fields(dst)
	require.Empty(t, s.Merge(out, s.Serialize(obj)))

	assert.Equal(t, uint64(42), s.IndexVarint(out, 1, 0))
	assert.Equal(t, -10.25, math.Float64frombits(s.IndexFixed64(out, 2, 0)))
	assert.Equal(t, []byte("RustWorker"), s.IndexBytes(out, 3, 0))

	c := s.IndexObject(out, 4, 0)
	assert.Equal(t, uint64(7), s.IndexVarint(c, 1, 0))
	gc := s.GetObject(c, 2)
	assert.Equal(t, []byte("deep"), s.IndexBytes(gc, 1, 0))

	assert.Equal(t, s.Serialize(obj), s.Serialize(out))
}

func TestSchema_MergeMalformed(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	c := objs.Create(native.KindGenericData, 0)
	defer objs.Destroy(c)

	msg := s.Merge(objs.Fields(c), []byte{0x08})
	assert.NotEmpty(t, msg)
}

func TestSchema_GetObjectMaterializes(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	c := objs.Create(native.KindGenericData, 0)
	obj := objs.Fields(c)

	before := rt.Live()
	empty := s.GetObject(obj, 5)
	require.False(t, empty.IsNull())
	assert.Equal(t, before+1, rt.Live(), "absent object is materialised")
	assert.Empty(t, s.FieldIDs(obj), "materialised object is not a field value")
	assert.Empty(t, s.Serialize(empty))

	objs.Destroy(c)
	assert.Zero(t, rt.Live(), "container destroy frees materialised children")
}

func TestSchema_ClearField(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	c := objs.Create(native.KindGenericData, 0)
	defer objs.Destroy(c)
	obj := objs.Fields(c)

	s.AddObject(obj, 1)
	s.AddObject(obj, 1)
	s.AddVarint(obj, 2, 1)
	live := rt.Live()

	s.ClearField(obj, 1)
	assert.Zero(t, s.Count(obj, 1, native.WireBytes))
	assert.Equal(t, uint32(1), s.Count(obj, 2, native.WireVarint))
	assert.Equal(t, live-2, rt.Live())
}

func TestSchema_FieldZeroIsFatal(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	c := objs.Create(native.KindGenericData, 0)
	defer objs.Destroy(c)

	assertFatal(t, func() { s.AddVarint(objs.Fields(c), 0, 1) })
}

func TestObjects_DestroyTwiceIsFatal(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs := rt.Objects()

	c := objs.Create(native.KindComponentData, 54)
	objs.Destroy(c)
	assertFatal(t, func() { objs.Destroy(c) })
}

func TestObjects_CopyIsDeep(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	src := objs.Create(native.KindComponentUpdate, 54)
	s.AddVarint(objs.Fields(src), 1, 1)
	objs.AddClearedField(src, 3)

	dst := objs.Copy(src)
	require.NotEqual(t, src, dst)
	s.AddVarint(objs.Fields(src), 1, 2)

	assert.Equal(t, native.KindComponentUpdate, objs.Kind(dst))
	assert.Equal(t, uint32(54), objs.ComponentID(dst))
	assert.Equal(t, uint32(1), s.Count(objs.Fields(dst), 1, native.WireVarint))
	assert.Equal(t, []native.FieldID{3}, objs.ClearedFields(dst))

	objs.Destroy(src)
	objs.Destroy(dst)
	assert.Zero(t, rt.Live())
}

func TestObjects_DestroyObserved(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs := rt.Objects()

	dropped := map[resource.Handle]int{}
	rt.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventDropped && e.Tag == tagContainer {
			dropped[e.Handle]++
		}
	}))

	c := objs.Create(native.KindCommandRequest, 1)
	objs.Destroy(c)
	assert.Equal(t, 1, dropped[resource.Handle(c)])
}

type eventCount struct{ n int }

func (c *eventCount) OnResourceEvent(resource.Event) { c.n++ }

func TestObjects_UnsubscribeStopsEvents(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs := rt.Objects()

	obs := &eventCount{}
	rt.Subscribe(obs)
	objs.Destroy(objs.Create(native.KindGenericData, 0))
	seen := obs.n
	assert.Positive(t, seen)

	rt.Unsubscribe(obs)
	objs.Destroy(objs.Create(native.KindGenericData, 0))
	assert.Equal(t, seen, obs.n)
}

func TestObjects_ApplyUpdate(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	data := objs.Create(native.KindComponentData, 100)
	defer objs.Destroy(data)
	d := objs.Fields(data)
	s.AddBytes(d, 1, []byte("old"))
	s.AddVarint(d, 2, 5)
	s.AddVarint(d, 3, 1)
	s.AddVarint(d, 3, 2)

	update := objs.Create(native.KindComponentUpdate, 100)
	defer objs.Destroy(update)
	u := objs.Fields(update)
	s.AddBytes(u, 1, []byte("new"))
	inner := s.AddObject(u, 4)
	s.AddVarint(inner, 1, 11)
	objs.AddClearedField(update, 3)

	objs.ApplyUpdate(data, update)

	assert.Equal(t, uint32(1), s.Count(d, 1, native.WireBytes))
	assert.Equal(t, []byte("new"), s.IndexBytes(d, 1, 0))
	assert.Equal(t, uint64(5), s.IndexVarint(d, 2, 0))
	assert.Zero(t, s.Count(d, 3, native.WireVarint))
	assert.Equal(t, uint64(11), s.IndexVarint(s.GetObject(d, 4), 1, 0))
}

func TestSnapshot_WriteRead(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s, snap := rt.Objects(), rt.Schema(), rt.Snapshots()
	path := filepath.Join(t.TempDir(), "test.snapshot")

	out, msg := snap.CreateOutputStream(path)
	require.Empty(t, msg)

	pos := objs.Create(native.KindComponentData, 54)
	s.AddFixed64(s.AddObject(objs.Fields(pos), 1), 1, math.Float64bits(10))
	persist := objs.Create(native.KindComponentData, 55)

	require.Empty(t, snap.WriteEntity(out, 1, []native.Ptr{pos, persist}))
	require.Empty(t, snap.WriteEntity(out, 2, nil))
	assert.Contains(t, snap.WriteEntity(out, 0, nil), "not positive")
	assert.Contains(t, snap.WriteEntity(out, 1, nil), "already written")
	assert.Contains(t, snap.WriteEntity(out, 3, []native.Ptr{pos, pos}), "duplicate component")
	require.Empty(t, snap.DestroyOutputStream(out))
	objs.Destroy(pos)
	objs.Destroy(persist)

	in, msg := snap.CreateInputStream(path)
	require.Empty(t, msg)

	require.True(t, snap.HasNext(in))
	id, comps, msg := snap.ReadEntity(in)
	require.Empty(t, msg)
	assert.Equal(t, int64(1), id)
	require.Len(t, comps, 2)
	assert.Equal(t, uint32(54), objs.ComponentID(comps[0]))
	coords := s.GetObject(objs.Fields(comps[0]), 1)
	assert.Equal(t, 10.0, math.Float64frombits(s.IndexFixed64(coords, 1, 0)))

	require.True(t, snap.HasNext(in))
	id, comps, msg = snap.ReadEntity(in)
	require.Empty(t, msg)
	assert.Equal(t, int64(2), id)
	assert.Empty(t, comps)
	assert.False(t, snap.HasNext(in))

	snap.DestroyInputStream(in)
	assert.Zero(t, rt.Live())
}

func TestSnapshot_NotASnapshot(t *testing.T) {
	rt := New()
	defer rt.Close()
	path := filepath.Join(t.TempDir(), "bogus")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	_, msg := rt.Snapshots().CreateInputStream(path)
	assert.Contains(t, msg, "not a snapshot file")

	_, msg = rt.Snapshots().CreateOutputStream(filepath.Join(path, "nested", "x"))
	assert.NotEmpty(t, msg)
}

func TestSnapshot_RuntimeCloseFlushesStreams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.snapshot")

	rt := New()
	snap := rt.Snapshots()
	out, msg := snap.CreateOutputStream(path)
	require.Empty(t, msg)
	require.Empty(t, snap.WriteEntity(out, 7, nil))
	require.NoError(t, rt.Close())
	assert.Empty(t, snap.DestroyOutputStream(out))

	rt = New()
	snap = rt.Snapshots()
	in, msg := snap.CreateInputStream(path)
	require.Empty(t, msg)
	require.True(t, snap.HasNext(in))
	id, _, msg := snap.ReadEntity(in)
	require.Empty(t, msg)
	assert.Equal(t, int64(7), id)

	v, ok := rt.heap.Get(resource.Handle(in))
	require.True(t, ok)
	require.NoError(t, rt.Close())
	assert.Nil(t, v.(*inputStream).file)
	snap.DestroyInputStream(in)
}

func TestSnapshot_RecordLengthBounds(t *testing.T) {
	rt := New()
	defer rt.Close()
	dir := t.TempDir()

	tests := []struct {
		name   string
		record []byte
	}{
		{"huge", protowire.AppendVarint(nil, 1<<62)},
		{"past end of file", append(protowire.AppendVarint(nil, 100), 1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			data := append([]byte(snapshotMagic), protowire.AppendVarint(nil, snapshotVersion)...)
			require.NoError(t, os.WriteFile(path, append(data, tt.record...), 0o600))

			snap := rt.Snapshots()
			in, msg := snap.CreateInputStream(path)
			require.Empty(t, msg)
			defer snap.DestroyInputStream(in)

			require.True(t, snap.HasNext(in))
			_, _, msg = snap.ReadEntity(in)
			assert.Contains(t, msg, "invalid entity record length")
		})
	}
}

func TestWorld_AddEntityDuplicateComponent(t *testing.T) {
	rt := New()
	defer rt.Close()
	objs, s := rt.Objects(), rt.Schema()

	first := objs.Create(native.KindComponentData, 54)
	s.AddVarint(objs.Fields(first), 1, 1)
	second := objs.Create(native.KindComponentData, 54)
	s.AddVarint(objs.Fields(second), 1, 2)
	rt.AddEntity(3, first, second)

	assert.Equal(t, 1, rt.LiveContainers())
	got := rt.ComponentData(3, 54)
	require.False(t, got.IsNull())
	defer objs.Destroy(got)
	assert.Equal(t, uint64(2), s.IndexVarint(objs.Fields(got), 1, 0))
}

func TestWorker_ConnectAndOps(t *testing.T) {
	rt := NewWithConfig(&Config{ConnectPolls: 2})
	defer rt.Close()
	objs, s, w := rt.Objects(), rt.Schema(), rt.Worker()

	data := objs.Create(native.KindComponentData, 1000)
	s.AddVarint(objs.Fields(data), 1, 5)
	rt.AddEntity(7, data)

	f := w.ConnectAsync("localhost", 7777, "Managed-1", native.ConnectionParameters{WorkerType: "Managed"})
	assert.True(t, w.ConnectionFutureGet(f, 0).IsNull())
	assert.True(t, w.ConnectionFutureGet(f, 0).IsNull())
	conn := w.ConnectionFutureGet(f, 0)
	require.False(t, conn.IsNull())
	w.ConnectionFutureDestroy(f)
	defer w.ConnectionDestroy(conn)

	require.True(t, w.IsConnected(conn))
	assert.Equal(t, "Managed-1", w.WorkerID(conn))
	assert.Contains(t, w.WorkerAttributes(conn), "Managed")

	list := w.GetOpList(conn, 0)
	require.Equal(t, uint32(3), w.OpListCount(list))
	assert.Equal(t, native.OpAddEntity, w.OpListOp(list, 0).Type)
	add := w.OpListOp(list, 1)
	assert.Equal(t, native.OpAddComponent, add.Type)
	assert.Equal(t, uint64(5), s.IndexVarint(objs.Fields(add.Data), 1, 0))
	assert.Equal(t, native.OpAuthorityChange, w.OpListOp(list, 2).Type)
	w.OpListDestroy(list)

	update := objs.Create(native.KindComponentUpdate, 1000)
	s.AddVarint(objs.Fields(update), 1, 6)
	require.Empty(t, w.SendComponentUpdate(conn, 7, update))

	stored := rt.ComponentData(7, 1000)
	assert.Equal(t, uint64(6), s.IndexVarint(objs.Fields(stored), 1, 0))
	objs.Destroy(stored)

	missing := objs.Create(native.KindComponentUpdate, 1000)
	assert.NotEmpty(t, w.SendComponentUpdate(conn, 99, missing))

	req := objs.Create(native.KindCommandRequest, 1000)
	reqID := w.SendCommandRequest(conn, 7, req, 1000)
	list = w.GetOpList(conn, 0)
	require.Equal(t, uint32(2), w.OpListCount(list))
	assert.Equal(t, native.OpComponentUpdate, w.OpListOp(list, 0).Type)
	assert.Equal(t, native.OpCommandRequest, w.OpListOp(list, 1).Type)
	assert.Equal(t, reqID, w.OpListOp(list, 1).RequestID)
	w.OpListDestroy(list)

	resp := objs.Create(native.KindCommandResponse, 1000)
	require.Empty(t, w.SendCommandResponse(conn, reqID, resp))
	again := objs.Create(native.KindCommandResponse, 1000)
	assert.NotEmpty(t, w.SendCommandResponse(conn, reqID, again))

	list = w.GetOpList(conn, 0)
	require.Equal(t, uint32(1), w.OpListCount(list))
	op := w.OpListOp(list, 0)
	assert.Equal(t, native.OpCommandResponse, op.Type)
	assert.Equal(t, native.StatusSuccess, op.StatusCode)
	w.OpListDestroy(list)
}

func TestWorker_ConnectFailure(t *testing.T) {
	rt := NewWithConfig(&Config{RejectWorkerTypes: []string{"Banned"}})
	defer rt.Close()
	w := rt.Worker()

	f := w.ConnectAsync("localhost", 7777, "Banned-1", native.ConnectionParameters{WorkerType: "Banned"})
	conn := w.ConnectionFutureGet(f, 0)
	w.ConnectionFutureDestroy(f)
	require.False(t, conn.IsNull())
	defer w.ConnectionDestroy(conn)

	assert.False(t, w.IsConnected(conn))
	list := w.GetOpList(conn, 0)
	require.Equal(t, uint32(1), w.OpListCount(list))
	op := w.OpListOp(list, 0)
	assert.Equal(t, native.OpDisconnect, op.Type)
	assert.Contains(t, op.Message, "rejected")
	w.OpListDestroy(list)

	list = w.GetOpList(conn, 0)
	assert.Zero(t, w.OpListCount(list), "disconnect is reported once")
	w.OpListDestroy(list)
}

func TestWorker_DeploymentList(t *testing.T) {
	rt := NewWithConfig(&Config{Deployments: []string{"alpha", "beta"}})
	defer rt.Close()
	w := rt.Worker()

	f := w.DeploymentListAsync("locator.example", "project")
	deps, ready, msg := w.DeploymentListFutureGet(f, 0)
	w.DeploymentListFutureDestroy(f)
	require.True(t, ready)
	require.Empty(t, msg)
	assert.Equal(t, []string{"alpha", "beta"}, deps)

	f = w.DeploymentListAsync("", "project")
	_, ready, msg = w.DeploymentListFutureGet(f, 0)
	w.DeploymentListFutureDestroy(f)
	assert.True(t, ready)
	assert.NotEmpty(t, msg)
}

func assertFatal(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		e, ok := r.(*errors.Error)
		require.True(t, ok, "panic value %T is not *errors.Error", r)
		assert.True(t, e.Fatal())
	}()
	fn()
}

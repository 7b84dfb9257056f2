package native

// Ptr is an opaque handle to memory allocated and laid out by the native
// runtime. The zero value is the null handle. Identity is the pointer value;
// the bytes behind it are only reachable through ABI functions.
type Ptr uintptr

// IsNull reports whether p is the null handle.
func (p Ptr) IsNull() bool {
	return p == 0
}

// FieldID identifies a field inside a schema object.
type FieldID uint32

// WireType is the primitive storage class the native runtime uses for a
// schema object field value.
type WireType uint8

const (
	WireVarint WireType = iota
	WireFixed64
	WireBytes
	WireFixed32
)

func (w WireType) String() string {
	switch w {
	case WireVarint:
		return "varint"
	case WireFixed64:
		return "fixed64"
	case WireBytes:
		return "bytes"
	case WireFixed32:
		return "fixed32"
	default:
		return "unknown"
	}
}

// ObjectKind enumerates the native object containers that own a schema object.
type ObjectKind uint8

const (
	KindGenericData ObjectKind = iota + 1
	KindCommandRequest
	KindCommandResponse
	KindComponentData
	KindComponentUpdate
)

func (k ObjectKind) String() string {
	switch k {
	case KindGenericData:
		return "generic data"
	case KindCommandRequest:
		return "command request"
	case KindCommandResponse:
		return "command response"
	case KindComponentData:
		return "component data"
	case KindComponentUpdate:
		return "component update"
	default:
		return "unknown"
	}
}

// Runtime is the full native ABI surface consumed by the SDK.
type Runtime interface {
	Objects() ObjectABI
	Schema() SchemaABI
	Snapshots() SnapshotABI
	Worker() WorkerABI
}

// ObjectABI creates, destroys and copies schema containers.
//
// Create returns the null pointer only when the native allocator failed.
// Destroy must be called exactly once per created or copied container.
type ObjectABI interface {
	Create(kind ObjectKind, componentID uint32) Ptr
	Destroy(p Ptr)
	Copy(p Ptr) Ptr

	Kind(p Ptr) ObjectKind
	ComponentID(p Ptr) uint32

	// Fields returns the root schema object owned by the container.
	Fields(p Ptr) Ptr
	// Events returns the events object of a component update.
	Events(p Ptr) Ptr
	AddClearedField(update Ptr, field FieldID)
	ClearedFields(update Ptr) []FieldID

	// ApplyUpdate replaces every field of data present in update and empties
	// the fields listed as cleared.
	ApplyUpdate(data Ptr, update Ptr)
}

// SchemaABI reads and appends field values on a schema object.
//
// Objects returned by AddObject, IndexObject and GetObject are owned by the
// parent object and must not be destroyed by the caller.
type SchemaABI interface {
	AddVarint(obj Ptr, field FieldID, v uint64)
	AddFixed32(obj Ptr, field FieldID, v uint32)
	AddFixed64(obj Ptr, field FieldID, v uint64)
	AddBytes(obj Ptr, field FieldID, b []byte)
	AddObject(obj Ptr, field FieldID) Ptr

	Count(obj Ptr, field FieldID, wt WireType) uint32
	IndexVarint(obj Ptr, field FieldID, i uint32) uint64
	IndexFixed32(obj Ptr, field FieldID, i uint32) uint32
	IndexFixed64(obj Ptr, field FieldID, i uint32) uint64
	IndexBytes(obj Ptr, field FieldID, i uint32) []byte
	IndexObject(obj Ptr, field FieldID, i uint32) Ptr
	// GetObject returns the last object of the field, materialising an empty
	// object when the field is absent.
	GetObject(obj Ptr, field FieldID) Ptr

	FieldIDs(obj Ptr) []FieldID
	ClearField(obj Ptr, field FieldID)
	Clear(obj Ptr)

	Serialize(obj Ptr) []byte
	// Merge appends the fields encoded in data. It returns a non-empty error
	// string when data is malformed.
	Merge(obj Ptr, data []byte) string
}

// SnapshotABI writes and reads snapshot files.
//
// Every call that can fail returns a native error string; the empty string
// means success.
type SnapshotABI interface {
	CreateOutputStream(path string) (Ptr, string)
	// WriteEntity serialises the given component data containers. Ownership
	// of the containers stays with the caller.
	WriteEntity(stream Ptr, entityID int64, components []Ptr) string
	DestroyOutputStream(stream Ptr) string

	CreateInputStream(path string) (Ptr, string)
	HasNext(stream Ptr) bool
	// ReadEntity returns component data owned by the stream, valid until the
	// next read or until the stream is destroyed.
	ReadEntity(stream Ptr) (int64, []Ptr, string)
	DestroyInputStream(stream Ptr)
}

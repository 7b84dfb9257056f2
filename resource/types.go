package resource

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid, mirroring a null native pointer.
type Handle uint32

// Tag classifies the value stored behind a handle.
type Tag uint32

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a lifecycle notification for one handle.
type Event struct {
	Value  any
	Handle Handle
	Tag    Tag
	Type   EventType
}

// Observer receives notifications about lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}

// Backend provides the underlying storage mechanism for a table.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(tag Tag, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Drop removes a value and returns (value, true) if the handle was live.
	Drop(handle Handle) (any, bool)

	// Close releases everything held by the backend.
	Close() error
}

// Dropper is optionally implemented by values that need cleanup when their
// handle is removed.
type Dropper interface {
	Drop()
}

package resource

import (
	"sync"
)

// Table maps handles to values with tag checking and observer support.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle. It returns 0 once the table is
// closed.
func (t *Table) Insert(tag Tag, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(tag, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Tag:    tag,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTagged retrieves a value only if it was inserted with the given tag.
func (t *Table) GetTagged(handle Handle, tag Tag) (any, bool) {
	actual, ok := t.backend.Tag(handle)
	if !ok || actual != tag {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Tag returns the tag of a live handle.
func (t *Table) Tag(handle Handle) (Tag, bool) {
	return t.backend.Tag(handle)
}

// Remove drops a value and returns (value, true) if found.
func (t *Table) Remove(handle Handle) (any, bool) {
	tag, _ := t.backend.Tag(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		Tag:    tag,
		Value:  value,
	})

	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return t.backend.Len()
}

// CountTag returns the number of live handles carrying tag.
func (t *Table) CountTag(tag Tag) int {
	n := 0
	t.backend.Each(func(_ Handle, tg Tag, _ any) bool {
		if tg == tag {
			n++
		}
		return true
	})
	return n
}

// Clear drops all values.
func (t *Table) Clear() {
	// Collect handles first to avoid holding the backend lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, _ Tag, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close releases all values and stops accepting inserts.
func (t *Table) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

// Lookup retrieves a value by handle and asserts it to T.
func Lookup[T any](t *Table, handle Handle) (T, bool) {
	v, ok := t.Get(handle)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

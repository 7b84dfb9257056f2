// Package resource provides the handle table behind natively allocated objects.
//
// Native code hands out opaque pointers; the in-process runtime in
// native/local represents each pointer as a Handle into a Table. Handle 0 is
// the null pointer and is never issued.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	h := table.Insert(tag, obj)
//
//	// Retrieve value by handle, optionally checking its tag
//	v, ok := table.Get(h)
//	v, ok = table.GetTagged(h, tag)
//
//	// Remove and get value; a second Remove reports false
//	v, ok = table.Remove(h)
//
// Handles of removed values are reused for later inserts, the same way a
// native allocator reuses freed addresses.
//
// # Observers
//
// Observers see every insert and removal. Tests use them to assert that a
// native object was destroyed exactly once:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventDropped {
//	        dropped[e.Handle]++
//	    }
//	}))
//
// # Memory Management
//
// Values are not garbage collected through the table. Whoever inserted a
// value must remove it; Close drops everything that is left, calling Drop on
// values implementing Dropper.
package resource

// Package history provides per-slide undo/redo for the slide editor.
//
// Every editable unit (a slide) owns a linear list of immutable versions and
// a cursor pointing at the active one:
//
//	store, err := history.NewStore(20) // keep at most 20 versions per slide
//
//	store.RecordChange("slide-1", "<p>A</p>", "Initial")
//	store.RecordChange("slide-1", "<p>B</p>", "Edit")
//
//	v, ok := store.Undo("slide-1") // v.Content == "<p>A</p>"
//	v, ok = store.Redo("slide-1")  // v.Content == "<p>B</p>"
//
// # Linear History
//
// Recording a change after an undo discards every version after the cursor,
// so redo is only possible until the next edit. Recording content equal to
// the active version is a no-op, which keeps repeated autosave timers from
// flooding history.
//
// # Bounds
//
// When a unit holds more than the configured maximum, the oldest versions are
// dropped and the cursor shifts with them.
//
// # Absence
//
// Undo, Redo and the lookup methods report absence with a false second return
// value. An unknown unit or an exhausted stack is a normal state, not an error.
//
// # Thread Safety
//
// A Store is not safe for concurrent use. Callers serialize edits per store;
// the engine facade does this with its own lock.
package history

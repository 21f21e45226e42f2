// Package engine provides the versioned edit-history engine for slide decks.
//
// The engine package serves as the main facade, combining per-slide undo/redo,
// checkpoint management, diffing and backup import/export into a single,
// thread-safe API for an editor and a diff viewer.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - history: bounded per-slide undo/redo version stacks
//   - checkpoint: whole-deck snapshots with auto-save and total-cap pruning
//   - diff: HTML normalizer and line diff with bounded lookahead
//   - notify: change notifications for observers
//
// The engine is the only component that touches the injected Persister.
//
// # Thread Safety
//
// All Engine operations are thread-safe. A single mutex serializes access to
// the version stores and the checkpoint collection. Observers are notified
// after the lock is released, so they may call back into the engine.
//
// # Basic Usage
//
//	e, err := engine.New(persist.NewMemory())
//	if err != nil {
//	    return err
//	}
//
//	e.RecordChange("intro", "<h1>Hello</h1>", "Initial")
//	e.RecordChange("intro", "<h1>Hello, deck</h1>", "Edit title")
//
//	v, _ := e.Undo("intro") // v.Content == "<h1>Hello</h1>"
//	v, _ = e.Redo("intro")  // v.Content == "<h1>Hello, deck</h1>"
//
// Recording content equal to the active version is a no-op. Recording after
// an undo discards the versions that could have been redone.
//
// # Checkpoints
//
// Manual checkpoints are created explicitly and never pruned:
//
//	cp, err := e.CreateCheckpoint("Before review", e.Snapshot(), "Quarterly")
//
// Auto-saves are driven by the caller polling AutoSave on any cadence; the
// engine creates one only when the configured interval has elapsed:
//
//	if cp, ok := e.AutoSave(e.Snapshot(), "Quarterly"); ok {
//	    log.Printf("auto-saved %s", cp.ID)
//	}
//
// Restoring is non-destructive. RestoreCheckpoint returns a copy of the
// snapshot for the caller to apply; the checkpoint stays available.
//
// # Diffs
//
//	lines := e.Diff(oldHTML, newHTML)
//	lines, err := e.DiffVersions("intro", 0, 2)
//	lines, err := e.DiffAgainstCurrent("intro", 0, liveHTML)
//
// # Configuration
//
//	e, err := engine.New(adapter,
//	    engine.WithMaxVersions(20),
//	    engine.WithMaxCheckpoints(50),
//	    engine.WithMaxAutoSaves(10),
//	    engine.WithAutoSaveInterval(30*time.Second),
//	    engine.WithDiffOptions(diff.WithWindow(5)),
//	    engine.WithLogger(logger),
//	)
//
// # Error Handling
//
// The package defines several error values:
//
//   - ErrInvalidLimit: Non-positive version or checkpoint limit
//   - ErrInvalidInterval: Negative auto-save interval
//   - ErrUnitNotFound: Slide has no history
//   - ErrVersionNotFound: Version index outside a slide's history
//   - ErrSaveFailed: The Persister rejected a save
//
// Import failures wrap backup.ErrInvalidBackup and leave the checkpoint
// collection untouched.
package engine

// Package checkpoint manages full-deck snapshots of slide content.
//
// A checkpoint captures the content of every slide under a name and is
// tagged either manual (created by the user) or auto-save (created by a
// caller-driven timer). Checkpoints are values: they are created and deleted,
// never modified.
//
// # Pruning
//
// Every insert applies two rules in order:
//
//   - Auto-save cap: an auto-save insert keeps only the newest MaxAutoSaves
//     auto-save checkpoints, evicting the oldest by timestamp.
//   - Total cap: while the collection exceeds MaxCheckpoints, the oldest
//     auto-save checkpoint is evicted. Manual checkpoints are never evicted,
//     so the cap may stay exceeded when only manual checkpoints remain.
//
// # Auto-save
//
// The manager runs no timer. Callers poll [ShouldAutoSave] on their own
// cadence and create an auto-save checkpoint when it returns true:
//
//	if checkpoint.ShouldAutoSave(last, time.Now(), 30*time.Second) {
//	    mgr.Create("Auto-save", snapshot, true, title)
//	    last = time.Now()
//	}
//
// # Snapshot Isolation
//
// Create copies the snapshot map, and all accessors return copies, so later
// changes to a caller's live buffer never reach a stored checkpoint.
package checkpoint

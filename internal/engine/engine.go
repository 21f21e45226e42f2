package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/slidevault/internal/backup"
	"github.com/dshills/slidevault/internal/engine/checkpoint"
	"github.com/dshills/slidevault/internal/engine/diff"
	"github.com/dshills/slidevault/internal/engine/history"
	"github.com/dshills/slidevault/internal/engine/notify"
)

// Re-export commonly used types for convenience.
type (
	// Version is one recorded state of a slide.
	Version = history.Version

	// Checkpoint is a named snapshot of every slide.
	Checkpoint = checkpoint.Checkpoint

	// Snapshot maps slide IDs to content.
	Snapshot = checkpoint.Snapshot

	// State is the persisted checkpoint collection.
	State = checkpoint.State

	// DiffLine is one line of diff output.
	DiffLine = diff.Line

	// Slide is one slide of a backup document.
	Slide = backup.Slide

	// Event describes a history change.
	Event = notify.Event
)

// importPrefix names the checkpoint created by Import.
const importPrefix = "Imported: "

// autoSaveName is the name given to auto-save checkpoints.
const autoSaveName = "Auto-save"

// Persister loads and saves the checkpoint collection.
// Load returns a nil state when nothing was saved before.
type Persister interface {
	Load() (*checkpoint.State, error)
	Save(state checkpoint.State) error
}

// Engine is the history facade used by the editor and the diff viewer.
// It owns per-slide version history and the checkpoint collection and is
// the only component that talks to the Persister.
//
// All operations are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	// Core components
	versions    *history.Store
	checkpoints *checkpoint.Manager
	notifier    *notify.Notifier
	persister   Persister

	lastAutoSave time.Time

	// Configuration
	maxVersions      int
	maxCheckpoints   int
	maxAutoSaves     int
	autoSaveInterval time.Duration
	diffOpts         []diff.Option
	logger           *slog.Logger
	now              func() time.Time
}

// New creates an engine backed by persister, which may be nil.
// The persisted checkpoint collection is loaded immediately; a load failure
// is logged and the engine starts empty.
func New(persister Persister, opts ...Option) (*Engine, error) {
	e := &Engine{
		persister:        persister,
		maxVersions:      DefaultMaxVersions,
		maxCheckpoints:   DefaultMaxCheckpoints,
		maxAutoSaves:     DefaultMaxAutoSaves,
		autoSaveInterval: DefaultAutoSaveInterval,
		logger:           slog.New(slog.DiscardHandler),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.autoSaveInterval < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, e.autoSaveInterval)
	}

	var err error
	e.versions, err = history.NewStore(e.maxVersions, history.WithClock(e.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
	}
	e.checkpoints, err = checkpoint.NewManager(e.maxCheckpoints, e.maxAutoSaves, checkpoint.WithClock(e.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
	}
	e.notifier = notify.New(notify.WithLogger(e.logger))

	e.load()
	return e, nil
}

// load restores the persisted checkpoint collection.
func (e *Engine) load() {
	if e.persister == nil {
		return
	}
	state, err := e.persister.Load()
	if err != nil {
		e.logger.Warn("loading checkpoints failed, starting empty", "error", err)
		return
	}
	if state == nil {
		return
	}
	pruned := e.checkpoints.Load(*state)
	e.lastAutoSave = state.LastAutoSave
	e.logger.Debug("checkpoints loaded",
		"count", e.checkpoints.Len(),
		"pruned", len(pruned))
}

// saveLocked writes the checkpoint collection. Caller must hold e.mu.
func (e *Engine) saveLocked() error {
	if e.persister == nil {
		return nil
	}
	if err := e.persister.Save(e.checkpoints.State(e.lastAutoSave)); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// publish delivers events outside the engine lock so observers may call back
// into the engine.
func (e *Engine) publish(events ...notify.Event) {
	for _, ev := range events {
		e.notifier.Notify(ev)
	}
}

func prunedEvents(ids []string) []notify.Event {
	events := make([]notify.Event, 0, len(ids))
	for _, id := range ids {
		events = append(events, notify.Event{
			Type:         notify.EventCheckpointDeleted,
			CheckpointID: id,
			AutoSave:     true,
		})
	}
	return events
}

// Subscribe registers an observer for every history change.
func (e *Engine) Subscribe(observer notify.Observer) *notify.Subscription {
	return e.notifier.Subscribe(observer)
}

// SubscribeUnit registers an observer for one slide's changes and deck-wide events.
func (e *Engine) SubscribeUnit(unitID string, observer notify.Observer) *notify.Subscription {
	return e.notifier.SubscribeUnit(unitID, observer)
}

// ============================================================================
// Editor surface
// ============================================================================

// RecordChange records new content for a slide and returns the active version.
// Content equal to the active version does not create a new version.
func (e *Engine) RecordChange(unitID, content, label string) Version {
	e.mu.Lock()
	before, had := e.versions.Current(unitID)
	v := e.versions.RecordChange(unitID, content, label)
	e.mu.Unlock()

	if had && before.ID == v.ID {
		return v
	}
	e.logger.Debug("version recorded", "unit", unitID, "version", v.ID, "label", label)
	e.publish(notify.Event{
		Type:      notify.EventRecorded,
		UnitID:    unitID,
		VersionID: v.ID,
		Label:     v.Label,
	})
	return v
}

// Undo moves a slide back one version.
func (e *Engine) Undo(unitID string) (Version, bool) {
	e.mu.Lock()
	v, ok := e.versions.Undo(unitID)
	e.mu.Unlock()

	if ok {
		e.publish(notify.Event{Type: notify.EventUndo, UnitID: unitID, VersionID: v.ID, Label: v.Label})
	}
	return v, ok
}

// Redo moves a slide forward one version.
func (e *Engine) Redo(unitID string) (Version, bool) {
	e.mu.Lock()
	v, ok := e.versions.Redo(unitID)
	e.mu.Unlock()

	if ok {
		e.publish(notify.Event{Type: notify.EventRedo, UnitID: unitID, VersionID: v.ID, Label: v.Label})
	}
	return v, ok
}

// CanUndo returns true if the slide can move back.
func (e *Engine) CanUndo(unitID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.CanUndo(unitID)
}

// CanRedo returns true if the slide can move forward.
func (e *Engine) CanRedo(unitID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.CanRedo(unitID)
}

// History returns a copy of a slide's versions, oldest first.
func (e *Engine) History(unitID string) ([]Version, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.History(unitID)
}

// HistoryInfo returns version metadata for a slide, oldest first.
func (e *Engine) HistoryInfo(unitID string) []history.VersionInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.Info(unitID)
}

// Current returns a slide's active version.
func (e *Engine) Current(unitID string) (Version, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.Current(unitID)
}

// Units returns the IDs of slides with history, sorted.
func (e *Engine) Units() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.versions.Units()
}

// Snapshot returns the active content of every slide with history.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := make(Snapshot)
	for _, id := range e.versions.Units() {
		if v, ok := e.versions.Current(id); ok {
			snap[id] = v.Content
		}
	}
	return snap
}

// ClearUnit drops a slide's history.
func (e *Engine) ClearUnit(unitID string) {
	e.mu.Lock()
	had := e.versions.Has(unitID)
	e.versions.Clear(unitID)
	e.mu.Unlock()

	if had {
		e.publish(notify.Event{Type: notify.EventCleared, UnitID: unitID})
	}
}

// Reset drops the history of every slide. Checkpoints are kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.versions.Reset()
	e.mu.Unlock()

	e.publish(notify.Event{Type: notify.EventReset})
}

// ============================================================================
// Checkpoints
// ============================================================================

// CreateCheckpoint stores a manual checkpoint of snapshot and persists the
// collection. The checkpoint is kept even when the save fails.
func (e *Engine) CreateCheckpoint(name string, snapshot Snapshot, title string) (Checkpoint, error) {
	e.mu.Lock()
	cp, pruned := e.checkpoints.Create(name, snapshot, false, title)
	err := e.saveLocked()
	e.mu.Unlock()

	e.logger.Debug("checkpoint created", "id", cp.ID, "name", name, "pruned", len(pruned))
	if err != nil {
		e.logger.Warn("persisting checkpoint failed", "id", cp.ID, "error", err)
	}
	e.publish(append(prunedEvents(pruned), notify.Event{
		Type:         notify.EventCheckpointCreated,
		CheckpointID: cp.ID,
		Label:        cp.Name,
	})...)
	return cp, err
}

// ShouldAutoSave reports whether the auto-save interval has elapsed.
func (e *Engine) ShouldAutoSave() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return checkpoint.ShouldAutoSave(e.lastAutoSave, e.now(), e.autoSaveInterval)
}

// AutoSave creates an auto-save checkpoint of snapshot when the interval has
// elapsed. It reports whether a checkpoint was created. Persistence errors
// are logged, not returned.
func (e *Engine) AutoSave(snapshot Snapshot, title string) (Checkpoint, bool) {
	e.mu.Lock()
	now := e.now()
	if !checkpoint.ShouldAutoSave(e.lastAutoSave, now, e.autoSaveInterval) {
		e.mu.Unlock()
		return Checkpoint{}, false
	}
	cp, pruned := e.checkpoints.Create(autoSaveName, snapshot, true, title)
	e.lastAutoSave = now
	err := e.saveLocked()
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("persisting auto-save failed", "id", cp.ID, "error", err)
	}
	e.logger.Debug("auto-save created", "id", cp.ID, "pruned", len(pruned))
	e.publish(append(prunedEvents(pruned), notify.Event{
		Type:         notify.EventCheckpointCreated,
		CheckpointID: cp.ID,
		Label:        cp.Name,
		AutoSave:     true,
	})...)
	return cp, true
}

// LastAutoSave returns the time of the last auto-save, zero if none.
func (e *Engine) LastAutoSave() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAutoSave
}

// RestoreCheckpoint returns a copy of a checkpoint for the caller to apply.
// The checkpoint stays in the collection.
func (e *Engine) RestoreCheckpoint(id string) (Checkpoint, bool) {
	e.mu.Lock()
	cp, ok := e.checkpoints.Restore(id)
	e.mu.Unlock()

	if ok {
		e.publish(notify.Event{
			Type:         notify.EventCheckpointRestored,
			CheckpointID: cp.ID,
			Label:        cp.Name,
			AutoSave:     cp.IsAutoSave,
		})
	}
	return cp, ok
}

// DeleteCheckpoint removes a checkpoint and persists the collection.
// It returns false if the checkpoint does not exist.
func (e *Engine) DeleteCheckpoint(id string) (bool, error) {
	e.mu.Lock()
	if !e.checkpoints.Delete(id) {
		e.mu.Unlock()
		return false, nil
	}
	err := e.saveLocked()
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("persisting checkpoint deletion failed", "id", id, "error", err)
	}
	e.publish(notify.Event{Type: notify.EventCheckpointDeleted, CheckpointID: id})
	return true, err
}

// Checkpoints returns all checkpoints, newest first.
func (e *Engine) Checkpoints() []Checkpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkpoints.List()
}

// CheckpointCounts returns the total and auto-save checkpoint counts.
func (e *Engine) CheckpointCounts() (total, auto int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkpoints.Counts()
}

// Flush persists the checkpoint collection.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked()
}

// ============================================================================
// Diff viewer
// ============================================================================

// Diff compares two HTML documents.
func (e *Engine) Diff(oldHTML, newHTML string) []DiffLine {
	return diff.HTML(oldHTML, newHTML, e.diffOpts...)
}

// DiffVersions compares two versions of a slide by history index.
func (e *Engine) DiffVersions(unitID string, from, to int) ([]DiffLine, error) {
	e.mu.Lock()
	a, b, err := e.versionPair(unitID, from, to)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e.Diff(a.Content, b.Content), nil
}

// DiffAgainstCurrent compares a stored version of a slide with live content.
func (e *Engine) DiffAgainstCurrent(unitID string, index int, live string) ([]DiffLine, error) {
	e.mu.Lock()
	v, err := e.versionAt(unitID, index)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e.Diff(v.Content, live), nil
}

func (e *Engine) versionPair(unitID string, from, to int) (Version, Version, error) {
	a, err := e.versionAt(unitID, from)
	if err != nil {
		return Version{}, Version{}, err
	}
	b, err := e.versionAt(unitID, to)
	if err != nil {
		return Version{}, Version{}, err
	}
	return a, b, nil
}

func (e *Engine) versionAt(unitID string, index int) (Version, error) {
	if !e.versions.Has(unitID) {
		return Version{}, fmt.Errorf("%w: %q", ErrUnitNotFound, unitID)
	}
	v, ok := e.versions.VersionAt(unitID, index)
	if !ok {
		return Version{}, fmt.Errorf("%w: %q index %d", ErrVersionNotFound, unitID, index)
	}
	return v, nil
}

// ============================================================================
// Backup
// ============================================================================

// Export serializes slides into a backup document.
func (e *Engine) Export(title string, slides []Slide, metadata map[string]any) ([]byte, error) {
	return backup.Export(title, slides, metadata, e.now())
}

// Import validates a backup document and stores its slides as a manual
// checkpoint named "Imported: <title>". A document that fails validation
// leaves the checkpoint collection untouched.
func (e *Engine) Import(data []byte) (*backup.Document, Checkpoint, error) {
	doc, err := backup.Parse(data)
	if err != nil {
		return nil, Checkpoint{}, fmt.Errorf("import: %w", err)
	}

	e.mu.Lock()
	cp, pruned := e.checkpoints.Create(importPrefix+doc.Title, doc.Snapshot(), false, doc.Title)
	err = e.saveLocked()
	e.mu.Unlock()

	e.logger.Info("backup imported", "title", doc.Title, "slides", len(doc.Slides), "checkpoint", cp.ID)
	if err != nil {
		e.logger.Warn("persisting import failed", "id", cp.ID, "error", err)
	}
	e.publish(append(prunedEvents(pruned), notify.Event{
		Type:         notify.EventImported,
		CheckpointID: cp.ID,
		Label:        cp.Name,
	})...)
	return doc, cp, err
}

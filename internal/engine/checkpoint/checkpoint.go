package checkpoint

import (
	"maps"
	"sort"
	"time"
)

// Snapshot maps a slide ID to its content.
type Snapshot map[string]string

// Clone returns a structural copy of the snapshot.
// A nil snapshot clones to an empty one.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return maps.Clone(s)
}

// UnitIDs returns the slide IDs in the snapshot, sorted.
func (s Snapshot) UnitIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Size returns the total content length in bytes.
func (s Snapshot) Size() int {
	total := 0
	for _, content := range s {
		total += len(content)
	}
	return total
}

// Checkpoint is a named snapshot of every slide.
type Checkpoint struct {
	ID            string
	Name          string
	Timestamp     time.Time
	IsAutoSave    bool
	Snapshot      Snapshot
	DocumentTitle string
}

// Clone returns a copy that shares no mutable state with c.
func (c Checkpoint) Clone() Checkpoint {
	c.Snapshot = c.Snapshot.Clone()
	return c
}

// Kind returns "auto" for auto-save checkpoints and "manual" otherwise.
func (c Checkpoint) Kind() string {
	if c.IsAutoSave {
		return "auto"
	}
	return "manual"
}

// State is the persisted form of a checkpoint collection.
type State struct {
	Checkpoints  []Checkpoint
	LastAutoSave time.Time
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{LastAutoSave: s.LastAutoSave}
	if s.Checkpoints != nil {
		out.Checkpoints = make([]Checkpoint, len(s.Checkpoints))
		for i, cp := range s.Checkpoints {
			out.Checkpoints[i] = cp.Clone()
		}
	}
	return out
}

// ShouldAutoSave reports whether at least interval has passed since last.
// A zero last time always passes.
func ShouldAutoSave(last, now time.Time, interval time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= interval
}

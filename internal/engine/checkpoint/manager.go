package checkpoint

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Default limits.
const (
	DefaultMaxCheckpoints = 50
	DefaultMaxAutoSaves   = 10
)

// ErrInvalidLimit indicates a non-positive checkpoint limit.
var ErrInvalidLimit = errors.New("checkpoint: limits must be positive")

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source used to stamp new checkpoints.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager holds the checkpoint collection and applies pruning on insert.
// It is not safe for concurrent use.
type Manager struct {
	// Insertion order, oldest first
	checkpoints []Checkpoint

	maxCheckpoints int
	maxAutoSaves   int
	now            func() time.Time
}

// NewManager creates a manager with the given limits.
func NewManager(maxCheckpoints, maxAutoSaves int, opts ...Option) (*Manager, error) {
	if maxCheckpoints <= 0 || maxAutoSaves <= 0 {
		return nil, fmt.Errorf("%w: max checkpoints %d, max auto-saves %d",
			ErrInvalidLimit, maxCheckpoints, maxAutoSaves)
	}
	m := &Manager{
		maxCheckpoints: maxCheckpoints,
		maxAutoSaves:   maxAutoSaves,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MaxCheckpoints returns the total checkpoint cap.
func (m *Manager) MaxCheckpoints() int {
	return m.maxCheckpoints
}

// MaxAutoSaves returns the auto-save cap.
func (m *Manager) MaxAutoSaves() int {
	return m.maxAutoSaves
}

// Create stores a new checkpoint built from a copy of snapshot and applies
// pruning. It returns the new checkpoint and the IDs of evicted checkpoints.
func (m *Manager) Create(name string, snapshot Snapshot, isAutoSave bool, title string) (Checkpoint, []string) {
	cp := Checkpoint{
		ID:            uuid.NewString(),
		Name:          name,
		Timestamp:     m.now(),
		IsAutoSave:    isAutoSave,
		Snapshot:      snapshot.Clone(),
		DocumentTitle: title,
	}
	m.checkpoints = append(m.checkpoints, cp)

	var pruned []string
	if isAutoSave {
		pruned = m.pruneAutoSaves()
	}
	pruned = append(pruned, m.pruneTotal()...)

	return cp.Clone(), pruned
}

// Restore returns a copy of the checkpoint with the given ID.
// The checkpoint stays in the collection.
func (m *Manager) Restore(id string) (Checkpoint, bool) {
	i := m.indexOf(id)
	if i < 0 {
		return Checkpoint{}, false
	}
	return m.checkpoints[i].Clone(), true
}

// Delete removes the checkpoint with the given ID.
// Returns false if no such checkpoint exists.
func (m *Manager) Delete(id string) bool {
	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	m.removeAt(i)
	return true
}

// List returns copies of all checkpoints, newest first.
func (m *Manager) List() []Checkpoint {
	result := make([]Checkpoint, len(m.checkpoints))
	for i, cp := range m.checkpoints {
		result[len(m.checkpoints)-1-i] = cp.Clone()
	}
	// Insertion order breaks timestamp ties
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result
}

// Len returns the number of checkpoints.
func (m *Manager) Len() int {
	return len(m.checkpoints)
}

// Counts returns the total and auto-save checkpoint counts.
func (m *Manager) Counts() (total, auto int) {
	for _, cp := range m.checkpoints {
		if cp.IsAutoSave {
			auto++
		}
	}
	return len(m.checkpoints), auto
}

// Clear removes all checkpoints.
func (m *Manager) Clear() {
	m.checkpoints = nil
}

// State returns the persisted form of the collection, oldest first.
func (m *Manager) State(lastAutoSave time.Time) State {
	return State{
		Checkpoints:  m.checkpoints,
		LastAutoSave: lastAutoSave,
	}.Clone()
}

// Load replaces the collection with the checkpoints in state and applies
// both pruning rules. It returns the IDs of checkpoints pruned on load.
func (m *Manager) Load(state State) []string {
	loaded := state.Clone().Checkpoints
	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].Timestamp.Before(loaded[j].Timestamp)
	})
	m.checkpoints = loaded

	pruned := m.pruneAutoSaves()
	return append(pruned, m.pruneTotal()...)
}

// pruneAutoSaves evicts the oldest auto-saves beyond maxAutoSaves.
func (m *Manager) pruneAutoSaves() []string {
	var pruned []string
	for m.autoSaveCount() > m.maxAutoSaves {
		i := m.oldestAutoSave()
		pruned = append(pruned, m.checkpoints[i].ID)
		m.removeAt(i)
	}
	return pruned
}

// pruneTotal evicts the oldest auto-saves while over maxCheckpoints.
// Manual checkpoints are never candidates.
func (m *Manager) pruneTotal() []string {
	var pruned []string
	for len(m.checkpoints) > m.maxCheckpoints {
		i := m.oldestAutoSave()
		if i < 0 {
			break
		}
		pruned = append(pruned, m.checkpoints[i].ID)
		m.removeAt(i)
	}
	return pruned
}

func (m *Manager) autoSaveCount() int {
	_, auto := m.Counts()
	return auto
}

// oldestAutoSave returns the index of the auto-save with the smallest
// timestamp, or -1 if there are none.
func (m *Manager) oldestAutoSave() int {
	oldest := -1
	for i, cp := range m.checkpoints {
		if !cp.IsAutoSave {
			continue
		}
		if oldest < 0 || cp.Timestamp.Before(m.checkpoints[oldest].Timestamp) {
			oldest = i
		}
	}
	return oldest
}

func (m *Manager) indexOf(id string) int {
	for i, cp := range m.checkpoints {
		if cp.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) removeAt(i int) {
	m.checkpoints = append(m.checkpoints[:i], m.checkpoints[i+1:]...)
}

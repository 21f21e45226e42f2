package history

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DefaultMaxVersions is the default per-unit version limit.
const DefaultMaxVersions = 20

// ErrInvalidLimit indicates a non-positive version limit.
var ErrInvalidLimit = errors.New("history: max versions must be positive")

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the time source used to stamp new versions.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store manages bounded linear undo/redo history for many units.
type Store struct {
	units       map[string]*unit
	maxVersions int
	now         func() time.Time
}

// NewStore creates a store that keeps at most maxVersions versions per unit.
func NewStore(maxVersions int, opts ...StoreOption) (*Store, error) {
	if maxVersions <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, maxVersions)
	}
	s := &Store{
		units:       make(map[string]*unit),
		maxVersions: maxVersions,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MaxVersions returns the per-unit version limit.
func (s *Store) MaxVersions() int {
	return s.maxVersions
}

// RecordChange records new content for a unit and returns the active version.
//
// Content equal to the active version is ignored. Otherwise versions after
// the cursor are discarded before the new version is appended, and the
// oldest versions are evicted once the unit exceeds the limit.
func (s *Store) RecordChange(unitID, content, label string) Version {
	u, ok := s.units[unitID]
	if !ok {
		u = &unit{versions: []Version{newVersion(content, label, s.now())}}
		s.units[unitID] = u
		return u.current()
	}

	if u.current().Content == content {
		return u.current()
	}

	// Drop the redo branch
	u.versions = append(u.versions[:u.cursor+1], newVersion(content, label, s.now()))
	u.cursor = len(u.versions) - 1

	if excess := len(u.versions) - s.maxVersions; excess > 0 {
		// Copy so the evicted prefix does not pin the backing array
		kept := make([]Version, s.maxVersions)
		copy(kept, u.versions[excess:])
		u.versions = kept
		u.cursor -= excess
	}

	return u.current()
}

// Undo moves the cursor back one version and returns it.
// Returns false if the unit is unknown or already at its oldest version.
func (s *Store) Undo(unitID string) (Version, bool) {
	u, ok := s.units[unitID]
	if !ok || u.cursor == 0 {
		return Version{}, false
	}
	u.cursor--
	return u.current(), true
}

// Redo moves the cursor forward one version and returns it.
// Returns false if the unit is unknown or already at its newest version.
func (s *Store) Redo(unitID string) (Version, bool) {
	u, ok := s.units[unitID]
	if !ok || u.cursor >= len(u.versions)-1 {
		return Version{}, false
	}
	u.cursor++
	return u.current(), true
}

// CanUndo returns true if undo is available for the unit.
func (s *Store) CanUndo(unitID string) bool {
	u, ok := s.units[unitID]
	return ok && u.cursor > 0
}

// CanRedo returns true if redo is available for the unit.
func (s *Store) CanRedo(unitID string) bool {
	u, ok := s.units[unitID]
	return ok && u.cursor < len(u.versions)-1
}

// Clear drops all history for a unit.
func (s *Store) Clear(unitID string) {
	delete(s.units, unitID)
}

// Reset drops the history of every unit.
func (s *Store) Reset() {
	s.units = make(map[string]*unit)
}

// Has reports whether the unit has any history.
func (s *Store) Has(unitID string) bool {
	_, ok := s.units[unitID]
	return ok
}

// History returns a copy of the unit's versions, oldest first.
func (s *Store) History(unitID string) ([]Version, bool) {
	u, ok := s.units[unitID]
	if !ok {
		return nil, false
	}
	result := make([]Version, len(u.versions))
	copy(result, u.versions)
	return result, true
}

// Current returns the version at the unit's cursor.
func (s *Store) Current(unitID string) (Version, bool) {
	u, ok := s.units[unitID]
	if !ok {
		return Version{}, false
	}
	return u.current(), true
}

// Cursor returns the cursor index for the unit, or -1 if it has no history.
func (s *Store) Cursor(unitID string) int {
	u, ok := s.units[unitID]
	if !ok {
		return -1
	}
	return u.cursor
}

// Len returns the number of versions held for the unit.
func (s *Store) Len(unitID string) int {
	u, ok := s.units[unitID]
	if !ok {
		return 0
	}
	return len(u.versions)
}

// VersionAt returns the version at index for the unit.
func (s *Store) VersionAt(unitID string, index int) (Version, bool) {
	u, ok := s.units[unitID]
	if !ok || index < 0 || index >= len(u.versions) {
		return Version{}, false
	}
	return u.versions[index], true
}

// Units returns the IDs of all units with history, sorted.
func (s *Store) Units() []string {
	ids := make([]string, 0, len(s.units))
	for id := range s.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Info returns navigator info for each version of the unit, oldest first.
func (s *Store) Info(unitID string) []VersionInfo {
	u, ok := s.units[unitID]
	if !ok {
		return nil
	}
	result := make([]VersionInfo, len(u.versions))
	for i, v := range u.versions {
		result[i] = VersionInfo{
			Index:     i,
			ID:        v.ID,
			Label:     v.Label,
			Timestamp: v.Timestamp,
			Size:      v.Size(),
			Current:   i == u.cursor,
		}
	}
	return result
}

package history

import (
	"time"

	"github.com/google/uuid"
)

// Version is one recorded state of a unit.
// Versions are values; a Version handed out by the store never changes.
type Version struct {
	ID        string    // Unique version identifier
	Timestamp time.Time // When the version was recorded
	Content   string    // Full slide content at this version
	Label     string    // Human-readable description of the edit
}

// newVersion creates a version with a fresh ID.
func newVersion(content, label string, now time.Time) Version {
	return Version{
		ID:        uuid.NewString(),
		Timestamp: now,
		Content:   content,
		Label:     label,
	}
}

// Size returns the content length in bytes.
func (v Version) Size() int {
	return len(v.Content)
}

// VersionInfo provides read-only info about a version.
// Used for populating a version navigator.
type VersionInfo struct {
	Index     int
	ID        string
	Label     string
	Timestamp time.Time
	Size      int
	Current   bool // True for the version at the cursor
}

// unit is the history of a single editable unit.
type unit struct {
	versions []Version
	cursor   int
}

func (u *unit) current() Version {
	return u.versions[u.cursor]
}

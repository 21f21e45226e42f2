package diff

import (
	"fmt"
	"strings"
)

// Summary counts diff lines by kind.
type Summary struct {
	Same    int
	Added   int
	Removed int
}

// Summarize counts the lines of a diff by kind.
func Summarize(lines []Line) Summary {
	var s Summary
	for _, l := range lines {
		switch l.Kind {
		case Same:
			s.Same++
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		}
	}
	return s
}

// HasChanges returns true if any line was added or removed.
func (s Summary) HasChanges() bool {
	return s.Added > 0 || s.Removed > 0
}

// String returns a short "+N -M" description.
func (s Summary) String() string {
	return fmt.Sprintf("+%d -%d (%d unchanged)", s.Added, s.Removed, s.Same)
}

// Format renders a diff as text, one line per entry, with a two-character
// prefix: "  " for unchanged, "+ " for added and "- " for removed lines.
func Format(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		switch l.Kind {
		case Added:
			sb.WriteString("+ ")
		case Removed:
			sb.WriteString("- ")
		default:
			sb.WriteString("  ")
		}
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

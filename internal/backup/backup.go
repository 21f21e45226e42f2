// Package backup reads and writes portable JSON backups of a slide deck.
//
// A backup document looks like:
//
//	{
//	  "version": "1.0",
//	  "exportedAt": "2024-03-01T09:00:00Z",
//	  "title": "Quarterly review",
//	  "slides": [{"id": "s1", "title": "Intro", "html": "<h1>Hi</h1>"}],
//	  "metadata": {"theme": "dark"}
//	}
//
// Parse validates a document completely before returning it, so callers can
// apply an import atomically.
package backup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// FormatVersion is the backup format version written by Export.
const FormatVersion = "1.0"

// ErrInvalidBackup is matched by every *ValidationError.
var ErrInvalidBackup = errors.New("invalid backup")

// ValidationError describes why a backup document was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid backup: " + e.Reason
}

// Is reports whether target is ErrInvalidBackup.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidBackup
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Slide is one slide in a backup.
type Slide struct {
	ID    string
	Title string
	HTML  string
}

// Document is a parsed backup.
type Document struct {
	Version    string
	ExportedAt time.Time
	Title      string
	Slides     []Slide
	Metadata   map[string]any
}

// ValidSlideID reports whether id can name a slide file: a single path
// element with no separators and no "..".
func ValidSlideID(id string) bool {
	if id == "" || id == "." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

// Snapshot returns the slide contents keyed by slide ID.
func (d *Document) Snapshot() map[string]string {
	snap := make(map[string]string, len(d.Slides))
	for _, s := range d.Slides {
		snap[s.ID] = s.HTML
	}
	return snap
}

// Export serializes a deck into an indented backup document.
func Export(title string, slides []Slide, metadata map[string]any, now time.Time) ([]byte, error) {
	doc := "{}"
	var err error

	set := func(target *string, path string, value any) {
		if err != nil {
			return
		}
		*target, err = sjson.Set(*target, path, value)
	}
	setRaw := func(path, raw string) {
		if err != nil {
			return
		}
		doc, err = sjson.SetRaw(doc, path, raw)
	}

	set(&doc, "version", FormatVersion)
	set(&doc, "exportedAt", now.UTC().Format(time.RFC3339))
	set(&doc, "title", title)
	setRaw("slides", "[]")
	for _, s := range slides {
		item := "{}"
		set(&item, "id", s.ID)
		set(&item, "title", s.Title)
		set(&item, "html", s.HTML)
		setRaw("slides.-1", item)
	}
	if len(metadata) > 0 {
		set(&doc, "metadata", metadata)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}

	return pretty.Pretty([]byte(doc)), nil
}

// Parse validates and decodes a backup document.
// Any structural problem is reported as a *ValidationError.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, invalid("document is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, invalid("document must be a JSON object")
	}

	version := root.Get("version")
	if !version.Exists() {
		return nil, invalid("missing version")
	}
	if major, _, _ := strings.Cut(version.String(), "."); major != "1" {
		return nil, invalid("unsupported version %q", version.String())
	}

	slides := root.Get("slides")
	if !slides.Exists() {
		return nil, invalid("missing slides")
	}
	if !slides.IsArray() {
		return nil, invalid("slides must be an array")
	}

	doc := &Document{
		Version: version.String(),
		Title:   root.Get("title").String(),
	}

	if exported := root.Get("exportedAt"); exported.Exists() {
		t, err := time.Parse(time.RFC3339, exported.String())
		if err != nil {
			return nil, invalid("exportedAt is not an RFC 3339 timestamp")
		}
		doc.ExportedAt = t
	}

	seen := make(map[string]bool)
	var slideErr error
	index := 0
	slides.ForEach(func(_, item gjson.Result) bool {
		defer func() { index++ }()
		if !item.IsObject() {
			slideErr = invalid("slide %d is not an object", index)
			return false
		}
		id := item.Get("id").String()
		if id == "" {
			slideErr = invalid("slide %d has no id", index)
			return false
		}
		if !ValidSlideID(id) {
			slideErr = invalid("slide %d has an invalid id %q", index, id)
			return false
		}
		if seen[id] {
			slideErr = invalid("duplicate slide id %q", id)
			return false
		}
		seen[id] = true
		doc.Slides = append(doc.Slides, Slide{
			ID:    id,
			Title: item.Get("title").String(),
			HTML:  item.Get("html").String(),
		})
		return true
	})
	if slideErr != nil {
		return nil, slideErr
	}

	if meta := root.Get("metadata"); meta.Exists() && meta.Type != gjson.Null {
		m, ok := meta.Value().(map[string]any)
		if !ok {
			return nil, invalid("metadata must be an object")
		}
		doc.Metadata = m
	}

	return doc, nil
}

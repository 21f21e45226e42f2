package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/slidevault/internal/engine/checkpoint"
)

// fileFormatVersion is the version written to the "version" field.
const fileFormatVersion = 1

// persistedCheckpoint is the JSON form of checkpoint.Checkpoint.
type persistedCheckpoint struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Timestamp     time.Time         `json:"timestamp"`
	IsAutoSave    bool              `json:"is_auto_save"`
	DocumentTitle string            `json:"document_title,omitempty"`
	Snapshot      map[string]string `json:"snapshot"`
}

// persistedData is the root structure of a state file.
type persistedData struct {
	Version      int                   `json:"version"`
	SavedAt      time.Time             `json:"saved_at"`
	LastAutoSave *time.Time            `json:"last_auto_save,omitempty"`
	Checkpoints  []persistedCheckpoint `json:"checkpoints"`
}

// File stores the checkpoint state as a JSON document.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile creates an adapter backed by the file at path.
// The file and its directory are created on first Save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the state file location.
func (f *File) Path() string {
	return f.path
}

// Save writes the state atomically using a temporary file and rename.
func (f *File) Save(state checkpoint.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data := persistedData{
		Version:     fileFormatVersion,
		SavedAt:     time.Now().UTC(),
		Checkpoints: make([]persistedCheckpoint, len(state.Checkpoints)),
	}
	if !state.LastAutoSave.IsZero() {
		last := state.LastAutoSave
		data.LastAutoSave = &last
	}
	for i, cp := range state.Checkpoints {
		data.Checkpoints[i] = persistedCheckpoint{
			ID:            cp.ID,
			Name:          cp.Name,
			Timestamp:     cp.Timestamp,
			IsAutoSave:    cp.IsAutoSave,
			DocumentTitle: cp.DocumentTitle,
			Snapshot:      cp.Snapshot.Clone(),
		}
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoints: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads the state file. A missing file yields a nil state.
func (f *File) Load() (*checkpoint.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	jsonData, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var data persistedData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file: %w", err)
	}
	if data.Version > fileFormatVersion {
		return nil, fmt.Errorf("unsupported state file version: %d (max supported: %d)",
			data.Version, fileFormatVersion)
	}

	state := &checkpoint.State{
		Checkpoints: make([]checkpoint.Checkpoint, 0, len(data.Checkpoints)),
	}
	if data.LastAutoSave != nil {
		state.LastAutoSave = *data.LastAutoSave
	}
	for _, p := range data.Checkpoints {
		state.Checkpoints = append(state.Checkpoints, checkpoint.Checkpoint{
			ID:            p.ID,
			Name:          p.Name,
			Timestamp:     p.Timestamp,
			IsAutoSave:    p.IsAutoSave,
			DocumentTitle: p.DocumentTitle,
			Snapshot:      checkpoint.Snapshot(p.Snapshot).Clone(),
		})
	}
	return state, nil
}

// Close is a no-op; every Save is self-contained.
func (f *File) Close() error {
	return nil
}

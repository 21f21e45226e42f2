// Package persist stores the checkpoint collection between sessions.
//
// Three adapters are provided: Memory keeps state in process, File writes a
// JSON document atomically, and SQLite keeps checkpoints in a pure-Go SQLite
// database. All of them satisfy Adapter and store structural copies, so a
// saved state never aliases the caller's maps.
package persist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/slidevault/internal/engine/checkpoint"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// ErrUnknownDriver is returned by Open for an unrecognized driver name.
var ErrUnknownDriver = errors.New("persist: unknown driver")

// Adapter loads and saves the persisted checkpoint state.
//
// Load returns a nil state when nothing has been saved yet.
type Adapter interface {
	Load() (*checkpoint.State, error)
	Save(state checkpoint.State) error
	Close() error
}

// Open returns the adapter registered under driver.
// The path is ignored by the memory driver.
func Open(driver, path string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		if path == "" {
			return nil, fmt.Errorf("persist: file driver requires a path")
		}
		return NewFile(path), nil
	case DriverSQLite, "sqlite3":
		if path == "" {
			return nil, fmt.Errorf("persist: sqlite driver requires a path")
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

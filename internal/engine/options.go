package engine

import (
	"log/slog"
	"time"

	"github.com/dshills/slidevault/internal/engine/checkpoint"
	"github.com/dshills/slidevault/internal/engine/diff"
	"github.com/dshills/slidevault/internal/engine/history"
)

// Default configuration values.
const (
	DefaultMaxVersions      = history.DefaultMaxVersions
	DefaultMaxCheckpoints   = checkpoint.DefaultMaxCheckpoints
	DefaultMaxAutoSaves     = checkpoint.DefaultMaxAutoSaves
	DefaultAutoSaveInterval = 30 * time.Second
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithMaxVersions sets the per-slide version limit.
func WithMaxVersions(max int) Option {
	return func(e *Engine) {
		e.maxVersions = max
	}
}

// WithMaxCheckpoints sets the total checkpoint limit.
func WithMaxCheckpoints(max int) Option {
	return func(e *Engine) {
		e.maxCheckpoints = max
	}
}

// WithMaxAutoSaves sets the auto-save checkpoint limit.
func WithMaxAutoSaves(max int) Option {
	return func(e *Engine) {
		e.maxAutoSaves = max
	}
}

// WithAutoSaveInterval sets the minimum time between auto-saves.
func WithAutoSaveInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.autoSaveInterval = d
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces time.Now for timestamps and the auto-save gate.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDiffOptions sets the options used by the diff operations.
func WithDiffOptions(opts ...diff.Option) Option {
	return func(e *Engine) {
		e.diffOpts = append(e.diffOpts, opts...)
	}
}

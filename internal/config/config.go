package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/slidevault/internal/engine/checkpoint"
	"github.com/dshills/slidevault/internal/engine/diff"
	"github.com/dshills/slidevault/internal/engine/history"
	"github.com/dshills/slidevault/internal/logging"
	"github.com/dshills/slidevault/internal/persist"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "~/.slidevault/config.toml"

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// HistoryConfig configures per-slide undo/redo.
type HistoryConfig struct {
	MaxVersions int `toml:"max_versions"`
}

// CheckpointConfig configures checkpoint retention and auto-save.
type CheckpointConfig struct {
	MaxCheckpoints   int      `toml:"max_checkpoints"`
	MaxAutoSaves     int      `toml:"max_auto_saves"`
	AutoSaveInterval Duration `toml:"auto_save_interval"`
}

// DiffConfig configures the line diff.
type DiffConfig struct {
	Strategy string `toml:"strategy"`
	Window   int    `toml:"window"`
}

// StorageConfig selects the persistence adapter.
type StorageConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the complete slidevault configuration.
type Config struct {
	History     HistoryConfig    `toml:"history"`
	Checkpoints CheckpointConfig `toml:"checkpoints"`
	Diff        DiffConfig       `toml:"diff"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			MaxVersions: history.DefaultMaxVersions,
		},
		Checkpoints: CheckpointConfig{
			MaxCheckpoints:   checkpoint.DefaultMaxCheckpoints,
			MaxAutoSaves:     checkpoint.DefaultMaxAutoSaves,
			AutoSaveInterval: Duration(30 * time.Second),
		},
		Diff: DiffConfig{
			Strategy: diff.StrategyWindow.String(),
			Window:   diff.DefaultWindow,
		},
		Storage: StorageConfig{
			Driver: persist.DriverSQLite,
			Path:   "~/.slidevault/history.db",
		},
		Logging: LoggingConfig{
			Level:  logging.LevelInfo.String(),
			Format: string(logging.FormatText),
		},
	}
}

// Load reads the TOML file at path over the defaults.
// An empty path or a missing file yields the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decode("<input>", data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(source string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}

		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			perr.Message = "unknown setting: " + strings.TrimSpace(serr.String())
		}
		return perr
	}
	return nil
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks every setting and reports all invalid ones.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(path, msg string, value any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	if c.History.MaxVersions <= 0 {
		add("history.max_versions", "must be positive", c.History.MaxVersions)
	}
	if c.Checkpoints.MaxCheckpoints <= 0 {
		add("checkpoints.max_checkpoints", "must be positive", c.Checkpoints.MaxCheckpoints)
	}
	if c.Checkpoints.MaxAutoSaves <= 0 {
		add("checkpoints.max_auto_saves", "must be positive", c.Checkpoints.MaxAutoSaves)
	}
	if c.Checkpoints.AutoSaveInterval < 0 {
		add("checkpoints.auto_save_interval", "must not be negative", c.Checkpoints.AutoSaveInterval.Std())
	}
	if _, ok := diff.ParseStrategy(c.Diff.Strategy); !ok {
		add("diff.strategy", "must be window or lcs", c.Diff.Strategy)
	}
	if c.Diff.Window <= 0 {
		add("diff.window", "must be positive", c.Diff.Window)
	}
	switch strings.ToLower(c.Storage.Driver) {
	case persist.DriverMemory:
	case persist.DriverFile, persist.DriverSQLite:
		if c.Storage.Path == "" {
			add("storage.path", "required for driver "+c.Storage.Driver, c.Storage.Path)
		}
	default:
		add("storage.driver", "must be sqlite, file or memory", c.Storage.Driver)
	}
	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		add("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	if _, ok := logging.ParseFormat(c.Logging.Format); !ok {
		add("logging.format", "must be text or json", c.Logging.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DiffOptions returns the diff options described by the configuration.
// Call Validate first; an unknown strategy falls back to the window matcher.
func (c *Config) DiffOptions() []diff.Option {
	strategy, _ := diff.ParseStrategy(c.Diff.Strategy)
	return []diff.Option{diff.WithStrategy(strategy), diff.WithWindow(c.Diff.Window)}
}

// StoragePath returns the storage path with a leading ~ expanded.
func (c *Config) StoragePath() string {
	return ExpandPath(c.Storage.Path)
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

package config

import (
	"os"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "SLIDEVAULT_"

// envSetter applies one environment value to the configuration.
type envSetter func(c *Config, value string) error

// envMapping returns the environment variable to setting mappings.
func envMapping() map[string]envSetter {
	return map[string]envSetter{
		EnvPrefix + "MAX_VERSIONS":       intSetter(func(c *Config) *int { return &c.History.MaxVersions }),
		EnvPrefix + "MAX_CHECKPOINTS":    intSetter(func(c *Config) *int { return &c.Checkpoints.MaxCheckpoints }),
		EnvPrefix + "MAX_AUTO_SAVES":     intSetter(func(c *Config) *int { return &c.Checkpoints.MaxAutoSaves }),
		EnvPrefix + "AUTO_SAVE_INTERVAL": durationSetter(func(c *Config) *Duration { return &c.Checkpoints.AutoSaveInterval }),
		EnvPrefix + "DIFF_STRATEGY":      stringSetter(func(c *Config) *string { return &c.Diff.Strategy }),
		EnvPrefix + "DIFF_WINDOW":        intSetter(func(c *Config) *int { return &c.Diff.Window }),
		EnvPrefix + "STORAGE_DRIVER":     stringSetter(func(c *Config) *string { return &c.Storage.Driver }),
		EnvPrefix + "STORAGE_PATH":       stringSetter(func(c *Config) *string { return &c.Storage.Path }),
		EnvPrefix + "LOG_LEVEL":          stringSetter(func(c *Config) *string { return &c.Logging.Level }),
		EnvPrefix + "LOG_FORMAT":         stringSetter(func(c *Config) *string { return &c.Logging.Format }),
	}
}

func intSetter(field func(*Config) *int) envSetter {
	return func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func durationSetter(field func(*Config) *Duration) envSetter {
	return func(c *Config, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*field(c) = Duration(d)
		return nil
	}
}

func stringSetter(field func(*Config) *string) envSetter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

// ApplyEnv overrides settings from SLIDEVAULT_* environment variables.
// Note: Empty values are treated as unset.
func ApplyEnv(c *Config) error {
	return ApplyEnvFrom(c, os.LookupEnv)
}

// ApplyEnvFrom overrides settings using lookup in place of the process
// environment.
func ApplyEnvFrom(c *Config, lookup func(string) (string, bool)) error {
	for name, set := range envMapping() {
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		if err := set(c, value); err != nil {
			return &ParseError{Path: name, Message: err.Error(), Err: err}
		}
	}
	return nil
}

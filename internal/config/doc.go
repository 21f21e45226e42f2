// Package config provides the configuration system for slidevault.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← Highest priority
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← SLIDEVAULT_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← ~/.slidevault/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Command line flags are applied by the CLI after Load and ApplyEnv.
//
// # File Format
//
//	[history]
//	max_versions = 20
//
//	[checkpoints]
//	max_checkpoints = 50
//	max_auto_saves = 10
//	auto_save_interval = "30s"
//
//	[diff]
//	strategy = "window"
//	window = 5
//
//	[storage]
//	driver = "sqlite"
//	path = "~/.slidevault/history.db"
//
//	[logging]
//	level = "info"
//	format = "text"
//
// # Basic Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	if err := config.ApplyEnv(cfg); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// # Environment Variables
//
//	SLIDEVAULT_MAX_VERSIONS         history.max_versions
//	SLIDEVAULT_MAX_CHECKPOINTS      checkpoints.max_checkpoints
//	SLIDEVAULT_MAX_AUTO_SAVES       checkpoints.max_auto_saves
//	SLIDEVAULT_AUTO_SAVE_INTERVAL   checkpoints.auto_save_interval
//	SLIDEVAULT_DIFF_STRATEGY        diff.strategy
//	SLIDEVAULT_DIFF_WINDOW          diff.window
//	SLIDEVAULT_STORAGE_DRIVER       storage.driver
//	SLIDEVAULT_STORAGE_PATH         storage.path
//	SLIDEVAULT_LOG_LEVEL            logging.level
//	SLIDEVAULT_LOG_FORMAT           logging.format
package config

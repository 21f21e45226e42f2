package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dshills/slidevault/internal/backup"
	"github.com/dshills/slidevault/internal/config"
	"github.com/dshills/slidevault/internal/engine"
	"github.com/dshills/slidevault/internal/logging"
	"github.com/dshills/slidevault/internal/persist"
	"github.com/dshills/slidevault/internal/watch"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	logLevel   string
}

// session is an opened engine and its storage.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	adapter persist.Adapter
	engine  *engine.Engine
}

func (s *session) Close() error {
	return s.adapter.Close()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "slidevault",
		Short: "Version history, checkpoints and diffs for HTML slide decks",
		Long: `slidevault keeps per-slide undo history and deck checkpoints for a
directory of HTML slides, diffs slide versions and exports portable backups.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newDiffCmd(opts))
	root.AddCommand(newCheckpointCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newImportCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	return root
}

// loadConfig reads the config file, environment and flag overrides.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads configuration and opens the engine over its storage.
func openSession(opts *globalOptions, logOut io.Writer) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.FromNames(cfg.Logging.Level, cfg.Logging.Format, logOut)
	if err != nil {
		return nil, err
	}

	adapter, err := persist.Open(cfg.Storage.Driver, cfg.StoragePath())
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	eng, err := engine.New(adapter,
		engine.WithMaxVersions(cfg.History.MaxVersions),
		engine.WithMaxCheckpoints(cfg.Checkpoints.MaxCheckpoints),
		engine.WithMaxAutoSaves(cfg.Checkpoints.MaxAutoSaves),
		engine.WithAutoSaveInterval(cfg.Checkpoints.AutoSaveInterval.Std()),
		engine.WithDiffOptions(cfg.DiffOptions()...),
		engine.WithLogger(logger),
	)
	if err != nil {
		adapter.Close()
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, adapter: adapter, engine: eng}, nil
}

// readDeck loads every slide file in dir, ordered by file name.
func readDeck(dir string) ([]backup.Slide, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var slides []backup.Slide
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != watch.DefaultExtension {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		id := watch.UnitID(e.Name())
		slides = append(slides, backup.Slide{ID: id, Title: id, HTML: string(data)})
	}
	return slides, nil
}

// deckSnapshot converts slides to a checkpoint snapshot.
func deckSnapshot(slides []backup.Slide) engine.Snapshot {
	snap := make(engine.Snapshot, len(slides))
	for _, s := range slides {
		snap[s.ID] = s.HTML
	}
	return snap
}

// writeDeck writes a snapshot back to dir as slide files.
// Nothing is written if any slide ID would resolve outside dir.
func writeDeck(dir string, snap engine.Snapshot) error {
	ids := snap.UnitIDs()
	paths := make([]string, len(ids))
	for i, id := range ids {
		path, err := slidePath(dir, id)
		if err != nil {
			return err
		}
		paths[i] = path
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, id := range ids {
		if err := os.WriteFile(paths[i], []byte(snap[id]), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// slidePath returns the file for slide id directly under dir.
func slidePath(dir, id string) (string, error) {
	if !backup.ValidSlideID(id) {
		return "", fmt.Errorf("invalid slide id %q", id)
	}
	path := filepath.Join(dir, id+watch.DefaultExtension)
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel != filepath.Base(path) {
		return "", fmt.Errorf("slide id %q escapes %s", id, dir)
	}
	return path, nil
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/slidevault/internal/watch"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		title    string
		poll     time.Duration
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Record slide edits and auto-save checkpoints while files change",
		Long: `Watch a directory of .html slides. Every saved slide is recorded as a new
version, and an auto-save checkpoint of the whole deck is taken whenever the
configured auto-save interval has elapsed. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if title == "" {
				title = filepath.Base(filepath.Clean(dir))
			}

			s, err := openSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			w, err := watch.New(s.engine,
				watch.WithDebounce(debounce),
				watch.WithLogger(s.logger),
				watch.WithOnRecord(func(e watch.Event) {
					fmt.Fprintf(out, "%s  recorded %s\n", e.Timestamp.Format(time.TimeOnly), e.UnitID)
				}))
			if err != nil {
				return err
			}
			defer w.Close()

			n, err := w.Scan(dir)
			if err != nil {
				return err
			}
			if err := w.Watch(dir); err != nil {
				return err
			}
			fmt.Fprintf(out, "Watching %s (%d slides)\n", dir, n)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go autoSaveLoop(ctx, s, title, poll)

			if err := w.Run(ctx); err != nil {
				return err
			}
			return s.engine.Flush()
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (defaults to the directory name)")
	cmd.Flags().DurationVar(&poll, "poll", 5*time.Second, "How often to check whether an auto-save is due")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed slide is recorded")

	return cmd
}

// autoSaveLoop polls the auto-save gate until ctx is done.
func autoSaveLoop(ctx context.Context, s *session, title string, poll time.Duration) {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.engine.Snapshot()
			if len(snap) == 0 {
				continue
			}
			if cp, ok := s.engine.AutoSave(snap, title); ok {
				s.logger.Info("auto-saved", "checkpoint", cp.ID, "slides", len(snap))
			}
		}
	}
}

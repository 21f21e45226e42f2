package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/slidevault/internal/engine/diff"
)

func newCheckpointCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "checkpoint",
		Aliases: []string{"cp"},
		Short:   "Manage deck checkpoints",
	}

	cmd.AddCommand(newCheckpointListCmd(opts))
	cmd.AddCommand(newCheckpointCreateCmd(opts))
	cmd.AddCommand(newCheckpointShowCmd(opts))
	cmd.AddCommand(newCheckpointRestoreCmd(opts))
	cmd.AddCommand(newCheckpointDeleteCmd(opts))
	cmd.AddCommand(newCheckpointDiffCmd(opts))

	return cmd
}

func newCheckpointListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List checkpoints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			cps := s.engine.Checkpoints()
			if len(cps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No checkpoints")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tSLIDES\tCREATED")
			for _, cp := range cps {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					cp.ID, cp.Name, cp.Kind(), len(cp.Snapshot),
					cp.Timestamp.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func newCheckpointCreateCmd(opts *globalOptions) *cobra.Command {
	var dir, title string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a manual checkpoint of a slide directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			slides, err := readDeck(dir)
			if err != nil {
				return err
			}
			if title == "" {
				title = filepath.Base(filepath.Clean(dir))
			}

			cp, err := s.engine.CreateCheckpoint(args[0], deckSnapshot(slides), title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created checkpoint %s (%d slides)\n", cp.ID, len(cp.Snapshot))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Slide directory")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (defaults to the directory name)")

	return cmd
}

func newCheckpointShowCmd(opts *globalOptions) *cobra.Command {
	var slide string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a checkpoint or one of its slides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			cp, ok := s.engine.RestoreCheckpoint(args[0])
			if !ok {
				return fmt.Errorf("checkpoint %s not found", args[0])
			}

			out := cmd.OutOrStdout()
			if slide != "" {
				content, ok := cp.Snapshot[slide]
				if !ok {
					return fmt.Errorf("slide %q not in checkpoint %s", slide, cp.ID)
				}
				fmt.Fprintln(out, content)
				return nil
			}

			fmt.Fprintf(out, "ID:       %s\n", cp.ID)
			fmt.Fprintf(out, "Name:     %s\n", cp.Name)
			fmt.Fprintf(out, "Kind:     %s\n", cp.Kind())
			fmt.Fprintf(out, "Title:    %s\n", cp.DocumentTitle)
			fmt.Fprintf(out, "Created:  %s\n", cp.Timestamp.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Size:     %d bytes\n", cp.Snapshot.Size())
			fmt.Fprintln(out, "Slides:")
			for _, id := range cp.Snapshot.UnitIDs() {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&slide, "slide", "", "Print the content of one slide")

	return cmd
}

func newCheckpointRestoreCmd(opts *globalOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "restore ID",
		Short: "Write a checkpoint's slides into a directory",
		Long: `Write every slide of a checkpoint into a directory as <id>.html files.
The checkpoint is kept and can be restored again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			cp, ok := s.engine.RestoreCheckpoint(args[0])
			if !ok {
				return fmt.Errorf("checkpoint %s not found", args[0])
			}
			if err := writeDeck(dir, cp.Snapshot); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d slides from %q to %s\n", len(cp.Snapshot), cp.Name, dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Slide directory")

	return cmd
}

func newCheckpointDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			ok, err := s.engine.DeleteCheckpoint(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("checkpoint %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted checkpoint %s\n", args[0])
			return nil
		},
	}
}

func newCheckpointDiffCmd(opts *globalOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "diff ID",
		Short: "Compare a checkpoint with the slides in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			cp, ok := s.engine.RestoreCheckpoint(args[0])
			if !ok {
				return fmt.Errorf("checkpoint %s not found", args[0])
			}
			slides, err := readDeck(dir)
			if err != nil && !os.IsNotExist(err) {
				return err
			}
			live := deckSnapshot(slides)

			ids := cp.Snapshot.UnitIDs()
			for _, id := range live.UnitIDs() {
				if _, ok := cp.Snapshot[id]; !ok {
					ids = append(ids, id)
				}
			}

			out := cmd.OutOrStdout()
			for _, id := range ids {
				lines := s.engine.Diff(cp.Snapshot[id], live[id])
				sum := diff.Summarize(lines)
				if !sum.HasChanges() {
					continue
				}
				fmt.Fprintf(out, "=== %s: %s\n", id, sum)
				fmt.Fprint(out, diff.Format(lines))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Slide directory")

	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/slidevault/internal/engine/diff"
)

func newDiffCmd(opts *globalOptions) *cobra.Command {
	var (
		strategy string
		window   int
		raw      bool
		summary  bool
	)

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Show a line diff between two slide files",
		Long: `Compare two slide files. HTML is normalized to one tag or text run per
line before diffing so formatting changes do not show up as edits.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			oldData, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			newData, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			diffOpts := cfg.DiffOptions()
			if cmd.Flags().Changed("strategy") {
				s, ok := diff.ParseStrategy(strategy)
				if !ok {
					return fmt.Errorf("unknown diff strategy %q", strategy)
				}
				diffOpts = append(diffOpts, diff.WithStrategy(s))
			}
			if cmd.Flags().Changed("window") {
				diffOpts = append(diffOpts, diff.WithWindow(window))
			}

			var lines []diff.Line
			if raw {
				lines = diff.Lines(diff.RawLines(string(oldData)), diff.RawLines(string(newData)), diffOpts...)
			} else {
				lines = diff.HTML(string(oldData), string(newData), diffOpts...)
			}

			out := cmd.OutOrStdout()
			if !summary {
				fmt.Fprint(out, diff.Format(lines))
			}
			fmt.Fprintln(out, diff.Summarize(lines))
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Diff strategy (window, lcs)")
	cmd.Flags().IntVar(&window, "window", diff.DefaultWindow, "Lookahead window for the window strategy")
	cmd.Flags().BoolVar(&raw, "raw", false, "Diff raw lines without HTML normalization")
	cmd.Flags().BoolVarP(&summary, "summary", "s", false, "Print only the change summary")

	return cmd
}

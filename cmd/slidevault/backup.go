package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var dir, title, output string
	var meta map[string]string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a slide directory as a JSON backup",
		Args:  cobra.NoArgs,
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

			var metadata map[string]any
			if len(meta) > 0 {
				metadata = make(map[string]any, len(meta))
				for k, v := range meta {
					metadata[k] = v
				}
			}

			data, err := s.engine.Export(title, slides, metadata)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d slides to %s\n", len(slides), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Slide directory")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (defaults to the directory name)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "Metadata entries (key=value)")

	return cmd
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON backup as a manual checkpoint",
		Long: `Validate a backup document and store its slides as a manual checkpoint
named "Imported: <title>". Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			s, err := openSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			doc, cp, err := s.engine.Import(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d slides as checkpoint %s (%s)\n",
				len(doc.Slides), cp.ID, cp.Name)
			return nil
		},
	}
}

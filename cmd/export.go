package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/bundle"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a walkthrough, audio included, to a bundle file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := bundle.RendererFor(exportFormat)
		if err != nil {
			return err
		}
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		wire, rec, err := b.transport.Export(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := renderer.Render(bundle.New(rec.ID, rec.CreatedAt, wire))
		if err != nil {
			return err
		}

		path := exportOutput
		if path == "" {
			ext := ".md"
			if exportFormat == "json" {
				ext = ".json"
			}
			path = slug(wire.Name) + ext
		}
		if path == "-" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing bundle: %w", err)
		}
		cmd.Printf("Exported %s to %s\n", rec.ID, path)
		return nil
	},
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a walkthrough name into a file name.
func slug(name string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "walkthrough"
	}
	return s
}

var importCmd = &cobra.Command{
	Use:   "import <bundle-file>",
	Short: "Store a walkthrough from a bundle file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuthor(); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", args[0])
			}
			return err
		}
		parsed, err := bundle.ParserFor(data).Parse(data)
		if err != nil {
			return err
		}

		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		res, err := b.transport.Import(cmd.Context(), parsed.Walkthrough)
		if err != nil {
			return err
		}
		cmd.Printf("Imported walkthrough %s (%q).\n", res.ID, parsed.Walkthrough.Name)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "bundle format: markdown or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path, - for stdout (default <name>.md)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "gen-docs",
		Short:  "Generate documentation for linever",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE:   runGenDocs,
	}
	cmd.Flags().String("dir", "docs", "output directory")
	cmd.Flags().String("kind", "man", "documentation kind (man, markdown or yaml)")
	return cmd
}

func runGenDocs(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")   //nolint:errcheck // flag name is hardcoded
	kind, _ := cmd.Flags().GetString("kind") //nolint:errcheck // flag name is hardcoded

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	root := cmd.Root()
	root.DisableAutoGenTag = true

	switch kind {
	case "man":
		header := &doc.GenManHeader{
			Title:   "LINEVER",
			Section: "1",
			Source:  "linever " + version,
		}
		return doc.GenManTree(root, header, dir)
	case "markdown":
		return doc.GenMarkdownTree(root, dir)
	case "yaml":
		return doc.GenYamlTree(root, dir)
	default:
		return fmt.Errorf("unknown kind %q (use man, markdown or yaml)", kind)
	}
}

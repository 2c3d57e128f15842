package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bamsammich/linever/internal/hashing"
	"github.com/bamsammich/linever/internal/report"
	versionpkg "github.com/bamsammich/linever/internal/version"
)

func newVersionsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "versions [flags] <file>...",
		Short: "Print the current digest of each file",
		Long: "versions prints the whole-file digest of every readable file.\n" +
			"It neither reads nor updates the baseline.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg := o.sessionConfig(args, nil)
			cfg.ReadOnly = true
			cfg.Reset = true

			m, err := versionpkg.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := m.Close(); cerr != nil {
					err = cerr
				}
			}()

			versions, err := m.FileVersions()
			if err != nil {
				return err
			}
			if err := report.WriteFileVersions(o.stdout, o.outFmt, versions); err != nil {
				return fmt.Errorf("write versions: %w", err)
			}
			return nil
		},
	}
}

func newAlgorithmsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the supported hash algorithms",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, name := range hashing.Default().Names() {
				if name == hashing.DefaultAlgorithm {
					fmt.Fprintf(o.stdout, "%s (default)\n", name)
					continue
				}
				fmt.Fprintln(o.stdout, name)
			}
			return nil
		},
	}
}

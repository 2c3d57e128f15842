package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bamsammich/linever/internal/watch"
)

func newWatchCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [flags] <file>...",
		Short: "Re-run check whenever a tracked file changes",
		Long: "watch runs check once, then again each time one of the files is\n" +
			"written, replaced or removed. It stops on interrupt or on a failed check.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := checkTolerant(ctx, o, args); err != nil {
				return err
			}
			return watch.Run(ctx, watch.Config{Paths: args, Debounce: o.debounce},
				func(ctx context.Context, changed []string) error {
					slog.Info("files changed", "paths", changed)
					return checkTolerant(ctx, o, args)
				})
		},
	}
	cmd.Flags().DurationVar(&o.debounce, "debounce", watch.DefaultDebounce, "quiet period before re-checking")
	return cmd
}

// checkTolerant runs check and swallows drift, which is the expected
// outcome while watching.
func checkTolerant(ctx context.Context, o *options, paths []string) error {
	err := check(ctx, o, paths)
	var exitErr *exitError
	if errors.As(err, &exitErr) && exitErr.code == 1 {
		return nil
	}
	return err
}

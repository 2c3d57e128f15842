package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bamsammich/linever/internal/event"
	"github.com/bamsammich/linever/internal/report"
	"github.com/bamsammich/linever/internal/stats"
	"github.com/bamsammich/linever/internal/ui"
	versionpkg "github.com/bamsammich/linever/internal/version"
)

func newCheckCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check [flags] <file>...",
		Short: "Compare files with the baseline and report line-level drift",
		Long: "check fingerprints the given files, reports modified and missing lines\n" +
			"against the stored baseline and then records the current state.\n" +
			"Exit status is 0 when nothing changed, 1 on drift and 2 on failure.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(cmd.Context(), o, args)
		},
	}
}

// sessionConfig builds the manager config for paths from the shared flags.
func (o *options) sessionConfig(paths []string, events chan<- event.Event) versionpkg.Config {
	return versionpkg.Config{
		Paths:     paths,
		StorePath: o.store,
		Algorithm: o.algorithm,
		ReadOnly:  o.readOnly,
		Reset:     o.reset,
		Events:    events,
		Stats:     stats.NewCollector(),
	}
}

// check runs one session over paths and renders its report. Drift is
// returned as exitError{1}.
func check(ctx context.Context, o *options, paths []string) (err error) {
	events := make(chan event.Event, 256)
	logged := logEvents(events)
	defer func() {
		close(events)
		<-logged
	}()

	m, err := versionpkg.Open(ctx, o.sessionConfig(paths, events))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			err = cerr
		}
	}()

	changed, err := m.HasVersionChanged()
	if err != nil {
		return err
	}
	if o.strict && !changed {
		if changed, err = m.HasContentChanged(); err != nil {
			return err
		}
	}

	if !o.quiet {
		if err := o.writeReport(m, changed); err != nil {
			return err
		}
		if o.outFmt == report.Text {
			fmt.Fprintln(o.stderr, ui.ScanSummary(m.Stats()))
		}
	}

	slog.Debug("check complete", "files", len(paths), "changed", changed, "algorithm", m.Algorithm())
	if changed {
		return &exitError{code: 1}
	}
	return nil
}

func (o *options) writeReport(m *versionpkg.Manager, changed bool) error {
	results, err := m.Report()
	if err != nil {
		return err
	}
	current, err := m.Version()
	if err != nil {
		return err
	}
	previous, err := m.PreviousVersion()
	if err != nil {
		return err
	}

	var theme *ui.Theme
	if o.colored {
		theme = ui.NewTheme(o.cfg.Theme)
	}
	summary := report.Summary{
		Algorithm:       m.Algorithm(),
		Version:         current,
		PreviousVersion: previous,
		Changed:         changed,
		Files:           results,
	}
	if err := report.Write(o.stdout, o.outFmt, summary, report.Options{
		ShowUnchanged: o.showUnchanged,
		Theme:         theme,
	}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// logEvents drains events into the default logger at debug level. The
// returned channel is closed once events is closed and drained.
func logEvents(events <-chan event.Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
			}
			if ev.Lines > 0 || ev.Size > 0 {
				attrs = append(attrs, slog.Int("lines", ev.Lines), slog.Int64("size", ev.Size))
			}
			if ev.Total > 0 {
				attrs = append(attrs, slog.Int("total", ev.Total))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelDebug, "linever.event", attrs...)
		}
	}()
	return done
}

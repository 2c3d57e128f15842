package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/linever/internal/config"
	"github.com/bamsammich/linever/internal/hashing"
	"github.com/bamsammich/linever/internal/report"
	"github.com/bamsammich/linever/internal/ui"
)

var version = "dev"

// defaultStore is the baseline location when neither --store nor the
// config file names one.
const defaultStore = ".linever.json"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the flags shared by every command.
type options struct {
	store         string
	algorithm     string
	format        string
	showUnchanged bool
	readOnly      bool
	reset         bool
	strict        bool
	verbose       bool
	quiet         bool
	logFile       string
	debounce      time.Duration

	cfg     config.Config
	logOut  io.Closer
	stdout  io.Writer
	stderr  io.Writer
	outFmt  report.Format
	colored bool
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o := &options{stdout: stdout, stderr: stderr}
	root := newRootCmd(o)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if o.logOut != nil {
		o.logOut.Close()
	}
	if err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd(o *options) *cobra.Command {
	var showVersion bool

	rootCmd := &cobra.Command{
		Use:   "linever [flags] <file>...",
		Short: "Line-level drift detection for tracked files",
		Long: "linever fingerprints every line of the files it tracks, compares them\n" +
			"with the baseline recorded on the previous run and reports which lines\n" +
			"were modified or went missing.",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(o.stdout, "linever %s\n", version)
				return nil
			}
			return check(cmd.Context(), o, args)
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&o.store, "store", "s", defaultStore, "baseline store (.json, or .db/.sqlite for SQLite)")
	pf.StringVarP(&o.algorithm, "algorithm", "H", hashing.DefaultAlgorithm, "hash algorithm (see 'linever algorithms')")
	pf.StringVarP(&o.format, "format", "f", string(report.Text), "output format (text, json or yaml)")
	pf.BoolVar(&o.showUnchanged, "show-unchanged", false, "list unchanged files in text reports")
	pf.BoolVar(&o.readOnly, "read-only", false, "do not update the baseline")
	pf.BoolVar(&o.reset, "reset", false, "ignore the stored baseline and start over")
	pf.BoolVar(&o.strict, "strict", false, "treat any content change, including inserted lines, as drift")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&o.quiet, "quiet", "q", false, "suppress all output except errors")
	pf.StringVar(&o.logFile, "log", "", "write structured JSON log to FILE")

	rootCmd.AddCommand(newCheckCmd(o))
	rootCmd.AddCommand(newVersionsCmd(o))
	rootCmd.AddCommand(newAlgorithmsCmd(o))
	rootCmd.AddCommand(newWatchCmd(o))
	rootCmd.AddCommand(newDocsCmd())

	return rootCmd
}

// setup configures logging, merges the config file and validates flags.
func (o *options) setup(cmd *cobra.Command) error {
	if err := o.setupLogging(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	o.cfg = cfg
	applyConfigDefaults(cmd.Flags(), cfg, o)

	o.outFmt, err = report.ParseFormat(o.format)
	if err != nil {
		return fmt.Errorf("invalid --format: %w", err)
	}

	o.colored = o.outFmt == report.Text && colorWriter(o.stdout)
	if cfg.Report.Color != nil && !*cfg.Report.Color {
		o.colored = false
	}
	return nil
}

func (o *options) setupLogging() error {
	logLevel := slog.LevelWarn
	if o.verbose {
		logLevel = slog.LevelDebug
	} else if !o.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(o.stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	if o.logFile != "" {
		lf, err := os.Create(o.logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		o.logOut = lf
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))
	return nil
}

// applyConfigDefaults applies config file values for flags not explicitly
// set on the command line.
func applyConfigDefaults(flags *pflag.FlagSet, cfg config.Config, o *options) {
	d := cfg.Defaults
	if !flags.Changed("algorithm") && d.Algorithm != nil {
		o.algorithm = *d.Algorithm
	}
	if !flags.Changed("store") && d.Store != nil {
		o.store = *d.Store
	}
	if !flags.Changed("format") && d.Format != nil {
		o.format = *d.Format
	}
	if !flags.Changed("show-unchanged") && d.ShowUnchanged != nil {
		o.showUnchanged = *d.ShowUnchanged
	}
	if !flags.Changed("strict") && d.Strict != nil {
		o.strict = *d.Strict
	}
	if !flags.Changed("read-only") && d.ReadOnly != nil {
		o.readOnly = *d.ReadOnly
	}
	if flags.Lookup("debounce") != nil && !flags.Changed("debounce") && cfg.Watch.Debounce != nil {
		o.debounce = cfg.Watch.Debounce.Duration
	}
}

func colorWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.ColorEnabled(f.Fd())
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// Package watch re-runs a check whenever a tracked file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 200 * time.Millisecond

// ErrNoPaths is returned when there is nothing to watch.
var ErrNoPaths = errors.New("no paths to watch")

// Config configures a watch loop.
type Config struct {
	Paths    []string
	Debounce time.Duration
}

// ChangeFunc is called with the tracked paths (as given in Config.Paths)
// that saw events since the last call.
type ChangeFunc func(ctx context.Context, changed []string) error

// Run watches the directories containing cfg.Paths and calls onChange once
// events for tracked files have been quiet for the debounce interval.
// Directories are watched rather than files so that editors which save by
// rename are still seen. Run returns nil when ctx is done, or the first
// error from onChange.
func Run(ctx context.Context, cfg Config, onChange ChangeFunc) error {
	if len(cfg.Paths) == 0 {
		return ErrNoPaths
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	tracked := make(map[string]string, len(cfg.Paths))
	var dirs []string
	for _, p := range cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		tracked[abs] = p
		if dir := filepath.Dir(abs); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	slog.Debug("watching", "files", len(tracked), "dirs", len(dirs), "debounce", debounce)

	pending := make(map[string]struct{})
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			orig, ok := tracked[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}
			slog.Debug("tracked file event", "path", orig, "op", ev.Op.String())
			pending[orig] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-timerC:
			timerC = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)

			if err := onChange(ctx, changed); err != nil {
				return err
			}
		}
	}
}

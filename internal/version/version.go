// Package version runs a change-detection session over a list of tracked
// files: it loads the stored baseline, fingerprints every file, compares
// the two, and on Close records the current state as the new baseline.
//
// A Manager moves through Unopened, Opened and Closed. Queries are only
// valid while Opened. Callers that successfully Open must Close, usually
// with defer, so the baseline is rewritten on every exit path.
package version

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bamsammich/linever/internal/baseline"
	"github.com/bamsammich/linever/internal/detect"
	"github.com/bamsammich/linever/internal/event"
	"github.com/bamsammich/linever/internal/fingerprint"
	"github.com/bamsammich/linever/internal/hashing"
	"github.com/bamsammich/linever/internal/stats"
)

var (
	// ErrInvalidState is returned when an operation is called outside the
	// state it requires.
	ErrInvalidState = errors.New("invalid session state")
	// ErrAlgorithmMismatch is returned when the stored baseline was recorded
	// with a different algorithm than the session is configured for.
	ErrAlgorithmMismatch = errors.New("baseline algorithm mismatch")
)

// Config describes a session.
type Config struct {
	Paths     []string       // tracked files, in report order
	StorePath string         // baseline location, used when Store is nil
	Store     baseline.Store // overrides StorePath
	Algorithm string         // defaults to hashing.DefaultAlgorithm
	ReadOnly  bool           // Close does not persist
	Reset     bool           // ignore any stored baseline
	Registry  *hashing.Registry
	Reader    fingerprint.Reader
	Events    chan<- event.Event
	Stats     *stats.Collector
}

type state int

const (
	unopened state = iota
	opened
	closed
)

func (s state) String() string {
	switch s {
	case unopened:
		return "unopened"
	case opened:
		return "opened"
	default:
		return "closed"
	}
}

// FileVersion is the current digest of one readable tracked file.
type FileVersion struct {
	Path string `json:"path" yaml:"path"`
	Hash string `json:"hash" yaml:"hash"`
}

// Manager is a single change-detection session.
type Manager struct {
	cfg      Config
	store    baseline.Store
	state    state
	provider hashing.Provider
	paths    []string
	previous *baseline.Baseline
	current  map[string]*fingerprint.Fingerprint
	results  []detect.Result
	version  string
}

// New returns an unopened Manager for cfg.
func New(cfg Config) *Manager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = hashing.DefaultAlgorithm
	}
	if cfg.Registry == nil {
		cfg.Registry = hashing.Default()
	}
	if cfg.Reader == nil {
		cfg.Reader = fingerprint.OSReader{}
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	store := cfg.Store
	if store == nil {
		store = baseline.OpenStore(cfg.StorePath)
	}
	return &Manager{cfg: cfg, store: store, paths: dedupe(cfg.Paths)}
}

// Open creates a Manager for cfg and opens it.
func Open(ctx context.Context, cfg Config) (*Manager, error) {
	m := New(cfg)
	if err := m.Open(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Open loads the baseline, fingerprints every tracked file and compares
// them. Unreadable files are recorded as such and never abort the scan.
// Any error leaves the Manager unopened.
func (m *Manager) Open(ctx context.Context) error {
	if m.state != unopened {
		return fmt.Errorf("open: session is %s: %w", m.state, ErrInvalidState)
	}

	provider, err := m.cfg.Registry.Resolve(m.cfg.Algorithm)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	previous, err := m.loadBaseline(provider)
	if err != nil {
		return err
	}

	current, err := m.scan(ctx, provider)
	if err != nil {
		return err
	}

	m.provider = provider
	m.previous = previous
	m.current = current
	m.results = compareAll(m.paths, previous, current)
	m.version = baseline.AggregateVersion(provider, m.paths, current)
	m.state = opened
	return nil
}

func (m *Manager) loadBaseline(provider hashing.Provider) (*baseline.Baseline, error) {
	storePath := m.store.Path()
	if m.cfg.Reset {
		slog.Debug("ignoring stored baseline", "store", storePath)
		return baseline.New(provider.Name()), nil
	}

	prev, err := m.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}
	if prev == nil {
		slog.Debug("no stored baseline", "store", storePath)
		return baseline.New(provider.Name()), nil
	}

	stored, err := m.cfg.Registry.Resolve(prev.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("load baseline %s: %w", storePath, err)
	}
	if stored.Name() != provider.Name() {
		return nil, fmt.Errorf("load baseline %s: recorded with %s, session uses %s: %w",
			storePath, stored.Name(), provider.Name(), ErrAlgorithmMismatch)
	}
	if err := prev.Validate(storePath, stored); err != nil {
		return nil, err
	}

	event.Emit(m.cfg.Events, event.Event{Type: event.BaselineLoaded, Path: storePath, Total: len(prev.Entries)})
	slog.Debug("loaded baseline", "store", storePath, "files", len(prev.Entries), "algorithm", prev.Algorithm)
	return prev, nil
}

func (m *Manager) scan(ctx context.Context, provider hashing.Provider) (map[string]*fingerprint.Fingerprint, error) {
	event.Emit(m.cfg.Events, event.Event{Type: event.ScanStarted, Total: len(m.paths)})

	collector := m.cfg.Stats
	var fileBytes int64
	opts := fingerprint.Options{
		OnLine: func(line []byte) {
			fileBytes += int64(len(line))
			collector.AddLinesHashed(1)
			collector.AddBytesHashed(int64(len(line)))
		},
	}

	current := make(map[string]*fingerprint.Fingerprint, len(m.paths))
	for _, path := range m.paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		fileBytes = 0
		fp, err := fingerprint.File(m.cfg.Reader, path, provider, opts)
		collector.AddFilesScanned(1)
		if err != nil {
			collector.AddFilesUnreadable(1)
			slog.Warn("tracked file unreadable", "path", path, "error", err)
			event.Emit(m.cfg.Events, event.Event{Type: event.FileUnreadable, Path: path, Error: err})
			continue
		}
		current[path] = fp
		event.Emit(m.cfg.Events, event.Event{Type: event.FileHashed, Path: path, Lines: fp.LineCount(), Size: fileBytes})
	}

	event.Emit(m.cfg.Events, event.Event{Type: event.ScanComplete, Total: len(m.paths)})
	slog.Debug("scan complete", "stats", collector.Snapshot().String())
	return current, nil
}

func compareAll(
	paths []string,
	previous *baseline.Baseline,
	current map[string]*fingerprint.Fingerprint,
) []detect.Result {
	results := make([]detect.Result, 0, len(paths))
	for _, path := range paths {
		base, cur := previous.Entries[path], current[path]
		if base == nil && cur == nil && previous.Tracks(path) {
			results = append(results, detect.StillMissing(path))
			continue
		}
		results = append(results, detect.Compare(path, base, cur))
	}
	for _, path := range previous.Paths {
		if !slices.Contains(paths, path) {
			results = append(results, detect.Removed(path, previous.Entries[path]))
		}
	}
	return results
}

// Close records the current fingerprints as the new baseline, unless the
// session is read-only. The Manager is closed even if persisting fails.
func (m *Manager) Close() error {
	if m.state != opened {
		return fmt.Errorf("close: session is %s: %w", m.state, ErrInvalidState)
	}
	m.state = closed

	if m.cfg.ReadOnly {
		return nil
	}

	next := baseline.FromFingerprints(m.provider, m.paths, m.current)
	if err := m.store.Save(next); err != nil {
		return fmt.Errorf("save baseline %s: %w", m.store.Path(), err)
	}
	event.Emit(m.cfg.Events, event.Event{Type: event.BaselineSaved, Path: m.store.Path(), Total: len(next.Entries)})
	slog.Debug("saved baseline", "store", m.store.Path(), "files", len(next.Entries))
	return nil
}

func (m *Manager) check(op string) error {
	if m.state != opened {
		return fmt.Errorf("%s: session is %s: %w", op, m.state, ErrInvalidState)
	}
	return nil
}

// HasVersionChanged reports whether any tracked file is new, missing or
// modified, including files dropped from or added to the tracked list.
func (m *Manager) HasVersionChanged() (bool, error) {
	if err := m.check("has version changed"); err != nil {
		return false, err
	}
	return slices.ContainsFunc(m.results, detect.Result.Changed), nil
}

// HasContentChanged is HasVersionChanged widened to any whole-file digest
// difference, which also catches pure insertions.
func (m *Manager) HasContentChanged() (bool, error) {
	if err := m.check("has content changed"); err != nil {
		return false, err
	}
	return slices.ContainsFunc(m.results, func(r detect.Result) bool {
		return r.Changed() || r.ContentChanged()
	}), nil
}

// Report returns one result per tracked file in input order, followed by
// files that the baseline tracked but this session does not.
func (m *Manager) Report() ([]detect.Result, error) {
	if err := m.check("version report"); err != nil {
		return nil, err
	}
	return slices.Clone(m.results), nil
}

// Version returns the aggregate digest of the current scan.
func (m *Manager) Version() (string, error) {
	if err := m.check("version"); err != nil {
		return "", err
	}
	return m.version, nil
}

// PreviousVersion returns the aggregate digest recorded in the stored
// baseline, or "" when there was none.
func (m *Manager) PreviousVersion() (string, error) {
	if err := m.check("previous version"); err != nil {
		return "", err
	}
	return m.previous.Version, nil
}

// FileVersions returns the current digest of every readable tracked file in
// input order.
func (m *Manager) FileVersions() ([]FileVersion, error) {
	if err := m.check("file versions"); err != nil {
		return nil, err
	}
	versions := make([]FileVersion, 0, len(m.current))
	for _, path := range m.paths {
		if fp, ok := m.current[path]; ok {
			versions = append(versions, FileVersion{Path: path, Hash: fp.FileHash})
		}
	}
	return versions, nil
}

// Algorithm returns the resolved algorithm name once opened, or the
// configured identifier before that.
func (m *Manager) Algorithm() string {
	if m.provider != nil {
		return m.provider.Name()
	}
	return m.cfg.Algorithm
}

// Stats returns the session's scan counters.
func (m *Manager) Stats() stats.Snapshot {
	return m.cfg.Stats.Snapshot()
}

func dedupe(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

package version_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/linever/internal/baseline"
	"github.com/bamsammich/linever/internal/detect"
	"github.com/bamsammich/linever/internal/event"
	"github.com/bamsammich/linever/internal/fingerprint"
	"github.com/bamsammich/linever/internal/hashing"
	"github.com/bamsammich/linever/internal/version"
)

type fixture struct {
	dir   string
	store string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	return &fixture{dir: dir, store: filepath.Join(dir, "rev.json")}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// session opens, runs fn, and closes a session over paths.
func (f *fixture) session(t *testing.T, cfg version.Config, fn func(m *version.Manager)) {
	t.Helper()
	if cfg.StorePath == "" && cfg.Store == nil {
		cfg.StorePath = f.store
	}
	m, err := version.Open(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Close()) }()
	fn(m)
}

func report(t *testing.T, m *version.Manager) []detect.Result {
	t.Helper()
	res, err := m.Report()
	require.NoError(t, err)
	return res
}

func changed(t *testing.T, m *version.Manager) bool {
	t.Helper()
	c, err := m.HasVersionChanged()
	require.NoError(t, err)
	return c
}

func currentVersion(t *testing.T, m *version.Manager) string {
	t.Helper()
	v, err := m.Version()
	require.NoError(t, err)
	return v
}

func TestFirstSessionReportsNew(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\nB\n")
	b := f.write(t, "b.txt", "C\n")

	f.session(t, version.Config{Paths: []string{a, b}}, func(m *version.Manager) {
		assert.True(t, changed(t, m))
		res := report(t, m)
		require.Len(t, res, 2)
		assert.Equal(t, a, res[0].Path)
		assert.Equal(t, detect.New, res[0].Status)
		assert.Equal(t, b, res[1].Path)
		assert.Equal(t, detect.New, res[1].Status)
	})
	assert.FileExists(t, f.store)
}

func TestIdempotentBaseline(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\nB\nC\n")
	b := f.write(t, "b.txt", "one\ntwo\n")
	cfg := version.Config{Paths: []string{a, b}, Algorithm: "sha256"}

	var first string
	f.session(t, cfg, func(m *version.Manager) { first = currentVersion(t, m) })

	f.session(t, cfg, func(m *version.Manager) {
		assert.False(t, changed(t, m))
		for _, r := range report(t, m) {
			assert.Equal(t, detect.Unchanged, r.Status, r.Path)
		}
		assert.Equal(t, first, currentVersion(t, m))

		prev, err := m.PreviousVersion()
		require.NoError(t, err)
		assert.Equal(t, first, prev)
	})
}

func TestLineChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		after    string
		status   detect.Status
		modified []int
		missing  []int
	}{
		{"true edit", "A\nZ\nC\n", detect.Modified, []int{2}, []int{2}},
		{"deletion", "A\nC\n", detect.Modified, []int{2}, []int{2}},
		{"pure insertion", "A\nX\nB\nC\n", detect.Unchanged, []int{}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			path := f.write(t, "f.txt", "A\nB\nC\n")
			cfg := version.Config{Paths: []string{path}}

			var before string
			f.session(t, cfg, func(m *version.Manager) { before = currentVersion(t, m) })

			f.write(t, "f.txt", tt.after)
			f.session(t, cfg, func(m *version.Manager) {
				res := report(t, m)
				require.Len(t, res, 1)
				assert.Equal(t, tt.status, res[0].Status)
				assert.Equal(t, tt.modified, res[0].ModifiedLines)
				assert.Equal(t, tt.missing, res[0].MissingLines)
				assert.NotContains(t, res[0].ModifiedLines, 1)
				assert.NotContains(t, res[0].ModifiedLines, 3)
				assert.Equal(t, tt.status != detect.Unchanged, changed(t, m))

				// The aggregate version follows file content regardless.
				assert.NotEqual(t, before, currentVersion(t, m))
				content, err := m.HasContentChanged()
				require.NoError(t, err)
				assert.True(t, content)
			})
		})
	}
}

func TestUnreadableFileIsMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\nB\nC\n")
	b := f.write(t, "b.txt", "keep\n")
	cfg := version.Config{Paths: []string{a, b}}
	f.session(t, cfg, func(*version.Manager) {})

	require.NoError(t, os.Remove(a))
	f.session(t, cfg, func(m *version.Manager) {
		res := report(t, m)
		require.Len(t, res, 2)
		assert.Equal(t, detect.Missing, res[0].Status)
		assert.False(t, res[0].Exists)
		assert.Empty(t, res[0].ModifiedLines)
		assert.Equal(t, []int{1, 2, 3}, res[0].MissingLines)
		assert.Equal(t, detect.Unchanged, res[1].Status)
		assert.True(t, changed(t, m))

		versions, err := m.FileVersions()
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, b, versions[0].Path)

		assert.Equal(t, int64(1), m.Stats().FilesUnreadable)
	})

	// Nothing changed since the previous session recorded a as unreadable.
	for range 2 {
		f.session(t, cfg, func(m *version.Manager) {
			res := report(t, m)
			require.Len(t, res, 2)
			assert.Equal(t, detect.Missing, res[0].Status)
			assert.True(t, res[0].AlreadyMissing)
			assert.Empty(t, res[0].MissingLines)
			assert.False(t, changed(t, m))

			content, err := m.HasContentChanged()
			require.NoError(t, err)
			assert.False(t, content)
		})
	}
}

func TestNeverReadableFileSettles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	gone := filepath.Join(f.dir, "gone.txt")
	cfg := version.Config{Paths: []string{a, gone}}

	var first string
	f.session(t, cfg, func(m *version.Manager) {
		res := report(t, m)
		require.Len(t, res, 2)
		assert.Equal(t, detect.New, res[1].Status)
		assert.False(t, res[1].Exists)
		assert.True(t, changed(t, m))
		first = currentVersion(t, m)
	})

	for range 2 {
		f.session(t, cfg, func(m *version.Manager) {
			assert.False(t, changed(t, m))
			assert.Equal(t, first, currentVersion(t, m))
		})
	}

	// Once it appears, the file is reported as new content.
	f.write(t, "gone.txt", "back\n")
	f.session(t, cfg, func(m *version.Manager) {
		res := report(t, m)
		assert.Equal(t, detect.New, res[1].Status)
		assert.True(t, res[1].Exists)
		assert.True(t, changed(t, m))
	})
}

func TestTrackingListChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\nB\n")
	b := f.write(t, "b.txt", "C\n")
	c := f.write(t, "c.txt", "D\n")
	f.session(t, version.Config{Paths: []string{a, b}}, func(*version.Manager) {})

	f.session(t, version.Config{Paths: []string{c, b}}, func(m *version.Manager) {
		assert.True(t, changed(t, m))
		res := report(t, m)
		require.Len(t, res, 3)

		assert.Equal(t, c, res[0].Path)
		assert.Equal(t, detect.New, res[0].Status)
		assert.Equal(t, b, res[1].Path)
		assert.Equal(t, detect.Unchanged, res[1].Status)

		// Dropped from tracking, reported after the tracked files.
		assert.Equal(t, a, res[2].Path)
		assert.Equal(t, detect.Missing, res[2].Status)
		assert.Equal(t, []int{1, 2}, res[2].MissingLines)
	})
}

func TestFileVersions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	b := f.write(t, "b.txt", "bee\n")
	a := f.write(t, "a.txt", "ay\n")
	p, err := hashing.Default().Resolve("xxh64")
	require.NoError(t, err)

	f.session(t, version.Config{Paths: []string{b, a, b}, Algorithm: "xxh64"}, func(m *version.Manager) {
		versions, err := m.FileVersions()
		require.NoError(t, err)
		assert.Equal(t, []version.FileVersion{
			{Path: b, Hash: p.Digest([]byte("bee\n"))},
			{Path: a, Hash: p.Digest([]byte("ay\n"))},
		}, versions)

		want := p.Digest([]byte(p.Digest([]byte("bee\n")) + p.Digest([]byte("ay\n"))))
		assert.Equal(t, want, currentVersion(t, m))
		assert.Equal(t, "xxh64", m.Algorithm())
	})
}

func TestVersionStableAcrossSessions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	b := f.write(t, "b.txt", "B\n")
	cfg := version.Config{Paths: []string{a, b}, ReadOnly: true}

	var v1, v2, v3 string
	f.session(t, cfg, func(m *version.Manager) { v1 = currentVersion(t, m) })
	f.session(t, cfg, func(m *version.Manager) { v2 = currentVersion(t, m) })
	f.write(t, "b.txt", "B2\n")
	f.session(t, cfg, func(m *version.Manager) { v3 = currentVersion(t, m) })

	assert.Equal(t, v1, v2)
	assert.NotEqual(t, v1, v3)
}

type countingReader struct {
	calls int
}

func (r *countingReader) ReadFile(path string) ([]byte, error) {
	r.calls++
	return fingerprint.OSReader{}.ReadFile(path)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	reader := &countingReader{}

	_, err := version.Open(context.Background(), version.Config{
		Paths:     []string{a},
		StorePath: f.store,
		Algorithm: "nope",
		Reader:    reader,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, hashing.ErrUnsupportedAlgorithm)
	assert.Zero(t, reader.calls)
	assert.NoFileExists(t, f.store)
}

func TestStoredAlgorithmUnsupported(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	require.NoError(t, os.WriteFile(f.store, []byte(`{"algorithm": "whirlpool", "files": {}}`), 0o644))

	_, err := version.Open(context.Background(), version.Config{Paths: []string{a}, StorePath: f.store})
	assert.ErrorIs(t, err, hashing.ErrUnsupportedAlgorithm)
}

func TestMalformedBaselineIsFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	corrupt := []byte(`{"algorithm": "md5", "files": {"` + a + `": {"fileHash": "short", "lineHashes": []}}}`)
	require.NoError(t, os.WriteFile(f.store, corrupt, 0o644))

	_, err := version.Open(context.Background(), version.Config{Paths: []string{a}, StorePath: f.store})
	require.Error(t, err)
	assert.ErrorIs(t, err, baseline.ErrMalformed)

	// The corrupt store is left for inspection.
	data, err := os.ReadFile(f.store)
	require.NoError(t, err)
	assert.Equal(t, corrupt, data)
}

func TestAlgorithmMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	f.session(t, version.Config{Paths: []string{a}, Algorithm: "md5"}, func(*version.Manager) {})

	_, err := version.Open(context.Background(), version.Config{
		Paths: []string{a}, StorePath: f.store, Algorithm: "sha256",
	})
	assert.ErrorIs(t, err, version.ErrAlgorithmMismatch)

	// Aliases that normalize to the same name are not a mismatch.
	f.session(t, version.Config{Paths: []string{a}, Algorithm: "MD5"}, func(m *version.Manager) {
		assert.False(t, changed(t, m))
	})

	f.session(t, version.Config{Paths: []string{a}, Algorithm: "sha256", Reset: true}, func(m *version.Manager) {
		res := report(t, m)
		require.Len(t, res, 1)
		assert.Equal(t, detect.New, res[0].Status)
	})

	b, err := baseline.NewJSONStore(f.store).Load()
	require.NoError(t, err)
	assert.Equal(t, "sha256", b.Algorithm)
}

func TestReadOnlyDoesNotPersist(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	f.session(t, version.Config{Paths: []string{a}, ReadOnly: true}, func(*version.Manager) {})
	assert.NoFileExists(t, f.store)
}

func TestSQLiteStoreSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\nB\nC\n")
	cfg := version.Config{Paths: []string{a}, StorePath: filepath.Join(f.dir, "rev.db")}
	f.session(t, cfg, func(*version.Manager) {})

	f.write(t, "a.txt", "A\nZ\nC\n")
	f.session(t, cfg, func(m *version.Manager) {
		res := report(t, m)
		require.Len(t, res, 1)
		assert.Equal(t, detect.Modified, res[0].Status)
		assert.Equal(t, []int{2}, res[0].ModifiedLines)
	})
}

func TestStateMachine(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	m := version.New(version.Config{Paths: []string{a}, StorePath: f.store})

	_, err := m.HasVersionChanged()
	require.ErrorIs(t, err, version.ErrInvalidState)
	_, err = m.Report()
	require.ErrorIs(t, err, version.ErrInvalidState)
	_, err = m.Version()
	require.ErrorIs(t, err, version.ErrInvalidState)
	_, err = m.FileVersions()
	require.ErrorIs(t, err, version.ErrInvalidState)
	require.ErrorIs(t, m.Close(), version.ErrInvalidState)

	require.NoError(t, m.Open(context.Background()))
	require.ErrorIs(t, m.Open(context.Background()), version.ErrInvalidState)
	_, err = m.Version()
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Close(), version.ErrInvalidState)
	_, err = m.Report()
	require.ErrorIs(t, err, version.ErrInvalidState)
	_, err = m.PreviousVersion()
	require.ErrorIs(t, err, version.ErrInvalidState)
	_, err = m.HasContentChanged()
	require.ErrorIs(t, err, version.ErrInvalidState)
}

func TestOpenCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := version.Open(ctx, version.Config{Paths: []string{a}, StorePath: f.store})
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, f.store)
}

func TestEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\nB\n")
	missing := filepath.Join(f.dir, "missing.txt")
	events := make(chan event.Event, 16)

	f.session(t, version.Config{Paths: []string{a, missing}, Events: events}, func(*version.Manager) {})
	close(events)

	var types []event.Type
	for ev := range events {
		types = append(types, ev.Type)
		if ev.Type == event.FileHashed {
			assert.Equal(t, a, ev.Path)
			assert.Equal(t, 2, ev.Lines)
			assert.Equal(t, int64(4), ev.Size)
		}
		if ev.Type == event.FileUnreadable {
			assert.Equal(t, missing, ev.Path)
			assert.Error(t, ev.Error)
		}
	}
	assert.Equal(t, []event.Type{
		event.ScanStarted,
		event.FileHashed,
		event.FileUnreadable,
		event.ScanComplete,
		event.BaselineSaved,
	}, types)
}

func TestCustomStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.write(t, "a.txt", "A\n")
	store := baseline.NewJSONStore(filepath.Join(f.dir, "custom", "store.json"))
	f.session(t, version.Config{Paths: []string{a}, Store: store}, func(*version.Manager) {})
	assert.FileExists(t, store.Path())
	assert.NoFileExists(t, f.store)
}

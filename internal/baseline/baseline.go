// Package baseline holds the persisted reference fingerprints that a
// session compares against, and the stores that read and write them.
package baseline

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bamsammich/linever/internal/fingerprint"
	"github.com/bamsammich/linever/internal/hashing"
)

// ErrMalformed is matched by every MalformedError.
var ErrMalformed = errors.New("malformed baseline")

// MalformedError reports a store that cannot be parsed or whose content is
// internally inconsistent.
type MalformedError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	msg := "malformed baseline " + e.Path + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedError) Unwrap() error { return e.Err }

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// Baseline is the set of fingerprints recorded by a previous session.
type Baseline struct {
	Algorithm string
	Version   string   // aggregate digest over Entries in Paths order
	Paths     []string // tracked paths in caller order, readable or not
	Entries   map[string]*fingerprint.Fingerprint

	// unordered is set when Paths was rebuilt from the entries because the
	// store recorded no file list. The recorded Version cannot be checked.
	unordered bool
}

// New returns an empty baseline for algorithm.
func New(algorithm string) *Baseline {
	return &Baseline{
		Algorithm: algorithm,
		Entries:   make(map[string]*fingerprint.Fingerprint),
	}
}

// FromFingerprints builds a baseline from a session's tracked paths and the
// fingerprints of the files that could be read. The version is computed
// with p.
func FromFingerprints(p hashing.Provider, paths []string, fps map[string]*fingerprint.Fingerprint) *Baseline {
	b := New(p.Name())
	b.Paths = slices.Clone(paths)
	for _, path := range paths {
		if fp, ok := fps[path]; ok {
			b.Entries[path] = fp
		}
	}
	b.Version = AggregateVersion(p, b.Paths, b.Entries)
	return b
}

// Tracks reports whether path was in the baseline's tracked list.
func (b *Baseline) Tracks(path string) bool {
	return slices.Contains(b.Paths, path)
}

// AggregateVersion digests the concatenated file hashes of entries in paths
// order. Paths without an entry contribute nothing.
func AggregateVersion(p hashing.Provider, paths []string, entries map[string]*fingerprint.Fingerprint) string {
	var sb strings.Builder
	for _, path := range paths {
		if fp, ok := entries[path]; ok {
			sb.WriteString(fp.FileHash)
		}
	}
	return p.Digest([]byte(sb.String()))
}

// Validate checks the baseline's internal consistency against the provider
// that produced it: every digest has the provider's width, every entry is
// tracked, and a recorded version matches the entries when the store kept
// the tracked order.
func (b *Baseline) Validate(storePath string, p hashing.Provider) error {
	malformed := func(format string, args ...any) error {
		return &MalformedError{Path: storePath, Reason: fmt.Sprintf(format, args...)}
	}

	width := len(p.Digest(nil))
	for path, fp := range b.Entries {
		if fp.Path != path {
			return malformed("entry %s records path %s", path, fp.Path)
		}
		if !b.Tracks(path) {
			return malformed("entry %s is not in the file list", path)
		}
		if len(fp.FileHash) != width {
			return malformed("entry %s: file hash has %d chars, want %d", path, len(fp.FileHash), width)
		}
		for i, h := range fp.LineHashes {
			if len(h) != width {
				return malformed("entry %s: line %d hash has %d chars, want %d", path, i+1, len(h), width)
			}
		}
	}

	seen := make(map[string]struct{}, len(b.Paths))
	for _, path := range b.Paths {
		if _, dup := seen[path]; dup {
			return malformed("file list repeats %s", path)
		}
		seen[path] = struct{}{}
	}

	if b.Version != "" && !b.unordered {
		if want := AggregateVersion(p, b.Paths, b.Entries); want != b.Version {
			return malformed("recorded version %s does not match entries (%s)", b.Version, want)
		}
	}
	return nil
}

// Store persists baselines.
type Store interface {
	// Load returns the stored baseline, or nil with no error if the store
	// does not exist yet.
	Load() (*Baseline, error)
	// Save replaces the stored baseline with b.
	Save(b *Baseline) error
	// Path returns the location of the store.
	Path() string
}

// OpenStore picks a store implementation from path's extension: SQLite for
// .db, .sqlite and .sqlite3, zstd-compressed JSON for .zst, JSON otherwise.
//
//nolint:ireturn // factory returns interface by design
func OpenStore(path string) Store {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path)
	case ".zst":
		return NewCompressedJSONStore(path)
	default:
		return NewJSONStore(path)
	}
}

package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zstd"

	"github.com/bamsammich/linever/internal/fingerprint"
)

// JSONStore keeps the baseline in a single JSON document, optionally
// zstd-compressed.
type JSONStore struct {
	path       string
	compressed bool
}

// NewJSONStore returns a store backed by the JSON file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// NewCompressedJSONStore returns a store backed by a zstd-compressed JSON
// file at path.
func NewCompressedJSONStore(path string) *JSONStore {
	return &JSONStore{path: path, compressed: true}
}

type jsonRecord struct {
	Algorithm string                    `json:"algorithm"`
	Version   string                    `json:"version,omitempty"`
	FileList  []string                  `json:"fileList,omitempty"`
	Files     map[string]jsonFileRecord `json:"files"`
}

type jsonFileRecord struct {
	FileHash   string   `json:"fileHash"`
	LineCount  *int     `json:"lineCount,omitempty"`
	LineHashes []string `json:"lineHashes"`
}

func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Load() (*Baseline, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil //nolint:nilnil // absent store is an empty baseline
		}
		return nil, fmt.Errorf("read baseline %s: %w", s.path, err)
	}
	if s.compressed {
		if data, err = decompress(data); err != nil {
			return nil, &MalformedError{Path: s.path, Reason: "decompress", Err: err}
		}
	}

	var rec jsonRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &MalformedError{Path: s.path, Reason: "decode", Err: err}
	}
	return rec.toBaseline(s.path)
}

func (rec *jsonRecord) toBaseline(storePath string) (*Baseline, error) {
	if rec.Algorithm == "" {
		return nil, &MalformedError{Path: storePath, Reason: "missing algorithm"}
	}
	if rec.Files == nil {
		return nil, &MalformedError{Path: storePath, Reason: "missing files"}
	}

	b := New(rec.Algorithm)
	b.Version = rec.Version
	b.Paths = rec.FileList
	if b.Paths == nil {
		// Stores without a file list track exactly the recorded files.
		for path := range rec.Files {
			b.Paths = append(b.Paths, path)
		}
		slices.Sort(b.Paths)
		b.unordered = true
	}

	for path, f := range rec.Files {
		if f.LineHashes == nil {
			f.LineHashes = []string{}
		}
		if f.LineCount != nil && *f.LineCount != len(f.LineHashes) {
			return nil, &MalformedError{
				Path:   storePath,
				Reason: fmt.Sprintf("%s records %d lines but %d line hashes", path, *f.LineCount, len(f.LineHashes)),
			}
		}
		b.Entries[path] = &fingerprint.Fingerprint{
			Path:       path,
			Algorithm:  rec.Algorithm,
			LineHashes: f.LineHashes,
			FileHash:   f.FileHash,
		}
	}
	return b, nil
}

func (s *JSONStore) Save(b *Baseline) error {
	rec := jsonRecord{
		Algorithm: b.Algorithm,
		Version:   b.Version,
		FileList:  b.Paths,
		Files:     make(map[string]jsonFileRecord, len(b.Entries)),
	}
	if rec.FileList == nil {
		rec.FileList = []string{}
	}
	for path, fp := range b.Entries {
		n := fp.LineCount()
		hashes := fp.LineHashes
		if hashes == nil {
			hashes = []string{}
		}
		rec.Files[path] = jsonFileRecord{FileHash: fp.FileHash, LineCount: &n, LineHashes: hashes}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	data = append(data, '\n')
	if s.compressed {
		if data, err = compress(data); err != nil {
			return fmt.Errorf("compress baseline: %w", err)
		}
	}
	return writeAtomic(s.path, data)
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// writeAtomic writes data to a temp file beside path and renames it into
// place so readers never observe a partial store.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

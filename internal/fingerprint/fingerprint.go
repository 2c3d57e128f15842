// Package fingerprint computes line-level digests for tracked text files.
package fingerprint

import (
	"bytes"
	"fmt"
	"os"

	"github.com/bamsammich/linever/internal/hashing"
)

// Fingerprint is the digest set describing one file's content at a point
// in time.
type Fingerprint struct {
	Path       string
	Algorithm  string
	LineHashes []string // one per line, in line order
	FileHash   string   // digest over the whole normalized content
}

// LineCount returns the number of lines the fingerprint was built from.
func (f *Fingerprint) LineCount() int {
	return len(f.LineHashes)
}

// FileAccessError reports a tracked file that could not be read.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// Reader loads file content by path.
type Reader interface {
	ReadFile(path string) ([]byte, error)
}

// OSReader reads from the local filesystem.
type OSReader struct{}

func (OSReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path) //nolint:gosec // G304: tracked paths come from the caller
}

// Options tunes fingerprint computation.
type Options struct {
	// OnLine, if set, is called with each line's bytes as it is hashed.
	OnLine func(line []byte)
}

// Normalize rewrites "\r\n" and lone "\r" terminators to "\n".
func Normalize(content []byte) []byte {
	if bytes.IndexByte(content, '\r') < 0 {
		return content
	}
	out := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(out, []byte("\r"), []byte("\n"))
}

// SplitLines splits normalized content into lines, each keeping its
// trailing "\n". Content after the final terminator forms a last line only
// if it is non-empty.
func SplitLines(content []byte) [][]byte {
	var lines [][]byte
	for len(content) > 0 {
		i := bytes.IndexByte(content, '\n')
		if i < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:i+1])
		content = content[i+1:]
	}
	return lines
}

// Compute builds the fingerprint of content using p.
func Compute(path string, content []byte, p hashing.Provider, opts Options) *Fingerprint {
	content = Normalize(content)
	lines := SplitLines(content)

	fp := &Fingerprint{
		Path:       path,
		Algorithm:  p.Name(),
		LineHashes: make([]string, 0, len(lines)),
	}
	for _, line := range lines {
		fp.LineHashes = append(fp.LineHashes, p.Digest(line))
		if opts.OnLine != nil {
			opts.OnLine(line)
		}
	}
	fp.FileHash = p.Digest(content)
	return fp
}

// File reads path through r and fingerprints it. Read failures are returned
// as *FileAccessError.
func File(r Reader, path string, p hashing.Provider, opts Options) (*Fingerprint, error) {
	content, err := r.ReadFile(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	return Compute(path, content, p, opts), nil
}

// Package detect classifies how a file's lines changed relative to its
// baseline fingerprint.
//
// Two questions are kept apart. Presence asks whether the content recorded
// at a baseline line still occurs anywhere in the current file, so lines
// that merely shifted are not reported. Modification asks whether a
// position present in both versions now holds different content and the
// old content is gone. Duplicate lines are interchangeable: membership is
// tested against a set of hashes, not a multiset.
package detect

import (
	"github.com/bamsammich/linever/internal/fingerprint"
)

// Status is the overall classification of one tracked file.
type Status int

const (
	Unchanged Status = iota + 1
	Modified
	Missing
	New
)

var statusNames = [...]string{
	Unchanged: "unchanged",
	Modified:  "modified",
	Missing:   "missing",
	New:       "new",
}

func (s Status) String() string {
	if s > 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// MarshalText renders the status name, so JSON and YAML reports carry
// strings rather than numbers.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the diff of one tracked file. Line numbers are 1-indexed and
// sorted; MissingLines refers to baseline positions.
type Result struct {
	Path          string `json:"path" yaml:"path"`
	Status        Status `json:"status" yaml:"status"`
	Exists        bool   `json:"exists" yaml:"exists"`
	ModifiedLines []int  `json:"modifiedLines" yaml:"modifiedLines"`
	MissingLines  []int  `json:"missingLines" yaml:"missingLines"`
	BaselineHash  string `json:"baselineHash,omitempty" yaml:"baselineHash,omitempty"`
	CurrentHash   string `json:"currentHash,omitempty" yaml:"currentHash,omitempty"`
	// AlreadyMissing marks a tracked file that was unreadable in the
	// baseline too. It is reported Missing but is not a change.
	AlreadyMissing bool `json:"alreadyMissing,omitempty" yaml:"alreadyMissing,omitempty"`
}

// Changed reports whether the status is anything other than Unchanged,
// ignoring files that were already missing from the baseline.
func (r Result) Changed() bool {
	return r.Status != Unchanged && !r.AlreadyMissing
}

// ContentChanged reports whether the whole-file digest differs from the
// baseline. A pure insertion leaves Status Unchanged but changes content.
func (r Result) ContentChanged() bool {
	return r.BaselineHash != r.CurrentHash
}

// Compare diffs the current fingerprint of path against its baseline
// fingerprint. A nil base means the path was not in the baseline; a nil cur
// means the file could not be read now.
func Compare(path string, base, cur *fingerprint.Fingerprint) Result {
	res := Result{
		Path:          path,
		Exists:        cur != nil,
		ModifiedLines: []int{},
		MissingLines:  []int{},
	}
	if base != nil {
		res.BaselineHash = base.FileHash
	}
	if cur != nil {
		res.CurrentHash = cur.FileHash
	}

	switch {
	case base == nil:
		res.Status = New
		return res
	case cur == nil:
		res.Status = Missing
		for i := range base.LineHashes {
			res.MissingLines = append(res.MissingLines, i+1)
		}
		return res
	}

	present := make(map[string]struct{}, len(cur.LineHashes))
	for _, h := range cur.LineHashes {
		present[h] = struct{}{}
	}

	for i, h := range base.LineHashes {
		if _, ok := present[h]; ok {
			continue
		}
		res.MissingLines = append(res.MissingLines, i+1)
		if i < len(cur.LineHashes) && cur.LineHashes[i] != h {
			res.ModifiedLines = append(res.ModifiedLines, i+1)
		}
	}

	res.Status = Unchanged
	if len(res.MissingLines) > 0 || len(res.ModifiedLines) > 0 {
		res.Status = Modified
	}
	return res
}

// StillMissing builds the result for a path the baseline tracked without
// an entry, because it was unreadable then, and that is still unreadable.
func StillMissing(path string) Result {
	res := Compare(path, nil, nil)
	res.Status = Missing
	res.AlreadyMissing = true
	return res
}

// Removed builds the result for a path that was tracked by the baseline but
// is no longer in the tracked list. Every recorded line is reported missing.
func Removed(path string, base *fingerprint.Fingerprint) Result {
	res := Compare(path, base, nil)
	if base == nil {
		res.Status = Missing
	}
	return res
}

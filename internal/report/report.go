// Package report renders session results as text, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bamsammich/linever/internal/detect"
	"github.com/bamsammich/linever/internal/ui"
	"github.com/bamsammich/linever/internal/version"
)

// Format selects an output encoding.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON, YAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (use text, json or yaml)", s)
	}
}

// Summary is everything a report shows about one session.
type Summary struct {
	Algorithm       string          `json:"algorithm" yaml:"algorithm"`
	Version         string          `json:"version" yaml:"version"`
	PreviousVersion string          `json:"previousVersion,omitempty" yaml:"previousVersion,omitempty"`
	Changed         bool            `json:"changed" yaml:"changed"`
	Files           []detect.Result `json:"files" yaml:"files"`
}

// Options tunes text rendering.
type Options struct {
	ShowUnchanged bool
	Theme         *ui.Theme // nil renders without color
}

const tagWidth = 20

// Write renders s to w in format f.
func Write(w io.Writer, f Format, s Summary, opts Options) error {
	switch f {
	case JSON:
		return writeJSON(w, s)
	case YAML:
		return writeYAML(w, s)
	default:
		return writeText(w, s, opts)
	}
}

func writeText(w io.Writer, s Summary, opts Options) error {
	var b strings.Builder
	for _, r := range s.Files {
		if r.Status == detect.Unchanged && !opts.ShowUnchanged {
			continue
		}
		fmt.Fprintf(&b, "%s %s\n", tag(r, opts.Theme), r.Path)
		if r.Status == detect.Modified {
			detail(&b, opts.Theme, "   Modified Lines: "+ui.FormatLines(r.ModifiedLines))
			detail(&b, opts.Theme, "   Missing Lines:  "+ui.FormatLines(r.MissingLines))
		}
	}
	fmt.Fprintf(&b, "\nVersion: %s\n", s.Version)

	_, err := io.WriteString(w, b.String())
	return err
}

// tag renders the padded status label. Padding happens before styling so
// escape sequences do not count toward the column width.
func tag(r detect.Result, th *ui.Theme) string {
	label := "[" + r.Status.String() + "]"
	if r.Status == detect.New && !r.Exists {
		label = "[new & missing]"
	}
	padded := fmt.Sprintf("%-*s", tagWidth, label)
	if th == nil {
		return padded
	}

	style := th.Unchanged
	switch r.Status {
	case detect.Modified:
		style = th.Modified
	case detect.Missing:
		style = th.Missing
	case detect.New:
		style = th.New
	case detect.Unchanged:
	}
	return style.Render(label) + padded[len(label):]
}

func detail(b *strings.Builder, th *ui.Theme, line string) {
	if th != nil {
		line = th.Detail.Render(line)
	}
	b.WriteString(line)
	b.WriteByte('\n')
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteFileVersions renders per-file digests. Text output is one
// "<hash>  <path>" line per file, the layout sha256sum uses.
func WriteFileVersions(w io.Writer, f Format, versions []version.FileVersion) error {
	switch f {
	case JSON:
		return writeJSON(w, versions)
	case YAML:
		return writeYAML(w, versions)
	default:
		var b strings.Builder
		for _, v := range versions {
			fmt.Fprintf(&b, "%s  %s\n", v.Hash, v.Path)
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
}

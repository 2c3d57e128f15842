package ui

import (
	"fmt"

	"github.com/bamsammich/linever/internal/stats"
)

// ScanSummary builds a one-line summary of a scan.
// Format: scanned ✓  files 12  lines 4,210  size 131.2 KiB  time 8ms  unreadable 0
func ScanSummary(snap stats.Snapshot) string {
	icon := "✓"
	if snap.FilesUnreadable > 0 {
		icon = "✗"
	}

	return fmt.Sprintf("scanned %s  files %s  lines %s  size %s  time %s  unreadable %d",
		icon,
		FormatCount(snap.FilesScanned),
		FormatCount(snap.LinesHashed),
		FormatBytes(snap.BytesHashed),
		FormatDuration(snap.Elapsed),
		snap.FilesUnreadable,
	)
}

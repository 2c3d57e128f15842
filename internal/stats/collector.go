package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks scan statistics using lock-free atomic counters.
type Collector struct {
	filesScanned    atomic.Int64
	filesUnreadable atomic.Int64
	linesHashed     atomic.Int64
	bytesHashed     atomic.Int64
	startTime       time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesScanned    int64
	FilesUnreadable int64
	LinesHashed     int64
	BytesHashed     int64
	Elapsed         time.Duration
}

func (c *Collector) AddFilesScanned(n int64)    { c.filesScanned.Add(n) }
func (c *Collector) AddFilesUnreadable(n int64) { c.filesUnreadable.Add(n) }
func (c *Collector) AddLinesHashed(n int64)     { c.linesHashed.Add(n) }
func (c *Collector) AddBytesHashed(n int64)     { c.bytesHashed.Add(n) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesScanned:    c.filesScanned.Load(),
		FilesUnreadable: c.filesUnreadable.Load(),
		LinesHashed:     c.linesHashed.Load(),
		BytesHashed:     c.bytesHashed.Load(),
		Elapsed:         c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"scanned=%d unreadable=%d lines=%d bytes=%d",
		s.FilesScanned, s.FilesUnreadable, s.LinesHashed, s.BytesHashed,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	BaselineLoaded Type = iota + 1
	ScanStarted
	FileHashed
	FileUnreadable
	ScanComplete
	BaselineSaved
)

var typeNames = [...]string{
	BaselineLoaded: "BaselineLoaded",
	ScanStarted:    "ScanStarted",
	FileHashed:     "FileHashed",
	FileUnreadable: "FileUnreadable",
	ScanComplete:   "ScanComplete",
	BaselineSaved:  "BaselineSaved",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from a version session.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // tracked file, or the store for baseline events
	Lines     int    // lines hashed (FileHashed)
	Size      int64  // bytes hashed (FileHashed)
	Total     int    // tracked files (ScanStarted, ScanComplete) or baseline entries
	Error     error
}

// Emit sends e on ch without blocking; events are dropped when nobody is
// keeping up. A nil channel is ignored.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}

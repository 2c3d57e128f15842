package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether the given file descriptor refers to a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// ColorEnabled reports whether styled output should be written to fd.
// NO_COLOR (any value) and TERM=dumb disable color even on a terminal.
func ColorEnabled(fd uintptr) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return IsTTY(fd)
}

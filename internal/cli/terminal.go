package cli

import (
	"io"
	"log/slog"

	"golang.org/x/term"
)

// TerminalDetector decides whether a file descriptor is an interactive terminal
type TerminalDetector interface {
	IsTerminal(fd int) bool
}

// DefaultTerminalDetector is the default implementation using golang.org/x/term
type DefaultTerminalDetector struct{}

// IsTerminal implements TerminalDetector
func (d *DefaultTerminalDetector) IsTerminal(fd int) bool {
	isTerminal := term.IsTerminal(fd)
	slog.Debug("terminal detection result", "fd", fd, "is_terminal", isTerminal)
	return isTerminal
}

// fileDescriptor is satisfied by *os.File
type fileDescriptor interface {
	Fd() uintptr
}

// isInteractiveTerminal reports whether w is backed by a terminal.
// Writers without a file descriptor, such as buffers, never are.
func (c *CLI) isInteractiveTerminal(w io.Writer) bool {
	f, ok := w.(fileDescriptor)
	if !ok {
		return false
	}
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
	return c.terminalDetector.IsTerminal(int(f.Fd()))
}

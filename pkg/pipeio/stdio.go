package pipeio

import (
	"os"

	"github.com/muesli/cancelreader"
)

// Stdio exposes the process's standard streams as a ReadWriteCloser.
// Where the platform supports it, stdin reads are cancelable so that a
// closed connection unblocks a pending read.
type Stdio struct {
	stdin       *os.File
	cancelStdin cancelreader.CancelReader

	stdout *os.File
}

// NewStdio creates a Stdio with cancelable stdin reading if supported
// by the platform.
func NewStdio() *Stdio {
	out := &Stdio{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}

	if cr, err := cancelreader.NewReader(os.Stdin); err == nil {
		out.cancelStdin = cr
	}

	return out
}

// Read reads from stdin, through the cancelable reader if available.
func (s *Stdio) Read(p []byte) (n int, err error) {
	if s.cancelStdin != nil {
		return s.cancelStdin.Read(p)
	}

	return s.stdin.Read(p)
}

// Write writes to stdout.
func (s *Stdio) Write(p []byte) (n int, err error) {
	return s.stdout.Write(p)
}

// Close cancels a pending stdin read if a cancelable reader is in use.
// The underlying standard streams stay open.
func (s *Stdio) Close() error {
	if s.cancelStdin != nil {
		s.cancelStdin.Cancel()
	}
	return nil
}

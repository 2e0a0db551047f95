// Package log provides colored console logging for dualdial.
// All output goes to stderr so that piped connection data on stdout
// stays clean.
package log

import (
	"io"
	"os"

	"github.com/fatih/color"
)

var red = color.New(color.FgRed).FprintfFunc()
var blue = color.New(color.FgBlue).FprintfFunc()
var yellow = color.New(color.FgYellow).FprintfFunc()

// Logger writes status messages to stderr. Verbose messages are
// suppressed unless enabled.
type Logger struct {
	out     io.Writer
	verbose bool
}

// NewLogger creates a Logger writing to stderr.
func NewLogger(verbose bool) *Logger {
	return &Logger{
		out:     os.Stderr,
		verbose: verbose,
	}
}

// ErrorMsg prints an error message in red.
func (l *Logger) ErrorMsg(format string, a ...interface{}) {
	red(l.out, "[!] Error: "+format, a...)
}

// InfoMsg prints an informational message in blue.
func (l *Logger) InfoMsg(format string, a ...interface{}) {
	blue(l.out, "[+] "+format, a...)
}

// VerboseMsg prints a diagnostic message in yellow, only when verbose
// logging is enabled. A trailing newline is added.
func (l *Logger) VerboseMsg(format string, a ...interface{}) {
	if !l.verbose {
		return
	}
	yellow(l.out, "[*] "+format+"\n", a...)
}

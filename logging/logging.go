// ABOUTME: Structured logger construction for commands and the MCP server
// ABOUTME: Wraps charmbracelet/log with a parsed level and a fixed prefix
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at level. Unknown levels fall back to
// info. A nil w writes to stderr so stdout stays free for command output and
// the MCP stdio transport.
func New(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "confirmed",
		ReportTimestamp: true,
	})
}

// Setup builds a logger with New and makes it the package default.
func Setup(level string, w io.Writer) *log.Logger {
	l := New(level, w)
	log.SetDefault(l)
	return l
}

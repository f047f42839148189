// Package output writes GitHub Actions step outputs so downstream workflow
// steps can consume the results of a run.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer appends key=value pairs to the step output file named by
// GITHUB_OUTPUT. Outside of a workflow run (no file configured) writes are
// a silent no-op.
type Writer struct {
	path string
}

func New() *Writer {
	return &Writer{path: os.Getenv("GITHUB_OUTPUT")}
}

func NewFile(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Set(key, value string) error {
	if w.path == "" {
		return nil
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open step output file: %w", err)
	}
	defer f.Close()
	return writePair(f, key, value)
}

// writePair uses the plain key=value form for single-line values and the
// heredoc form the runner requires for multiline ones.
func writePair(w io.Writer, key, value string) error {
	if key == "" || strings.ContainsAny(key, "=\n") {
		return fmt.Errorf("invalid step output key %q", key)
	}
	var err error
	if strings.Contains(value, "\n") {
		_, err = fmt.Fprintf(w, "%s<<EOF\n%s\nEOF\n", key, value)
	} else {
		_, err = fmt.Fprintf(w, "%s=%s\n", key, value)
	}
	if err != nil {
		return fmt.Errorf("write step output %s: %w", key, err)
	}
	return nil
}

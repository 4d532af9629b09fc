// Package debuglog provides an optional file sink for conversion diagnostics
package debuglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes timestamped lines to a file. A nil *Logger discards
// everything, so callers never need to check whether logging is on.
type Logger struct {
	mu  sync.Mutex
	out io.WriteCloser
	now func() time.Time
}

// Open creates or truncates path and starts logging to it
func Open(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	l := New(f)
	l.Logf("debug", "=== Debug logging started ===")
	return l, nil
}

// New logs to w
func New(w io.WriteCloser) *Logger {
	return &Logger{out: w, now: time.Now}
}

// OpenOrWarn opens path, or writes a warning to warn and returns nil when
// that fails. An empty path disables logging.
func OpenOrWarn(path string, warn io.Writer) *Logger {
	if path == "" {
		return nil
	}
	l, err := Open(path)
	if err != nil {
		fmt.Fprintf(warn, "warning: failed to open debug log %s: %v\n", path, err)
		return nil
	}
	return l
}

// Logf writes a message to the debug log
func (l *Logger) Logf(category, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return
	}
	ts := l.now().Format("15:04:05.000")
	fmt.Fprintf(l.out, "[%s] %-10s %s\n", ts, category, fmt.Sprintf(format, args...))
}

// Close stops logging and closes the file
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

package run

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Logger appends timestamped lines to a run's execution log. It is the
// operator-facing trail alongside the raw agent transcripts.
type Logger struct {
	file *os.File
	now  func() time.Time
}

// OpenLogger opens (or creates) the execution log for a run.
func (s *Store) OpenLogger(runID string) (*Logger, error) {
	dir := s.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir run dir: %w", err)
	}
	path := filepath.Join(dir, "exec.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open exec log: %w", err)
	}
	return &Logger{file: f, now: time.Now}, nil
}

// Logf writes one timestamped line.
func (l *Logger) Logf(format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}
	ts := l.now().UTC().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.file, "%s %s\n", ts, fmt.Sprintf(format, args...))
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Package audit keeps an append-only JSON-lines log of extraction runs.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry represents a single audit log entry.
type Entry struct {
	RunID      string         `json:"run_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Machine    string         `json:"machine"`
	Command    string         `json:"command"`
	Source     string         `json:"source"`
	Sheet      string         `json:"sheet"`
	Output     string         `json:"output,omitempty"`
	Records    int            `json:"records"`
	Dropped    map[string]int `json:"dropped,omitempty"`
	OK         bool           `json:"ok"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// Logger appends audit entries to a file.
type Logger struct {
	FilePath string
	Enabled  bool
}

// NewLogger creates a Logger. A disabled logger or an empty path makes Log
// a no-op.
func NewLogger(filePath string, enabled bool) *Logger {
	return &Logger{
		FilePath: filePath,
		Enabled:  enabled,
	}
}

// Log appends a single audit entry. Callers treat errors as best-effort and
// never fail a run over them.
func (l *Logger) Log(_ context.Context, entry Entry) error {
	if l == nil || !l.Enabled || l.FilePath == "" {
		return nil
	}

	if entry.Machine == "" {
		entry.Machine, _ = os.Hostname()
	}

	if err := os.MkdirAll(filepath.Dir(l.FilePath), 0755); err != nil {
		return fmt.Errorf("could not create audit directory: %w", err)
	}

	f, err := os.OpenFile(l.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("could not encode audit entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}
	return nil
}

// ReadEntries reads all audit entries from the log file.
func ReadEntries(filePath string) ([]Entry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue // skip malformed lines
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FilterEntries returns entries in [since, until] whose source contains
// source. failedOnly keeps runs that did not succeed.
func FilterEntries(entries []Entry, since, until time.Time, source string, failedOnly bool) []Entry {
	var result []Entry
	for _, e := range entries {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && e.Timestamp.After(until) {
			continue
		}
		if source != "" && !strings.Contains(e.Source, source) {
			continue
		}
		if failedOnly && e.OK {
			continue
		}
		result = append(result, e)
	}
	return result
}

// LogSize returns the size of the audit log in bytes, or 0 if not found.
func LogSize(filePath string) int64 {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Clear truncates the audit log file.
func Clear(filePath string) error {
	err := os.Truncate(filePath, 0)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

package server

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// LogEntry represents a single access log entry
type LogEntry struct {
	Timestamp   time.Time
	RequestID   string
	ClientIP    string
	ClientPort  int
	RequestLine string
	Status      int
	BytesSent   int64
	Duration    time.Duration
	Error       string
}

// AccessLogger appends one line per handled connection to a file, rotating
// it once it grows past maxSizeMB
type AccessLogger struct {
	fs          afero.Fs
	file        afero.File
	mu          sync.Mutex
	maxSizeMB   int
	currentSize int64
	filePath    string
}

// NewAccessLogger opens (or creates) the access log at filePath
func NewAccessLogger(fs afero.Fs, filePath string, maxSizeMB int) (*AccessLogger, error) {
	file, err := fs.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open access log: %w", err)
	}

	var size int64
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}

	return &AccessLogger{
		fs:          fs,
		file:        file,
		maxSizeMB:   maxSizeMB,
		currentSize: size,
		filePath:    filePath,
	}, nil
}

// Log writes an entry
func (l *AccessLogger) Log(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	if l.currentSize >= int64(l.maxSizeMB)*1024*1024 {
		l.rotate()
	}

	line := formatLogEntry(entry) + "\n"
	n, _ := l.file.WriteString(line)
	l.currentSize += int64(n)
}

// formatLogEntry renders an entry as a single line:
// time id client "request" status bytes duration [error]
func formatLogEntry(entry LogEntry) string {
	status := "-"
	if entry.Status > 0 {
		status = fmt.Sprintf("%d", entry.Status)
	}
	requestLine := entry.RequestLine
	if requestLine == "" {
		requestLine = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s:%d %q %s %d %s",
		entry.Timestamp.UTC().Format(time.RFC3339),
		entry.RequestID,
		entry.ClientIP,
		entry.ClientPort,
		requestLine,
		status,
		entry.BytesSent,
		entry.Duration.Round(time.Millisecond),
	)
	if entry.Error != "" {
		fmt.Fprintf(&b, " [ERROR: %s]", entry.Error)
	}
	return b.String()
}

// rotate moves the current file aside with a timestamp suffix and starts a
// new one. If the new file cannot be opened, later entries are dropped.
func (l *AccessLogger) rotate() {
	if err := l.file.Close(); err != nil {
		return
	}

	rotated := fmt.Sprintf("%s.%s", l.filePath, time.Now().Format("20060102-150405.000"))
	_ = l.fs.Rename(l.filePath, rotated)

	file, err := l.fs.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.file = nil
		return
	}
	l.file = file
	l.currentSize = 0
}

// Close closes the log file. Later Log calls are dropped.
func (l *AccessLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

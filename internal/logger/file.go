package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// FileLogger appends timestamped lines to a single log file. Safe for
// concurrent use; every write is synced so expiration events survive a
// crash of the demo process.
type FileLogger struct {
	file   *os.File
	mutex  sync.Mutex
	closed bool
}

// NewFileLogger opens (or creates) the log file in append mode.
func NewFileLogger(logfile string) (*FileLogger, error) {
	file, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &FileLogger{file: file}, nil
}

// Log writes a timestamped message to the file
func (fl *FileLogger) Log(ctx context.Context, message string) error {
	fl.mutex.Lock()
	defer fl.mutex.Unlock()

	if fl.closed {
		return fmt.Errorf("logger is closed")
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000000")
	if _, err := fmt.Fprintf(fl.file, "%s - %s\n", timestamp, message); err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}

	return fl.file.Sync()
}

// LogExpiration records one expired key
func (fl *FileLogger) LogExpiration(ctx context.Context, key string) error {
	return fl.Log(ctx, fmt.Sprintf("key expired: %s", key))
}

// Close closes the log file. Idempotent.
func (fl *FileLogger) Close() error {
	fl.mutex.Lock()
	defer fl.mutex.Unlock()

	if fl.closed {
		return nil
	}

	fl.closed = true
	return fl.file.Close()
}

package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*FileLogger, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "events.log")
	fl, err := NewFileLogger(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fl.Close() })
	return fl, path
}

func TestNewFileLogger_InvalidPath(t *testing.T) {
	fl, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "events.log"))

	require.Error(t, err)
	assert.Nil(t, fl)
	assert.Contains(t, err.Error(), "failed to open log file")
}

func TestFileLogger_Log(t *testing.T) {
	fl, path := newTestLogger(t)

	require.NoError(t, fl.Log(context.Background(), "demo started"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "demo started")

	// Line format: "<timestamp> - <message>"
	parts := strings.SplitN(lines[0], " - ", 2)
	require.Len(t, parts, 2)
	_, err = time.Parse("2006-01-02 15:04:05.000000", parts[0])
	assert.NoError(t, err)
}

func TestFileLogger_LogExpiration(t *testing.T) {
	fl, path := newTestLogger(t)

	require.NoError(t, fl.LogExpiration(context.Background(), "session:user123"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "key expired: session:user123")
}

func TestFileLogger_LogAfterClose(t *testing.T) {
	fl, _ := newTestLogger(t)
	require.NoError(t, fl.Close())

	err := fl.Log(context.Background(), "too late")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is closed")
}

func TestFileLogger_CloseIdempotent(t *testing.T) {
	fl, _ := newTestLogger(t)

	assert.NoError(t, fl.Close())
	assert.NoError(t, fl.Close())
}

func TestFileLogger_ConcurrentWrites(t *testing.T) {
	fl, path := newTestLogger(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, fl.LogExpiration(context.Background(), "cache:entry"))
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Len(t, lines, 10)
}

package coro

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Contains(t, LogLevel(99).String(), "UNKNOWN")
}

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	l := NewNoOpLogger()
	assert.False(t, l.IsEnabled(LevelError))
	l.Log(LogEntry{Level: LevelError, Message: "ignored"})
}

func TestWriterLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelWarn, &buf)

	l.Log(LogEntry{Level: LevelInfo, Message: "should be filtered"})
	assert.Empty(t, buf.String())

	l.Log(LogEntry{Level: LevelError, Category: "task", Message: "boom", Err: errors.New("cause")})
	out := buf.String()
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "task")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "cause")
}

func TestWriterLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelError, &buf)
	assert.False(t, l.IsEnabled(LevelInfo))
	l.SetLevel(LevelDebug)
	assert.True(t, l.IsEnabled(LevelInfo))
}

func TestSetStructuredLoggerIsGlobal(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelDebug, &buf)
	SetStructuredLogger(l)
	defer SetStructuredLogger(nil)

	logError("test", "something failed", errors.New("reason"))
	assert.True(t, strings.Contains(buf.String(), "something failed"))
}

func TestNewFileLoggerWritesJSONEntries(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/coro.log"
	l, err := NewFileLogger(LevelDebug, path)
	require.NoError(t, err)
	l.Log(LogEntry{Level: LevelInfo, Category: "pool", Message: "worker started", WorkerID: 3})
	assert.True(t, l.IsEnabled(LevelDebug))
	l.SetLevel(LevelWarn)
	assert.False(t, l.IsEnabled(LevelInfo))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(raw)
	assert.Contains(t, contents, `"category":"pool"`)
	assert.Contains(t, contents, `"worker":3`)
	assert.Contains(t, contents, "worker started")
}

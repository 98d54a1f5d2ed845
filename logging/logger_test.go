package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	factory := NewLoggingBuilder().
		AddConsole(ConsoleLoggerOptions{Output: &buf}).
		Build()

	factory.CreateLogger("Test").Info("Hello", Field{Key: "key", Value: "val"})

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "Test")
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, `"key": "val"`)
	assert.NotContains(t, out, "\033[")
}

func TestJsonLogger(t *testing.T) {
	var buf bytes.Buffer
	factory := NewLoggingBuilder().AddJson(JsonLoggerOptions{Output: &buf}).Build()

	factory.CreateLogger("Test").WithFields(Field{Key: "key", Value: "val"}).Warn("Hello")

	var data map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "WARN", data["level"])
	assert.Equal(t, "Test", data["category"])
	assert.Equal(t, "Hello", data["msg"])
	assert.Equal(t, "val", data["key"])
	assert.Contains(t, data, "time")
}

func TestMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	factory := NewLoggingBuilder().
		SetMinimumLevel(LogLevelWarn).
		AddJson(JsonLoggerOptions{Output: &buf}).
		Build()
	log := factory.CreateLogger("lvl")

	log.Debug("hidden")
	log.Info("hidden")
	log.Error("shown")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	buf.Reset()
	factory.SetMinimumLevel(LogLevelTrace)
	log.Trace("trace")
	assert.Contains(t, buf.String(), `"level":"TRACE"`)
}

func TestWithCategoryReplaces(t *testing.T) {
	var buf bytes.Buffer
	factory := NewLoggingBuilder().AddJson(JsonLoggerOptions{Output: &buf}).Build()

	factory.CreateLogger("first").WithCategory("second").Info("msg")

	var data map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "second", data["category"])
}

func TestMultipleOutputs(t *testing.T) {
	var console, js bytes.Buffer
	factory := NewLoggingBuilder().
		AddConsole(ConsoleLoggerOptions{Output: &console, IncludeTimestamp: false}).
		AddJson(JsonLoggerOptions{Output: &js}).
		Build()

	factory.CreateLogger("multi").Info("both")
	assert.Contains(t, console.String(), "both")
	assert.Contains(t, js.String(), "both")
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	b := NewLoggingBuilder().AddFile(path)
	require.NoError(t, b.Err())
	factory := b.Build()

	factory.CreateLogger("file").Info("persisted")
	require.NoError(t, factory.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted")

	bad := NewLoggingBuilder().AddFile(filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, bad.Err())
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, LogLevelDebug, l)

	l, ok = ParseLevel("nope")
	assert.False(t, ok)
	assert.Equal(t, LogLevelInfo, l)
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestNop(t *testing.T) {
	log := NewNop()
	log.Error("dropped")
	log.WithCategory("x").WithFields(Field{Key: "a", Value: 1}).Info("dropped")
}

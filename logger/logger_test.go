package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestConsole(buf *bytes.Buffer, level slog.Level, asJSON bool) *Console {
	return NewConsole(&Options{
		Output: buf,
		Level:  level,
		JSON:   asJSON,
	})
}

func TestConsoleTextOutput(t *testing.T) {
	var buf bytes.Buffer
	c := newTestConsole(&buf, slog.LevelInfo, false)

	c.Warn("No image files found")
	c.Error("bad %s", "thing")

	out := buf.String()
	require.Contains(t, out, "WARN")
	require.Contains(t, out, "No image files found")
	require.Contains(t, out, "ERROR")
	require.Contains(t, out, "bad thing")
	require.NotContains(t, out, "\033[")
	require.Equal(t, 2, strings.Count(out, "\n"))
}

func TestConsoleDebugRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	c := newTestConsole(&buf, slog.LevelInfo, false)
	require.False(t, c.Verbose())
	c.Debug("hidden")
	require.Empty(t, buf.String())

	buf.Reset()
	c = newTestConsole(&buf, slog.LevelDebug, false)
	require.True(t, c.Verbose())
	c.Debug("shown %d", 1)
	require.Contains(t, buf.String(), "shown 1")
}

func TestHandlerJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Options{Output: &buf, JSON: true, Colors: true})

	log.With("file", "a.jpg").WithGroup("size").Info("converted", "w", 200)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "converted", entry["msg"])
	require.Equal(t, "INFO", entry["level"])
	require.Equal(t, "a.jpg", entry["file"])
	require.EqualValues(t, 200, entry["size.w"])
}

func TestHandlerTextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Options{Output: &buf})

	log.Info("done", "ok", 2)
	require.Contains(t, buf.String(), "done ok=2")
}

func TestTimerEndLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	c := newTestConsole(&buf, slog.LevelDebug, false)

	timer := c.StartTimer("convert a.jpg")
	timer.StartTime = timer.StartTime.Add(-time.Second)
	d := timer.End()

	require.GreaterOrEqual(t, d, time.Second)
	require.Contains(t, buf.String(), "convert a.jpg took")
}

func TestTablePrint(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable([]string{"Metric", "Value"}, &buf)
	table.AddRow("Processed files", "2/2")
	table.AddRow("Failed files")
	table.Print()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	require.True(t, strings.HasPrefix(lines[0], "┌"))
	require.Contains(t, lines[3], "Processed files")
	require.Contains(t, lines[3], "2/2")
	require.True(t, strings.HasPrefix(lines[5], "└"))
	for _, line := range lines {
		require.Equal(t, len([]rune(lines[0])), len([]rune(line)))
	}
}

func TestBox(t *testing.T) {
	var buf bytes.Buffer
	Box(&buf, "img2webp", "Version: dev\nGit commit: unknown")

	out := buf.String()
	require.Contains(t, out, "img2webp")
	require.Contains(t, out, "│ Version: dev")
	require.Equal(t, 4, strings.Count(out, "\n"))
}

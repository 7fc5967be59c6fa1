package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Console wraps a slog.Logger with printf-style helpers for CLI diagnostics.
type Console struct {
	Logger    *slog.Logger
	Colorized bool
	out       io.Writer
}

func NewConsole(opts *Options) *Console {
	if opts == nil {
		opts = DefaultOptions()
	}
	h := NewHandler(opts)

	return &Console{
		Logger:    slog.New(h),
		Colorized: opts.Colors,
		out:       opts.Output,
	}
}

// Verbose reports whether debug records are emitted.
func (c *Console) Verbose() bool {
	return c.Logger.Enabled(context.Background(), slog.LevelDebug)
}

func (c *Console) StartTimer(name string) *Timer {
	return &Timer{
		Name:      name,
		StartTime: time.Now(),
		Console:   c,
	}
}

func (c *Console) decorate(color, symbol, format string, args ...any) string {
	msg := symbol + fmt.Sprintf(format, args...)
	if c.Colorized && color != "" {
		msg = color + Bold + msg + Reset
	}
	return msg
}

func (c *Console) Debug(format string, args ...any) {
	if !c.Verbose() {
		return
	}
	c.Logger.Debug(fmt.Sprintf(format, args...))
}

func (c *Console) Success(format string, args ...any) {
	c.Logger.Info(c.decorate(Green, "✓ ", format, args...))
}

func (c *Console) Info(format string, args ...any) {
	c.Logger.Info(c.decorate(Blue, "ℹ ", format, args...))
}

func (c *Console) Warn(format string, args ...any) {
	c.Logger.Warn(c.decorate(Yellow, "⚠ ", format, args...))
}

func (c *Console) Error(format string, args ...any) {
	c.Logger.Error(c.decorate(Red, "✖ ", format, args...))
}

func (c *Console) NewTable(headers []string) *Table {
	return NewTable(headers, c.out)
}

func (c *Console) Box(title string, content string) {
	Box(c.out, title, content)
}

// Box draws content inside a titled frame.
func Box(w io.Writer, title string, content string) {
	lines := strings.Split(content, "\n")
	width := len(title)
	for _, line := range lines {
		width = max(width, len(line))
	}
	width += 4

	fmt.Fprintln(w, "┌─"+title+"─"+strings.Repeat("─", width-len(title)-2)+"┐")
	for _, line := range lines {
		fmt.Fprintln(w, "│ "+line+strings.Repeat(" ", width-len(line))+" │")
	}
	fmt.Fprintln(w, "└"+strings.Repeat("─", width+2)+"┘")
}

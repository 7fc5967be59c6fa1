package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
)

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
)

type Options struct {
	Output     io.Writer
	TimeFormat string
	Level      slog.Level
	AddSource  bool
	JSON       bool
	Colors     bool
}

// DefaultOptions logs at info level to stderr, colored when stderr is a terminal.
func DefaultOptions() *Options {
	return &Options{
		Output:     os.Stderr,
		TimeFormat: "15:04:05.000",
		Level:      slog.LevelInfo,
		Colors:     ColorsEnabled(os.Stderr),
	}
}

// ColorsEnabled reports whether ANSI colors should be written to w.
func ColorsEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Handler is a slog.Handler writing either colored text lines or JSON lines.
type Handler struct {
	opts   *Options
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

func NewHandler(opts *Options) *Handler {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = "15:04:05.000"
	}
	if opts.JSON {
		opts.Colors = false
	}

	return &Handler{
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	for _, a := range attrs {
		a.Key = h.prefix() + a.Key
		h2.attrs = append(h2.attrs, a)
	}
	return h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

func (h *Handler) clone() *Handler {
	h2 := &Handler{
		opts:   h.opts,
		mu:     h.mu,
		attrs:  make([]slog.Attr, len(h.attrs)),
		groups: make([]string, len(h.groups)),
	}
	copy(h2.attrs, h.attrs)
	copy(h2.groups, h.groups)
	return h2
}

func (h *Handler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// collect flattens handler and record attributes into key/value pairs, in order.
func (h *Handler) collect(record slog.Record) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	attrs = append(attrs, h.attrs...)
	prefix := h.prefix()
	record.Attrs(func(a slog.Attr) bool {
		a.Key = prefix + a.Key
		attrs = append(attrs, a)
		return true
	})
	return attrs
}

func (h *Handler) source(record slog.Record) string {
	if !h.opts.AddSource || record.PC == 0 {
		return ""
	}
	fs := runtime.CallersFrames([]uintptr{record.PC})
	f, _ := fs.Next()
	file := f.File
	if i := strings.LastIndex(file, "/"); i >= 0 {
		file = file[i+1:]
	}
	return fmt.Sprintf("%s:%d", file, f.Line)
}

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	var line []byte
	var err error
	if h.opts.JSON {
		line, err = h.formatJSON(record)
	} else {
		line = h.formatText(record)
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.opts.Output.Write(line)
	return err
}

func (h *Handler) formatJSON(record slog.Record) ([]byte, error) {
	entry := map[string]any{
		"time":  record.Time.Format(h.opts.TimeFormat),
		"level": record.Level.String(),
		"msg":   record.Message,
	}
	if src := h.source(record); src != "" {
		entry["source"] = src
	}
	for _, a := range h.collect(record) {
		entry[a.Key] = a.Value.Resolve().Any()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

var levelColors = map[slog.Level]string{
	slog.LevelDebug: Cyan,
	slog.LevelInfo:  Green,
	slog.LevelWarn:  Yellow,
	slog.LevelError: Red,
}

func (h *Handler) formatText(record slog.Record) []byte {
	var b strings.Builder

	h.paint(&b, Blue, record.Time.Format(h.opts.TimeFormat))
	b.WriteByte(' ')
	h.paint(&b, levelColors[record.Level]+Bold, fmt.Sprintf("%-5s", record.Level.String()))
	b.WriteByte(' ')

	if src := h.source(record); src != "" {
		h.paint(&b, Magenta, src)
		b.WriteByte(' ')
	}

	b.WriteString(record.Message)

	for _, a := range h.collect(record) {
		b.WriteByte(' ')
		h.paint(&b, Cyan, a.Key+"=")
		b.WriteString(a.Value.Resolve().String())
	}

	b.WriteByte('\n')
	return []byte(b.String())
}

func (h *Handler) paint(b *strings.Builder, color, s string) {
	if h.opts.Colors && color != "" {
		b.WriteString(color)
		b.WriteString(s)
		b.WriteString(Reset)
		return
	}
	b.WriteString(s)
}

func NewLogger(opts *Options) *slog.Logger {
	return slog.New(NewHandler(opts))
}

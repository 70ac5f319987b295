package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// logBufferLines is how many log lines serve keeps for /api/logs.
const logBufferLines = 500

// ringBuffer stores the last N lines of log output.
type ringBuffer struct {
	mu    sync.RWMutex
	lines []string
	cap   int
	count int // total lines ever written
}

func newRingBuffer(cap int) *ringBuffer {
	return &ringBuffer{lines: make([]string, 0, cap), cap: cap}
}

func (b *ringBuffer) Write(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) < b.cap {
		b.lines = append(b.lines, line)
	} else {
		b.lines = append(b.lines[1:], line)
	}
	b.count++
}

func (b *ringBuffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *ringBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// ringHandler formats records as "15:04:05 LEVEL msg k=v" lines into a
// ring buffer.
type ringHandler struct {
	buf   *ringBuffer
	level slog.Leveler
	attrs []slog.Attr
}

func newRingHandler(buf *ringBuffer, level slog.Leveler) *ringHandler {
	return &ringHandler{buf: buf, level: level}
}

func (h *ringHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ringHandler) Handle(_ context.Context, r slog.Record) error {
	line := fmt.Sprintf("%s %s %s", r.Time.Format(time.TimeOnly), r.Level, r.Message)
	for _, a := range h.attrs {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	h.buf.Write(line)
	return nil
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *ringHandler) WithGroup(string) slog.Handler {
	return h
}

// teeHandler sends every record to all of its handlers.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

func logLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func setupLogger(debug bool) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(debug),
	})))
}

// setupServeLogger keeps logging to stderr and also captures records into
// the returned buffer.
func setupServeLogger(debug bool) *ringBuffer {
	buf := newRingBuffer(logBufferLines)
	level := logLevel(debug)
	slog.SetDefault(slog.New(teeHandler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		newRingHandler(buf, level),
	}))
	return buf
}

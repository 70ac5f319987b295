package main

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const defaultSSEKeepaliveInterval = 30 * time.Second

// keepaliveWriter serializes writes to an SSE stream and interleaves
// ": keepalive" comments so idle MCP connections are not dropped.
type keepaliveWriter struct {
	http.ResponseWriter
	mu   sync.Mutex
	done chan struct{}
}

func (w *keepaliveWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseWriter.Write(p)
}

func (w *keepaliveWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *keepaliveWriter) flushLocked() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// ping writes one keepalive comment and reports whether it succeeded.
func (w *keepaliveWriter) ping() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.ResponseWriter.Write([]byte(": keepalive\n\n")); err != nil {
		slog.Debug("sse: keepalive write failed", "error", err)
		return false
	}
	w.flushLocked()
	return true
}

func (w *keepaliveWriter) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if !w.ping() {
				return
			}
		}
	}
}

// sseWithKeepalive wraps GET requests (new SSE streams) with a
// keepaliveWriter. Other methods pass through.
func sseWithKeepalive(h http.Handler, interval time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || interval <= 0 {
			h.ServeHTTP(w, r)
			return
		}
		kw := &keepaliveWriter{ResponseWriter: w, done: make(chan struct{})}
		go kw.loop(interval)
		defer close(kw.done)
		h.ServeHTTP(kw, r)
	})
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lthms/thoughtpool/internal/report"
	"github.com/lthms/thoughtpool/internal/store"
)

const defaultAPILimit = 50

// httpServer serves the dashboard, the category tree, a small JSON API and
// the MCP tools over SSE.
type httpServer struct {
	tools     *tools
	logs      *ringBuffer // nil disables /api/logs content
	now       func() time.Time
	keepalive time.Duration
}

func newHTTPServer(t *tools, logs *ringBuffer) *httpServer {
	return &httpServer{tools: t, logs: logs, now: time.Now, keepalive: defaultSSEKeepaliveInterval}
}

func (s *httpServer) routes() *http.ServeMux {
	sse := mcp.NewSSEHandler(func(*http.Request) *mcp.Server {
		return newMCPServer(s.tools)
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/sse", sseWithKeepalive(sse, s.keepalive))
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /tree", s.handleTree)
	mux.HandleFunc("GET /api/thoughts", s.handleThoughts)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("http: encode response", "error", err)
	}
}

func httpError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("http: request failed", "path", r.URL.Path, "error", err)
	}
	http.Error(w, err.Error(), status)
}

// sinceParam reads ?days=N; no parameter means all time.
func sinceParam(r *http.Request, now time.Time) (time.Time, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return time.Time{}, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days <= 0 {
		return time.Time{}, fmt.Errorf("invalid days %q", v)
	}
	return now.AddDate(0, 0, -days), nil
}

func (s *httpServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	since, err := sinceParam(r, s.now())
	if err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}
	st, err := s.tools.store.Stats(r.Context(), since)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, err)
		return
	}
	page, err := report.NewDashboard(st, s.now()).HTML()
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func (s *httpServer) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := report.CategoryTree(r.Context(), s.tools.store)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tree.WriteHTML(w); err != nil {
		slog.Warn("http: write tree", "error", err)
	}
}

func (s *httpServer) handleThoughts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultAPILimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	status := q.Get("status")
	if status != "" && !store.ValidStatus(status) {
		httpError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %q", store.ErrInvalidStatus, status))
		return
	}

	thoughts, err := s.tools.store.LastNWithStatus(r.Context(), limit, status)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, err)
		return
	}
	if thoughts == nil {
		thoughts = []store.Thought{}
	}
	writeJSON(w, thoughts)
}

func (s *httpServer) handleStats(w http.ResponseWriter, r *http.Request) {
	since, err := sinceParam(r, s.now())
	if err != nil {
		httpError(w, r, http.StatusBadRequest, err)
		return
	}
	st, err := s.tools.store.Stats(r.Context(), since)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, err)
		return
	}
	queue, err := s.tools.store.QueueCounts(r.Context())
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]any{"stats": st, "queue": queue})
}

func (s *httpServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := []string{}
	count := 0
	if s.logs != nil {
		lines = s.logs.Lines()
		count = s.logs.Count()
	}
	writeJSON(w, map[string]any{"lines": lines, "count": count})
}

// serve listens on addr and serves until ctx is cancelled.
func (s *httpServer) serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("http server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package web

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Handlers holds dependencies for HTTP handlers. Every route is read-only.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	CaptureDir  string // served under /snapshots/; empty disables it
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, captureDir string, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		CaptureDir:  captureDir,
		staticFS:    staticFS,
	}
}

// HandleState returns the latest controller state as JSON, or 503 before
// the control loop has started.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	st, ok := h.Broadcaster.Latest()
	if !ok {
		http.Error(w, "controller not running", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

// HandleSnapshot serves one saved snapshot by file name.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.CaptureDir == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "invalid snapshot name", http.StatusBadRequest)
		return
	}
	path := filepath.Join(h.CaptureDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatusStream handles GET /status/stream for SSE. The latest state
// is sent first so a new page does not wait for the next change.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	if st, ok := h.Broadcaster.Latest(); ok {
		data, err := json.Marshal(StatusEvent{Time: time.Now().Format(time.RFC3339), Kind: "state", State: &st})
		if err == nil {
			w.Write([]byte("data: " + string(data) + "\n\n"))
		}
	}
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

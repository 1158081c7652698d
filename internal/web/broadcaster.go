package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/DualCam/internal/logic/controller"
)

// StatusEvent is a single SSE message.
type StatusEvent struct {
	Time  string            `json:"t"`
	Kind  string            `json:"kind"`
	Level string            `json:"l,omitempty"`
	Msg   string            `json:"msg,omitempty"`
	Slot  *int              `json:"slot,omitempty"`
	Path  string            `json:"path,omitempty"`
	State *controller.State `json:"state,omitempty"`
}

// StatusBroadcaster keeps the latest controller state and fans events out
// to SSE clients. Observe runs on the control loop; everything else may
// run on HTTP goroutines.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
	latest  controller.State
	hasData bool
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Latest returns the last observed state and whether one was seen.
func (b *StatusBroadcaster) Latest() (controller.State, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest, b.hasData
}

// Observe implements controller.Observer. The event's state snapshot is
// stored and the event forwarded to subscribers.
func (b *StatusBroadcaster) Observe(e controller.Event) {
	st := e.State
	b.mu.Lock()
	b.latest = st
	b.hasData = true
	b.mu.Unlock()

	evt := StatusEvent{
		Time:  e.Time.Format(time.RFC3339),
		Kind:  e.Kind.String(),
		State: &st,
	}
	switch e.Kind {
	case controller.EventSnapshot:
		slot := e.Slot
		evt.Slot = &slot
		evt.Path = e.Path
		evt.Level = "info"
		evt.Msg = "snapshot saved: " + e.Path
	case controller.EventError:
		if e.Slot >= 0 {
			slot := e.Slot
			evt.Slot = &slot
		}
		evt.Level = "error"
		if e.Err != nil {
			evt.Msg = e.Err.Error()
		}
	}
	b.send(evt)
}

// Broadcast sends a message to all subscribed clients.
// Messages are sent as JSON: {"t":"...","kind":"log","l":"info","msg":"..."}
// Slow clients may miss messages (non-blocking, buffered).
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Kind:  "log",
		Level: level,
		Msg:   msg,
	})
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

func (b *StatusBroadcaster) send(evt StatusEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
// Lines containing "ERROR" are sent with level "error".
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with log.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		level := "info"
		if strings.Contains(msg, "ERROR") {
			level = "error"
		}
		w.b.Broadcast(level, msg)
	}
	return len(p), nil
}

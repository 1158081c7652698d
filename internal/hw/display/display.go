// Package display presents the composed preview surface and reads the
// operator's keys from the same window.
package display

import (
	"time"

	"github.com/cjeanneret/DualCam/internal/debug"
	"github.com/cjeanneret/DualCam/internal/input"
	"gocv.io/x/gocv"
)

// Window is a HighGUI window. It must be created and used from the main
// goroutine.
type Window struct {
	win    *gocv.Window
	closed bool
}

// NewWindow opens a window titled title.
func NewWindow(title string) *Window {
	debug.Verbose("Opening preview window %q", title)
	return &Window{win: gocv.NewWindow(title)}
}

// Show draws frame in the window. The window repaints on the next Poll.
func (w *Window) Show(frame gocv.Mat) error {
	if w.closed {
		return nil
	}
	w.win.IMShow(frame)
	return nil
}

// Poll waits up to timeout for a key in the window. Sub-millisecond
// timeouts still wait 1 ms so the window keeps processing events.
func (w *Window) Poll(timeout time.Duration) (input.Key, bool) {
	if w.closed {
		time.Sleep(timeout)
		return 0, false
	}
	ms := int(timeout / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	code := w.win.WaitKey(ms)
	if code < 0 {
		return 0, false
	}
	return input.Key(code & 0xFF), true
}

// Close destroys the window. It is safe to call more than once.
func (w *Window) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.win.Close()
}

// Headless discards frames. It is used when no display is attached; keys
// then come from GPIO buttons only.
type Headless struct {
	Frames int // frames received
	closed bool
}

// Show counts frame and drops it.
func (h *Headless) Show(frame gocv.Mat) error {
	if !h.closed {
		h.Frames++
	}
	return nil
}

// Close marks the display as released.
func (h *Headless) Close() error {
	h.closed = true
	return nil
}

// Closed reports whether Close was called.
func (h *Headless) Closed() bool { return h.closed }

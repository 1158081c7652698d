package display

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestHeadless_CountsUntilClosed(t *testing.T) {
	h := &Headless{}
	frame := gocv.NewMatWithSize(4, 8, gocv.MatTypeCV8UC3)
	defer frame.Close()

	for i := 0; i < 3; i++ {
		if err := h.Show(frame); err != nil {
			t.Fatalf("Show: %v", err)
		}
	}
	if h.Frames != 3 {
		t.Errorf("Frames = %d, want 3", h.Frames)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	h.Show(frame)
	if h.Frames != 3 {
		t.Errorf("frame counted after Close: %d", h.Frames)
	}
	if !h.Closed() {
		t.Error("Closed() = false after Close")
	}
}

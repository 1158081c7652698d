package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/cjeanneret/DualCam/internal/hw/camera"
	"gocv.io/x/gocv"
)

// Overlay layout. The panel is the only region the overlay draws on,
// apart from the active-slot border.
var (
	PanelRect = image.Rect(10, 10, 310, 125)

	panelAlpha  = 0.5
	textOrigin  = image.Pt(20, 30)
	lineSpacing = 20
	textScale   = 0.5
	textColor   = color.RGBA{255, 255, 255, 0}
	borderColor = color.RGBA{0, 255, 0, 0}
	borderWidth = 2
)

// Overlay is the information drawn on a preview frame.
type Overlay struct {
	Label      string
	Active     bool
	Time       time.Time
	Exposure   int
	Brightness int
}

// Params controls one pipeline run. A nil Overlay yields a clean frame,
// as saved to disk.
type Params struct {
	Slot       int
	Brightness int
	Overlay    *Overlay
}

// Process acquires one frame from s, applies brightness and, when
// requested, the overlay. The returned Mat is owned by the caller.
func Process(s camera.Sensor, p Params) (gocv.Mat, error) {
	frame, err := Acquire(s, p.Slot)
	if err != nil {
		return frame, err
	}
	ApplyBrightness(&frame, p.Brightness)
	if p.Overlay != nil {
		DrawOverlay(&frame, *p.Overlay)
	}
	return frame, nil
}

// Acquire captures one raw frame. Failures are returned as
// *camera.CaptureError and never retried.
func Acquire(s camera.Sensor, slot int) (gocv.Mat, error) {
	frame, err := s.Capture()
	if err != nil {
		frame.Close()
		return gocv.NewMat(), &camera.CaptureError{Slot: slot, Err: err}
	}
	if frame.Empty() {
		frame.Close()
		return gocv.NewMat(), &camera.CaptureError{Slot: slot, Err: camera.ErrNoFrame}
	}
	return frame, nil
}

// ApplyBrightness adds brightness to every channel, saturating at the
// channel range. Zero is a no-op.
func ApplyBrightness(frame *gocv.Mat, brightness int) {
	if brightness == 0 {
		return
	}
	frame.ConvertToWithParams(frame, frame.Type(), 1, float32(brightness))
}

// DrawOverlay draws the information panel in the top-left corner and,
// for the active slot, a border around the whole frame.
func DrawOverlay(frame *gocv.Mat, o Overlay) {
	width, height := frame.Cols(), frame.Rows()
	bounds := image.Rect(0, 0, width, height)

	panel := PanelRect.Intersect(bounds)
	if !panel.Empty() {
		roi := frame.Region(panel)
		dark := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), roi.Rows(), roi.Cols(), roi.Type())
		gocv.AddWeighted(roi, 1-panelAlpha, dark, panelAlpha, 0, &roi)
		dark.Close()
		roi.Close()
	}

	header := o.Label
	if o.Active {
		header += " (ACTIVE)"
	}
	lines := []string{
		header,
		"Time: " + o.Time.Format("2006-01-02 15:04:05"),
		fmt.Sprintf("Resolution: %dx%d", width, height),
		fmt.Sprintf("Exposure: %d", o.Exposure),
		fmt.Sprintf("Brightness: %d", o.Brightness),
	}
	for i, text := range lines {
		org := image.Pt(textOrigin.X, textOrigin.Y+i*lineSpacing)
		if !org.In(panel) {
			break
		}
		gocv.PutText(frame, text, org, gocv.FontHersheySimplex, textScale, textColor, 1)
	}

	if o.Active {
		gocv.Rectangle(frame, image.Rect(0, 0, width-1, height-1), borderColor, borderWidth)
	}
}

// Compose places frames side by side into dst. Empty frames (failed
// captures) are replaced by a "NO SIGNAL" placeholder and frames of a
// different size are scaled to the first available frame's size.
// It reports false when no frame is available.
func Compose(frames []gocv.Mat, dst *gocv.Mat) bool {
	ref := -1
	for i := range frames {
		if !frames[i].Empty() {
			ref = i
			break
		}
	}
	if ref < 0 {
		return false
	}
	size := image.Pt(frames[ref].Cols(), frames[ref].Rows())
	typ := frames[ref].Type()

	parts := make([]gocv.Mat, len(frames))
	for i := range frames {
		switch {
		case frames[i].Empty():
			parts[i] = placeholder(size, typ)
		case frames[i].Cols() != size.X || frames[i].Rows() != size.Y:
			parts[i] = gocv.NewMat()
			gocv.Resize(frames[i], &parts[i], size, 0, 0, gocv.InterpolationLinear)
		default:
			parts[i] = frames[i].Clone()
		}
	}
	defer func() {
		for i := range parts {
			parts[i].Close()
		}
	}()

	parts[0].CopyTo(dst)
	for i := 1; i < len(parts); i++ {
		joined := gocv.NewMat()
		gocv.Hconcat(*dst, parts[i], &joined)
		joined.CopyTo(dst)
		joined.Close()
	}
	return true
}

func placeholder(size image.Point, typ gocv.MatType) gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, typ)
	org := image.Pt(size.X/2-60, size.Y/2)
	gocv.PutText(&m, "NO SIGNAL", org, gocv.FontHersheySimplex, 0.8, textColor, 2)
	return m
}

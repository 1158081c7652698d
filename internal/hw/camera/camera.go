package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ControlExposure is the control name for exposure compensation (EV steps).
const ControlExposure = "ExposureValue"

// Resolution is a capture size in pixels.
type Resolution struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Sensor is the high-level interface used by the rest of the application.
// It represents one imaging device regardless of how it's driven
// (V4L2, libcamera, a synthetic source, etc.).
//
// All calls are synchronous. Capture returns a Mat owned by the caller.
type Sensor interface {
	// Configure sets the capture resolution. Must be called while stopped.
	Configure(res Resolution) error
	// Start begins streaming.
	Start() error
	// Stop ends streaming and releases the stream resources.
	Stop() error
	// Capture returns one frame (BGR, 8 bits per channel).
	Capture() (gocv.Mat, error)
	// SetControl writes a named device control.
	SetControl(name string, value float64) error
}

// Opener opens the sensor with the given device index.
type Opener func(index int) (Sensor, error)

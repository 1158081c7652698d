package camera

import (
	"errors"
	"fmt"
)

// ErrNoFrame is returned when a device delivers no data.
var ErrNoFrame = errors.New("camera: no frame data")

// ErrNotStreaming is returned when capturing from a stopped sensor.
var ErrNotStreaming = errors.New("camera: not streaming")

// DeviceInitError reports a sensor that could not be opened, configured or
// started at startup. It is fatal.
type DeviceInitError struct {
	Slot int
	Err  error
}

func (e *DeviceInitError) Error() string {
	return fmt.Sprintf("camera %d: init failed: %v", e.Slot+1, e.Err)
}

func (e *DeviceInitError) Unwrap() error { return e.Err }

// CaptureError reports a failed frame acquisition. The frame is skipped.
type CaptureError struct {
	Slot int
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("camera %d: capture failed: %v", e.Slot+1, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ReconfigurationError reports a sensor that could not be stopped,
// reconfigured or restarted. The sensor is unusable until restart.
type ReconfigurationError struct {
	Slot       int
	Resolution Resolution
	Err        error
}

func (e *ReconfigurationError) Error() string {
	return fmt.Sprintf("camera %d: reconfiguration to %s failed: %v", e.Slot+1, e.Resolution, e.Err)
}

func (e *ReconfigurationError) Unwrap() error { return e.Err }

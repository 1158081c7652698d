package camera

import (
	"fmt"
	"math"

	"github.com/cjeanneret/DualCam/internal/debug"
	"gocv.io/x/gocv"
)

// VideoSensor is a Sensor backed by an OpenCV VideoCapture device
// (V4L2 on a Raspberry Pi, or any USB camera).
//
// Stop releases the device; Start reopens it with the configured
// resolution and re-applies any controls set so far.
//
// ControlExposure is compensation in EV steps. It is written relative to
// the exposure the device reported on the first Start.
type VideoSensor struct {
	index    int
	capture  *gocv.VideoCapture
	res      Resolution
	controls map[string]float64

	baseline    float64
	hasBaseline bool
}

// OpenVideo opens the capture device at index. The device is left open
// but Start must still be called before capturing.
func OpenVideo(index int) (Sensor, error) {
	debug.Verbose("Camera: opening video device %d", index)
	vc, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return nil, fmt.Errorf("open video device %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open video device %d: device not available", index)
	}
	return &VideoSensor{
		index:    index,
		capture:  vc,
		controls: make(map[string]float64),
	}, nil
}

func (v *VideoSensor) Configure(res Resolution) error {
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("invalid resolution %s", res)
	}
	debug.Verbose("Camera: device %d configured for %s", v.index, res)
	v.res = res
	if v.capture != nil {
		v.applyResolution()
	}
	return nil
}

func (v *VideoSensor) Start() error {
	if v.capture == nil {
		vc, err := gocv.VideoCaptureDevice(v.index)
		if err != nil {
			return fmt.Errorf("reopen video device %d: %w", v.index, err)
		}
		if !vc.IsOpened() {
			vc.Close()
			return fmt.Errorf("reopen video device %d: device not available", v.index)
		}
		v.capture = vc
	}
	v.applyResolution()
	if !v.hasBaseline {
		v.baseline = v.capture.Get(gocv.VideoCaptureExposure)
		v.hasBaseline = true
		debug.Verbose("Camera: device %d exposure baseline %v", v.index, v.baseline)
	}
	for name, value := range v.controls {
		if err := v.setProperty(name, value); err != nil {
			return err
		}
	}
	debug.Verbose("Camera: device %d streaming at %s", v.index, v.res)
	return nil
}

func (v *VideoSensor) Stop() error {
	if v.capture == nil {
		return nil
	}
	debug.Verbose("Camera: stopping device %d", v.index)
	err := v.capture.Close()
	v.capture = nil
	return err
}

func (v *VideoSensor) Capture() (gocv.Mat, error) {
	if v.capture == nil {
		return gocv.NewMat(), ErrNotStreaming
	}
	frame := gocv.NewMat()
	if ok := v.capture.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.NewMat(), ErrNoFrame
	}
	return frame, nil
}

func (v *VideoSensor) SetControl(name string, value float64) error {
	if _, ok := videoProperties[name]; !ok {
		return fmt.Errorf("unsupported control %q", name)
	}
	v.controls[name] = value
	if v.capture == nil || !v.hasBaseline {
		return nil // applied by Start
	}
	return v.setProperty(name, value)
}

var videoProperties = map[string]gocv.VideoCaptureProperties{
	ControlExposure: gocv.VideoCaptureExposure,
}

func (v *VideoSensor) setProperty(name string, value float64) error {
	prop, ok := videoProperties[name]
	if !ok {
		return fmt.Errorf("unsupported control %q", name)
	}
	if name == ControlExposure {
		value = ExposureFor(v.baseline, value)
	}
	debug.Trace("Camera: device %d set %s=%v", v.index, name, value)
	v.capture.Set(prop, value)
	return nil
}

// ExposureFor maps ev compensation steps onto a device exposure value.
// A positive baseline is an absolute exposure time (V4L2 reports units of
// 100 µs) and is scaled by 2^ev. A baseline <= 0 is a log2 exposure
// (DirectShow style), so ev is added to it.
func ExposureFor(baseline, ev float64) float64 {
	if baseline <= 0 {
		return baseline + ev
	}
	return math.Max(1, math.Round(baseline*math.Exp2(ev)))
}

func (v *VideoSensor) applyResolution() {
	if v.res.Width == 0 || v.res.Height == 0 {
		return
	}
	v.capture.Set(gocv.VideoCaptureFrameWidth, float64(v.res.Width))
	v.capture.Set(gocv.VideoCaptureFrameHeight, float64(v.res.Height))
}

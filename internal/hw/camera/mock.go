package camera

import (
	"fmt"
	"image"
	"image/color"

	"github.com/cjeanneret/DualCam/internal/debug"
	"gocv.io/x/gocv"
)

// MockSensor is a synthetic Sensor for development without hardware.
// It renders a flat background tinted per device with a moving marker;
// exposure compensation shifts the background intensity.
type MockSensor struct {
	index     int
	res       Resolution
	streaming bool
	exposure  float64
	frame     int
}

// OpenMock returns a MockSensor for index.
func OpenMock(index int) (Sensor, error) {
	debug.Info("Using MOCK camera for device %d (development mode)", index)
	return &MockSensor{index: index}, nil
}

func (m *MockSensor) Configure(res Resolution) error {
	if m.streaming {
		return fmt.Errorf("mock device %d: configure while streaming", m.index)
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("invalid resolution %s", res)
	}
	m.res = res
	return nil
}

func (m *MockSensor) Start() error {
	if m.res.Width == 0 {
		return fmt.Errorf("mock device %d: not configured", m.index)
	}
	m.streaming = true
	return nil
}

func (m *MockSensor) Stop() error {
	m.streaming = false
	return nil
}

func (m *MockSensor) Capture() (gocv.Mat, error) {
	if !m.streaming {
		return gocv.NewMat(), ErrNotStreaming
	}
	m.frame++

	base := 96 + 8*m.exposure
	tint := gocv.NewScalar(base, base, base, 0)
	if m.index%2 == 0 {
		tint.Val1 += 40
	} else {
		tint.Val3 += 40
	}
	frame := gocv.NewMatWithSizeFromScalar(tint, m.res.Height, m.res.Width, gocv.MatTypeCV8UC3)

	radius := m.res.Height / 10
	span := m.res.Width - 2*radius
	if span < 1 {
		span = 1
	}
	x := radius + (m.frame*8)%span
	center := image.Pt(x, m.res.Height/2)
	gocv.Circle(&frame, center, radius, color.RGBA{255, 255, 255, 0}, -1)
	return frame, nil
}

func (m *MockSensor) SetControl(name string, value float64) error {
	if name != ControlExposure {
		return fmt.Errorf("unsupported control %q", name)
	}
	m.exposure = value
	return nil
}

package camera

import (
	"errors"
	"testing"
)

func TestMockSensor_CaptureBeforeStart(t *testing.T) {
	s, _ := OpenMock(0)
	if err := s.Configure(Resolution{640, 480}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	frame, err := s.Capture()
	defer frame.Close()
	if !errors.Is(err, ErrNotStreaming) {
		t.Errorf("Capture before Start: err = %v, want ErrNotStreaming", err)
	}
}

func TestMockSensor_FrameMatchesResolution(t *testing.T) {
	s, _ := OpenMock(1)
	if err := s.Configure(Resolution{320, 240}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	frame, err := s.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	defer frame.Close()

	if frame.Cols() != 320 || frame.Rows() != 240 {
		t.Errorf("frame = %dx%d, want 320x240", frame.Cols(), frame.Rows())
	}
	if frame.Channels() != 3 {
		t.Errorf("channels = %d, want 3", frame.Channels())
	}
}

func TestMockSensor_ConfigureWhileStreamingRejected(t *testing.T) {
	s, _ := OpenMock(0)
	_ = s.Configure(Resolution{640, 480})
	_ = s.Start()

	if err := s.Configure(Resolution{1280, 720}); err == nil {
		t.Error("expected error when configuring a streaming sensor")
	}

	_ = s.Stop()
	if err := s.Configure(Resolution{1280, 720}); err != nil {
		t.Errorf("Configure after Stop: %v", err)
	}
}

func TestMockSensor_UnknownControl(t *testing.T) {
	s, _ := OpenMock(0)
	if err := s.SetControl("Gain", 2); err == nil {
		t.Error("expected error for unsupported control")
	}
	if err := s.SetControl(ControlExposure, -3); err != nil {
		t.Errorf("SetControl(%s): %v", ControlExposure, err)
	}
}

func TestMockSensor_ImplementsSensor(t *testing.T) {
	var _ Sensor = &MockSensor{}  // compile-time check
	var _ Sensor = &VideoSensor{} // compile-time check
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("i/o fault")
	cases := []struct {
		name string
		err  error
	}{
		{"init", &DeviceInitError{Slot: 0, Err: cause}},
		{"capture", &CaptureError{Slot: 1, Err: cause}},
		{"reconfigure", &ReconfigurationError{Slot: 1, Resolution: Resolution{1280, 720}, Err: cause}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, cause) {
				t.Errorf("errors.Is(%v, cause) = false", tc.err)
			}
			if tc.err.Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestResolution_String(t *testing.T) {
	if got := (Resolution{1920, 1080}).String(); got != "1920x1080" {
		t.Errorf("String() = %q, want %q", got, "1920x1080")
	}
}

func TestExposureFor(t *testing.T) {
	cases := []struct {
		name     string
		baseline float64
		ev       float64
		want     float64
	}{
		{"absolute unchanged at 0 EV", 156, 0, 156},
		{"absolute +1 EV doubles", 156, 1, 312},
		{"absolute -2 EV quarters", 156, -2, 39},
		{"absolute never below 1", 3, -8, 1},
		{"log2 unchanged at 0 EV", -6, 0, -6},
		{"log2 adds steps", -6, 2, -4},
		{"zero baseline is log2", 0, -1, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExposureFor(tc.baseline, tc.ev); got != tc.want {
				t.Errorf("ExposureFor(%v, %v) = %v, want %v", tc.baseline, tc.ev, got, tc.want)
			}
		})
	}
}
